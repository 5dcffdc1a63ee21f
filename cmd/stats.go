package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/urbanclimate-lab/lczmap/internal/stats"
	"github.com/urbanclimate-lab/lczmap/internal/vector"
)

var (
	statsJSONOut bool
	statsXLSXOut string
)

var statsCmd = &cobra.Command{
	Use:   "stats <geojson>",
	Short: "Compute class statistics from an existing LCZ layer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		polys, err := vector.ReadGeoJSON(args[0])
		if err != nil {
			return err
		}

		records, err := stats.Compute(polys)
		if err != nil {
			return eris.Wrap(err, "stats")
		}
		summary := stats.Summarize(records)

		if statsXLSXOut != "" {
			if err := stats.WriteXLSX(statsXLSXOut, records); err != nil {
				return err
			}
		}

		if statsJSONOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Records []stats.Record `json:"records"`
				Summary stats.Summary  `json:"summary"`
			}{records, summary})
		}

		formatRecords(os.Stdout, layerName(args[0]), records, summary)
		return nil
	},
}

// layerName derives a display label from the dataset path.
func layerName(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSONOut, "json", false, "print records and summary as JSON")
	statsCmd.Flags().StringVar(&statsXLSXOut, "xlsx", "", "also write the statistics workbook to this path")
	rootCmd.AddCommand(statsCmd)
}
