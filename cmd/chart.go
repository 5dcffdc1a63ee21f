package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/urbanclimate-lab/lczmap/internal/stats"
	"github.com/urbanclimate-lab/lczmap/internal/vector"
)

var (
	chartOutput string
	chartTitle  string
)

var chartCmd = &cobra.Command{
	Use:   "chart <geojson>",
	Short: "Render composition charts from an existing LCZ layer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		polys, err := vector.ReadGeoJSON(args[0])
		if err != nil {
			return err
		}

		records, err := stats.Compute(polys)
		if err != nil {
			return eris.Wrap(err, "chart")
		}

		out := chartOutput
		if out == "" {
			out = stats.ChartFileName
		}
		title := chartTitle
		if title == "" {
			title = layerName(args[0])
		}

		if err := stats.SaveCharts(out, title, records); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, out)
		return nil
	},
}

func init() {
	chartCmd.Flags().StringVar(&chartOutput, "output", "", "HTML file to write (default "+stats.ChartFileName+")")
	chartCmd.Flags().StringVar(&chartTitle, "title", "", "chart title (default derived from the dataset name)")
	rootCmd.AddCommand(chartCmd)
}
