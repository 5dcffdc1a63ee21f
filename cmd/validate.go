package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/urbanclimate-lab/lczmap/internal/validate"
	"github.com/urbanclimate-lab/lczmap/internal/vector"
)

var validateJSONOut bool

var validateCmd = &cobra.Command{
	Use:   "validate <geojson>",
	Short: "Validate an existing LCZ layer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		polys, err := vector.ReadGeoJSON(args[0])
		if err != nil {
			return err
		}

		report := validate.Check(polys)

		if validateJSONOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
		} else {
			formatReport(os.Stdout, report)
		}

		if !report.IsValid {
			return eris.Errorf("validate: %d error(s) in %s", len(report.Errors), args[0])
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSONOut, "json", false, "print the report as JSON")
	rootCmd.AddCommand(validateCmd)
}
