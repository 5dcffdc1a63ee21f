package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/urbanclimate-lab/lczmap/internal/lcz"
)

var (
	classesJSONOut    bool
	classesColorblind bool
)

var classesCmd = &cobra.Command{
	Use:   "classes",
	Short: "Print the Local Climate Zone catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		defs := lcz.All()

		if classesJSONOut {
			type entry struct {
				lcz.ClassDefinition
				Color string `json:"color"`
			}
			out := make([]entry, 0, len(defs))
			for _, d := range defs {
				out = append(out, entry{d, colorFor(d.Code)})
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		formatClasses(os.Stdout, defs)
		return nil
	},
}

func colorFor(code int) string {
	if classesColorblind {
		return lcz.ColorInclusive(code)
	}
	return lcz.Color(code)
}

// formatClasses writes the catalog as a table to w.
func formatClasses(out io.Writer, defs []lcz.ClassDefinition) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SYMBOL\tCOLOR\tDESCRIPTION\tHEAT_ISLAND_CONTRIBUTION")
	_, _ = fmt.Fprintln(w, "------\t-----\t-----------\t------------------------")
	for _, d := range defs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Symbol, colorFor(d.Code), d.Description, d.HeatIslandContribution)
	}
	_ = w.Flush()
}

func init() {
	classesCmd.Flags().BoolVar(&classesJSONOut, "json", false, "print the catalog as JSON")
	classesCmd.Flags().BoolVar(&classesColorblind, "colorblind", false, "use the colorblind-friendly palette")
	rootCmd.AddCommand(classesCmd)
}
