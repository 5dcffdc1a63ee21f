package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/urbanclimate-lab/lczmap/internal/pipeline"
)

var (
	fetchPlace        string
	fetchBoundaryFile string
	fetchOutput       string
	fetchGlobal       bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Save the clipped LCZ raster without analyzing it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		boundary, err := boundaryFromFlags(fetchPlace, fetchBoundaryFile)
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx, "analyze")
		if err != nil {
			return err
		}
		defer env.Close()

		outputDir := fetchOutput
		if outputDir == "" {
			outputDir = cfg.Output.Dir
		}

		artifacts, err := env.Pipeline.Fetch(ctx, pipeline.Request{
			Boundary:   boundary,
			OutputDir:  outputDir,
			SaveGlobal: fetchGlobal,
		})
		if err != nil {
			return eris.Wrap(err, "fetch")
		}

		for _, a := range artifacts {
			fmt.Fprintln(os.Stdout, a)
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchPlace, "place", "", "place name to clip for")
	fetchCmd.Flags().StringVar(&fetchBoundaryFile, "boundary-file", "", "GeoJSON file with a custom boundary polygon")
	fetchCmd.Flags().StringVar(&fetchOutput, "output", "", "output directory (default from config)")
	fetchCmd.Flags().BoolVar(&fetchGlobal, "global", false, "also download the full source raster")
	rootCmd.AddCommand(fetchCmd)
}
