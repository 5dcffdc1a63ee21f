package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbanclimate-lab/lczmap/internal/pipeline"
)

var (
	analyzePlace        string
	analyzeBoundaryFile string
	analyzeFactor       int
	analyzeOutput       string
	analyzeSaveClip     bool
	analyzeSaveGlobal   bool
	analyzeNoGeoJSON    bool
	analyzeShapefile    bool
	analyzeXLSX         bool
	analyzeChart        bool
	analyzeJSONOut      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the full LCZ analysis for a place",
	Long:  "Resolves the boundary, clips and aggregates the raster, vectorizes it into class polygons, and writes the requested artifacts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		boundary, err := boundaryFromFlags(analyzePlace, analyzeBoundaryFile)
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx, "analyze")
		if err != nil {
			return err
		}
		defer env.Close()

		factor := analyzeFactor
		if factor == 0 {
			factor = cfg.Aggregate.Factor
		}
		outputDir := analyzeOutput
		if outputDir == "" {
			outputDir = cfg.Output.Dir
		}

		result, err := env.Pipeline.Run(ctx, pipeline.Request{
			Boundary:        boundary,
			Factor:          factor,
			OutputDir:       outputDir,
			SaveClip:        analyzeSaveClip,
			SaveGlobal:      analyzeSaveGlobal,
			ExportGeoJSON:   !analyzeNoGeoJSON,
			ExportShapefile: analyzeShapefile,
			ExportXLSX:      analyzeXLSX,
			ExportChart:     analyzeChart,
		})
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		zap.L().Info("analysis finished",
			zap.String("place", result.Place),
			zap.String("run_id", result.RunID),
			zap.Strings("artifacts", result.Artifacts),
		)

		if analyzeJSONOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		formatRecords(os.Stdout, result.DisplayName, result.Records, result.Summary)
		formatReport(os.Stdout, result.Report)
		return nil
	},
}

// boundaryFromFlags turns the --place / --boundary-file pair into a boundary
// source. Exactly one must be set.
func boundaryFromFlags(place, file string) (pipeline.BoundarySource, error) {
	switch {
	case place != "" && file != "":
		return nil, eris.New("--place and --boundary-file are mutually exclusive")
	case place != "":
		return pipeline.PlaceName{Name: place}, nil
	case file != "":
		return pipeline.BoundaryFile{Path: file}, nil
	default:
		return nil, eris.New("either --place or --boundary-file is required")
	}
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzePlace, "place", "", "place name to analyze (e.g. \"Rio de Janeiro, Brazil\")")
	analyzeCmd.Flags().StringVar(&analyzeBoundaryFile, "boundary-file", "", "GeoJSON file with a custom boundary polygon")
	analyzeCmd.Flags().IntVar(&analyzeFactor, "factor", 0, "aggregation block size (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeOutput, "output", "", "output directory (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeSaveClip, "save-clip", false, "save the clipped raster as lcz_map.tif")
	analyzeCmd.Flags().BoolVar(&analyzeSaveGlobal, "save-global", false, "download the full source raster alongside the clip")
	analyzeCmd.Flags().BoolVar(&analyzeNoGeoJSON, "no-geojson", false, "skip writing map_lcz.geojson")
	analyzeCmd.Flags().BoolVar(&analyzeShapefile, "shapefile", false, "also write an ESRI shapefile")
	analyzeCmd.Flags().BoolVar(&analyzeXLSX, "xlsx", false, "also write the statistics workbook")
	analyzeCmd.Flags().BoolVar(&analyzeChart, "chart", false, "also render the composition charts")
	analyzeCmd.Flags().BoolVar(&analyzeJSONOut, "json", false, "print the full result as JSON instead of tables")
	rootCmd.AddCommand(analyzeCmd)
}
