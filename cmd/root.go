package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbanclimate-lab/lczmap/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "lczmap",
	Short: "Local Climate Zone mapping for urban heat island analysis",
	Long:  "Resolves a place boundary, clips the global LCZ classification raster, vectorizes it into class polygons, and produces statistics, charts and GIS exports.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
