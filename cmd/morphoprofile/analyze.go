package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"morphoprofile/pkg/analysis"
)

var (
	noSegment bool
	noPlots   bool
)

// analyzeCmd runs the full pipeline over a dataset.
var analyzeCmd = &cobra.Command{
	Use:   "analyze <dataset.yaml>",
	Short: "Build consensus profiles and segments for a dataset of outlines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		params := analysis.ParamsFromConfig(cfg, args[0])
		if noSegment {
			params.Segment = false
		}
		if noPlots {
			params.Plots = false
		}

		start := time.Now()
		a := analysis.NewAnalyzer(params)
		if err := a.Process(cmd.Context()); err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}

		r := a.Result()
		slog.Info("analysis complete",
			"outlines", len(r.Members),
			"length", r.Length,
			"segments", len(r.Segments),
			"elapsed", time.Since(start).Round(time.Millisecond))
		fmt.Fprintf(cmd.OutOrStdout(), "Result saved to %s\n", filepath.Join(params.OutputDir, analysis.ResultFile))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().BoolVar(&noSegment, "no-segment", false, "keep the consensus as a single segment")
	analyzeCmd.Flags().BoolVar(&noPlots, "no-plots", false, "skip rendering charts")
}
