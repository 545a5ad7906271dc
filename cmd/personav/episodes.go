package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agenthands/personav/internal/core"
	"github.com/agenthands/personav/internal/core/navmesh"
	"github.com/agenthands/personav/internal/llm"
)

func episodesCmd(g *globals) *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "episodes",
		Short: "Build navigation episodes from batch output",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, tier, log, err := g.setup()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			f, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("failed to open batch output: %w", err)
			}
			outputs, err := llm.ReadBatchOutput(f, log)
			f.Close()
			if err != nil {
				return err
			}

			opener := navmesh.NewBridgeOpener(cfg.Simulator.BridgeURL, cfg.Simulator.Timeout())
			p := core.NewPipeline(cfg, opener, log)
			res, err := p.BuildEpisodes(ctx, outputs, tier)
			if err != nil {
				return err
			}

			if output == "" {
				output = cfg.Dataset.OutputDir
			}
			if err := core.Write(res, output); err != nil {
				return fmt.Errorf("failed to write episodes: %w", err)
			}
			log.Info("episodes written",
				"output", output,
				"episodes", res.Stats.Episodes,
				"mean_geodesic", res.Stats.MeanGeodesic,
				"mean_euclidean", res.Stats.MeanEuclidean,
				"avg_summary_words", res.Stats.AvgSummaryWords,
				"failed_scenes", res.FailedScenes)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "batch output JSONL file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory (default dataset.output_dir)")
	cmd.MarkFlagRequired("input")
	return cmd
}
