package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agenthands/personav/internal/core"
	"github.com/agenthands/personav/internal/dataset"
	"github.com/agenthands/personav/internal/llm"
)

func batchCmd(g *globals) *cobra.Command {
	var (
		output string
		direct bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Render summary prompts into a batch request file, or answer them directly with --direct",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, tier, log, err := g.setup()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			store, closeStore, err := openStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer closeStore()

			p := core.NewPipeline(cfg, nil, log)
			if store != nil {
				p.Store = store
			}
			if output == "" {
				output = fmt.Sprintf("batch_%s.jsonl", tier)
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			defer f.Close()

			var res core.BatchResult
			if direct {
				client, err := llm.NewClient(ctx, cfg.LLM)
				if err != nil {
					return fmt.Errorf("failed to initialize LLM client: %w", err)
				}
				if c, ok := client.(interface{ Close() error }); ok {
					defer c.Close()
				}
				p.LLM = client

				var outs []llm.BatchOutput
				outs, res, err = p.GenerateDirect(ctx, tier)
				if err != nil {
					return err
				}
				if err := llm.WriteBatchOutput(f, outs); err != nil {
					return err
				}
			} else {
				res, err = p.GenerateBatch(ctx, tier)
				if err != nil {
					return err
				}
				if err := llm.WriteBatchFile(f, res.Requests); err != nil {
					return err
				}
			}

			metricsPath := strings.TrimSuffix(output, ".jsonl") + "_metrics.json"
			if err := dataset.WriteJSON(metricsPath, res); err != nil {
				return err
			}
			log.Info("batch written", "output", output, "prompts", len(res.Prompts), "metrics", metricsPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output JSONL file (default batch_<tier>.jsonl)")
	cmd.Flags().BoolVar(&direct, "direct", false, "send prompts to the configured LLM instead of writing batch requests")
	return cmd
}
