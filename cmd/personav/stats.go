package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/agenthands/personav/internal/core/assembler"
	"github.com/agenthands/personav/internal/dataset"
)

func statsCmd(g *globals) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print summary statistics of a responses.json file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, _, _, err := g.setup(); err != nil {
				return err
			}
			records, err := dataset.ReadResponseRecords(input)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"records": len(records),
				"stats":   assembler.AggregateResponses(records),
			})
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "responses.json written by the episodes command")
	cmd.MarkFlagRequired("input")
	return cmd
}
