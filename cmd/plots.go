/*
Copyright © 2025 The taxsieve authors
*/
package cmd

import (
	"context"

	"github.com/gnames/gn"
	"github.com/spf13/cobra"
	"github.com/taxsieve/taxsieve/internal/ioscreen"
)

// getPlotsCmd returns the plots command.
func getPlotsCmd() *cobra.Command {
	plotsCmd := &cobra.Command{
		Use:   "plots <run.yaml>",
		Short: "Refresh display tables from a finished screen",
		Long: `Rebuild the display tables of a finished screening run.

The screen saves a snapshot of its computed state next to the output
tables. This command reloads that snapshot and rewrites the call,
group and summary tables, so display settings can be adjusted without
repeating the alignment and analysis work.

Display settings read from the run document:
  - output_format        csv or tsv tables
  - sentinel             text standing in for undefined values
  - num_groups_plot      how many taxon groups to keep apart
  - merging_labels       directives for merging taxon groups
  - max_taxon_divergence divergence limit for candidate calls

Prerequisites:
  - 'taxsieve run' finished for the same run document

Examples:
  # Rewrite tables after changing display settings
  taxsieve plots run.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runPlots(cmd, args)
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	return plotsCmd
}

func runPlots(
	_ *cobra.Command,
	args []string,
) error {
	ctx := context.Background()

	scr := ioscreen.New(cfg)
	return scr.Plot(ctx, args[0])
}
