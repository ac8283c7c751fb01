/*
Copyright © 2025 The taxsieve authors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"

	"github.com/gnames/gn"
	"github.com/spf13/cobra"
	"github.com/taxsieve/taxsieve/internal/ioscreen"
	"github.com/taxsieve/taxsieve/pkg/config"
)

// getRunCmd returns the run command.
// Extracted as a function to facilitate testing and dynamic
// command registration.
func getRunCmd() *cobra.Command {
	var jobs int

	runCmd := &cobra.Command{
		Use:   "run <run.yaml>",
		Short: "Screen an assembly described by a run document",
		Long: `Screen one genome assembly for contamination.

The run document is a YAML file naming the assembly FASTA, the gene
annotation GFF, the NCBI taxdump, the reference protein database and
the screening parameters. A commented template is written to the
config directory on first start.

This command:
  1. Loads the NCBI taxonomy (cached in SQLite after the first load)
  2. Reads the assembly and its gene annotation
  3. Extracts gene proteins, or reuses a provided protein FASTA
  4. Aligns proteins with diamond and resolves a taxon per gene
  5. Computes contig and gene descriptors, with coverage when
     read sets, mappings or per-base coverage files are configured
  6. Reduces the descriptors with PCA and clusters the contigs
  7. Writes descriptor, call and group tables plus a snapshot
     used by 'taxsieve plots' for display updates

With 'update_plots: true' in the run document the screening phases
are skipped and only the display tables are refreshed, same as
'taxsieve plots'.

Examples:
  # Screen an assembly
  taxsieve run run.yaml

  # Screen with 16 parallel workers
  taxsieve run -j 16 run.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runRun(cmd, args, jobs)
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	runCmd.Flags().IntVarP(
		&jobs, "jobs", "j", 0,
		"number of parallel workers (default from config)",
	)

	return runCmd
}

func runRun(cmd *cobra.Command, args []string, jobs int) error {
	ctx := context.Background()

	if cmd.Flags().Changed("jobs") {
		cfg.Update([]config.Option{config.OptJobsNumber(jobs)})
	}

	scr := ioscreen.New(cfg)
	return scr.Screen(ctx, args[0])
}
