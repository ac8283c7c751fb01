/*
Copyright © 2025 The taxsieve authors
*/
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gnames/gn"
	"github.com/spf13/cobra"
	"github.com/taxsieve/taxsieve/internal/ioscreen"
	"github.com/taxsieve/taxsieve/internal/iotools"
	"github.com/taxsieve/taxsieve/pkg/config"
	"github.com/taxsieve/taxsieve/pkg/screen"
)

// toolCheck describes one external tool presence and version probe.
type toolCheck struct {
	bin         string
	versionArgs []string
	minVersion  string
	required    bool
	purpose     string
}

// getCheckCmd returns the check command.
func getCheckCmd() *cobra.Command {
	checkCmd := &cobra.Command{
		Use:   "check [run.yaml]",
		Short: "Check external tools and, optionally, a run document",
		Long: `Verify that the screening prerequisites are in place.

Without arguments every external tool is probed: diamond for protein
alignment, and bowtie2, samtools and bedtools for coverage computed
from read sets. Tool names or paths come from the configuration file,
so 'check' verifies exactly what 'run' is going to execute.

With a run document the document itself is validated, every input
artifact it references is located, and the tool requirements narrow
to what that run needs: diamond is optional for a precomputed hit
table, the coverage tools are only required for the coverage sources
the document lists. Nothing is processed.

Examples:
  # Verify the configured tools
  taxsieve check

  # Validate a run document and its inputs before queueing it
  taxsieve check run.yaml

  # Verify a diamond binary outside PATH
  TAXSIEVE_TOOLS_DIAMOND=/opt/diamond/diamond taxsieve check`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runCheck(cmd, args)
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	return checkCmd
}

func runCheck(
	_ *cobra.Command,
	args []string,
) error {
	ctx := context.Background()

	var run *screen.Config
	if len(args) == 1 {
		var err error
		run, err = ioscreen.LoadRun(args[0])
		if err != nil {
			return err
		}
	}

	if err := checkTools(ctx, run); err != nil {
		return err
	}
	if run == nil {
		return nil
	}

	scr := ioscreen.New(cfg)
	return scr.Check(ctx, args[0])
}

// toolNeeds derives which tool groups a run document requires. Without
// a document diamond is required and the coverage tools are advisory.
func toolNeeds(run *screen.Config) (diamond, mapping, bedtools bool) {
	if run == nil {
		return true, false, false
	}
	diamond = run.HitTablePath == ""
	for _, set := range run.Coverage {
		switch set.Source() {
		case screen.SourceReads:
			mapping = true
			bedtools = true
		case screen.SourceBAM:
			bedtools = true
		}
	}
	return diamond, mapping, bedtools
}

// checkTools probes the external tools with the requirements derived
// from the run document, when one is given.
func checkTools(ctx context.Context, run *screen.Config) error {
	needDiamond, needMapping, needBedtools := toolNeeds(run)

	tools := []toolCheck{
		{
			bin:         cfg.Tools.Diamond,
			versionArgs: []string{"version"},
			minVersion:  config.MinVersionDiamond,
			required:    needDiamond,
			purpose:     "protein alignment",
		},
		{
			bin:         cfg.Tools.Bowtie2,
			versionArgs: []string{"--version"},
			required:    needMapping,
			purpose:     "read mapping for coverage",
		},
		{
			bin:         cfg.Tools.Bowtie2Build,
			versionArgs: []string{"--version"},
			required:    needMapping,
			purpose:     "assembly indexing for coverage",
		},
		{
			bin:         cfg.Tools.Samtools,
			versionArgs: []string{"--version"},
			required:    needMapping,
			purpose:     "sorting and indexing of mappings",
		},
		{
			bin:         cfg.Tools.Bedtools,
			versionArgs: []string{"--version"},
			required:    needBedtools,
			purpose:     "per-base coverage extraction",
		},
	}

	gn.Info("Checking external tools")
	fmt.Println(strings.Repeat("─", 60))

	var requiredMissing bool
	for _, tc := range tools {
		if err := checkTool(ctx, tc); err != nil && tc.required {
			requiredMissing = true
		}
	}
	fmt.Println(strings.Repeat("─", 60))

	if requiredMissing {
		err := fmt.Errorf("required tools are missing or too old")
		slog.Error("Tools check failed", "error", err)
		return err
	}

	gn.Info("All required tools are ready")
	return nil
}

func checkTool(ctx context.Context, tc toolCheck) error {
	path, err := iotools.Find(tc.bin)
	if err != nil {
		if tc.required {
			gn.Warn("<warn>%s: not found, needed for %s</warn>",
				tc.bin, tc.purpose)
		} else {
			gn.Message("%s: not found, only needed for %s",
				tc.bin, tc.purpose)
		}
		return err
	}

	line, err := iotools.Version(ctx, path, tc.versionArgs...)
	if err != nil {
		gn.Warn("<warn>%s: version check failed</warn>", tc.bin)
		return err
	}
	version := iotools.ParseVersion(line)

	if tc.minVersion != "" {
		if err = iotools.CheckMinVersion(tc.bin, version, tc.minVersion); err != nil {
			gn.Warn("<warn>%s: %s is older than required %s</warn>",
				tc.bin, version, tc.minVersion)
			return err
		}
	}

	gn.Message("%s: <em>%s</em> at %s", tc.bin, version, path)
	return nil
}
