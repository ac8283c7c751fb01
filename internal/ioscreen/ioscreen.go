// Package ioscreen drives one assembly screening end to end: run
// document, taxonomy, assembly and annotation inputs, protein
// extraction, alignment, taxon assignment, descriptors, multivariate
// analysis and result tables. Everything that touches the filesystem or
// external tools funnels through here; the pkg packages stay pure.
package ioscreen

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gnames/gn"
	"github.com/gnames/gnfmt"

	"github.com/taxsieve/taxsieve/internal/iofasta"
	"github.com/taxsieve/taxsieve/internal/iofs"
	"github.com/taxsieve/taxsieve/internal/iogff"
	"github.com/taxsieve/taxsieve/internal/ioreport"
	"github.com/taxsieve/taxsieve/internal/iotaxonomy"
	"github.com/taxsieve/taxsieve/pkg/config"
	"github.com/taxsieve/taxsieve/pkg/lifecycle"
	"github.com/taxsieve/taxsieve/pkg/screen"
)

type screener struct {
	cfg *config.Config
}

// New creates a Screener that runs screenings with the given app
// configuration.
func New(cfg *config.Config) lifecycle.Screener {
	return &screener{cfg: cfg}
}

// Screen runs the full pipeline for one run document: it loads the
// taxonomy and the assembly artifacts, extracts and aligns proteins
// unless precomputed results short-circuit those stages, computes
// descriptors, runs the multivariate analysis and writes the result
// tables together with a snapshot for later display updates.
func (scr *screener) Screen(ctx context.Context, runPath string) error {
	start := time.Now()

	run, err := LoadRun(runPath)
	if err != nil {
		return err
	}
	if run.UpdatePlots {
		slog.Info("update_plots is set, switching to display update")
		return scr.plotRun(ctx, run, start)
	}
	if err = checkInputs(run); err != nil {
		return err
	}

	workDir := filepath.Join(run.OutputPath, "work")
	for _, dir := range []string{run.OutputPath, workDir} {
		if err = os.MkdirAll(dir, 0755); err != nil {
			return iofs.CreateDirError(dir, err)
		}
	}

	banner(fmt.Sprintf(
		"Screening assembly <em>%s</em>", filepath.Base(run.FastaPath),
	))

	gn.Info("(1/7) Loading taxonomy...")
	tree, err := scr.loadTaxonomy(ctx, run)
	if err != nil {
		return err
	}
	if !tree.Has(run.TaxonID) {
		return UnknownTaxonError(run.TaxonID)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	gn.Info("(2/7) Reading assembly and annotation...")
	asm, err := iofasta.Read(ctx, run.FastaPath)
	if err != nil {
		return err
	}
	genes, err := iogff.Read(ctx, run.GFFPath)
	if err != nil {
		return err
	}
	gn.Message("Found <em>%s</em> contigs and <em>%s</em> genes",
		humanize.Comma(int64(asm.Len())),
		humanize.Comma(int64(len(genes))),
	)

	gn.Info("(3/7) Preparing proteins...")
	proteinsPath, err := scr.ensureProteins(ctx, run, asm, genes, workDir)
	if err != nil {
		return err
	}

	gn.Info("(4/7) Aligning proteins and resolving gene taxa...")
	assignments, err := scr.assignTaxa(ctx, run, tree, proteinsPath, workDir)
	if err != nil {
		return err
	}

	gn.Info("(5/7) Computing descriptors...")
	schema, contigs, err := scr.computeDescriptors(ctx, run, asm, genes, workDir)
	if err != nil {
		return err
	}

	gn.Info("(6/7) Running multivariate analysis...")
	analysis, err := scr.analyze(run, schema, contigs)
	if err != nil {
		return err
	}

	gn.Info("(7/7) Writing result tables...")
	snap := &ioreport.Snapshot{
		Fingerprint: run.Fingerprint(),
		Schema:      schema,
		Contigs:     contigs,
		Assignments: assignments,
		Taxa:        contigTaxa(contigs, assignments, tree, run.TaxonID),
		Analysis:    analysis,
	}
	outliers, candidates, err := scr.report(run, tree, snap, start, true)
	if err != nil {
		return err
	}

	elapsed := gnfmt.TimeString(time.Since(start).Seconds())
	slog.Info("Screening finished",
		"contigs", len(contigs),
		"outliers", outliers,
		"candidates", candidates,
		"duration", elapsed,
	)
	gn.Info(`Screening is done
Scanned <em>%s</em> contigs: %s outliers, %s contamination candidates.
Results are in <em>%s</em>. Elapsed time: <em>%s</em>
`,
		humanize.Comma(int64(len(contigs))),
		humanize.Comma(int64(outliers)),
		humanize.Comma(int64(candidates)),
		run.OutputPath,
		elapsed,
	)
	return nil
}

// Plot refreshes the display tables of a finished screening from its
// snapshot, honoring the run document's current display settings
// without recomputing descriptors, alignments or clustering.
func (scr *screener) Plot(ctx context.Context, runPath string) error {
	run, err := LoadRun(runPath)
	if err != nil {
		return err
	}
	return scr.plotRun(ctx, run, time.Now())
}

// Check validates the run document and confirms that every input
// artifact it references exists. Nothing is processed, so a check is
// cheap enough to run before queueing a long screening.
func (scr *screener) Check(ctx context.Context, runPath string) error {
	run, err := LoadRun(runPath)
	if err != nil {
		return err
	}

	banner(fmt.Sprintf(
		"Checking run document <em>%s</em>", filepath.Base(runPath),
	))

	if err = checkInputs(run); err != nil {
		return err
	}
	if err = checkAuxInputs(run); err != nil {
		return err
	}

	gn.Message("Assembly: <em>%s</em>", run.FastaPath)
	gn.Message("Annotation: <em>%s</em>", run.GFFPath)
	gn.Message("Query taxon: <em>%d</em>", run.TaxonID)
	if run.HitTablePath != "" {
		gn.Message("Alignment: precomputed hit table <em>%s</em>",
			run.HitTablePath)
	} else {
		gn.Message("Alignment: diamond against <em>%s</em>", run.DatabasePath)
	}
	gn.Message("Coverage sets: <em>%d</em>", len(run.Coverage))
	gn.Message("Descriptor variables: <em>%d</em>", len(run.Variables()))

	slog.Info("Run document checked", "path", runPath)
	gn.Info("Run document is valid, all inputs are in place")
	return nil
}

func (scr *screener) plotRun(
	ctx context.Context,
	run *screen.Config,
	start time.Time,
) error {
	paths := ioreport.NewPaths(run.OutputPath, run.Format())

	banner(fmt.Sprintf(
		"Updating display tables in <em>%s</em>", run.OutputPath,
	))

	gn.Info("(1/2) Loading taxonomy and screening snapshot...")
	tree, err := scr.loadTaxonomy(ctx, run)
	if err != nil {
		return err
	}
	snap, err := ioreport.LoadSnapshot(paths.SnapshotFile(), run.Fingerprint())
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	gn.Info("(2/2) Writing display tables...")
	outliers, candidates, err := scr.report(run, tree, snap, start, false)
	if err != nil {
		return err
	}

	gn.Info(`Display update is done
Kept <em>%s</em> contigs: %s outliers, %s contamination candidates.
Elapsed time: <em>%s</em>
`,
		humanize.Comma(int64(len(snap.Contigs))),
		humanize.Comma(int64(outliers)),
		humanize.Comma(int64(candidates)),
		gnfmt.TimeString(time.Since(start).Seconds()),
	)
	return nil
}

// checkInputs verifies that every artifact the run document points at
// exists before any heavy stage starts. The reference database is only
// needed when the aligner actually runs.
func checkInputs(run *screen.Config) error {
	paths := []string{run.FastaPath, run.GFFPath}
	if run.HitTablePath != "" {
		paths = append(paths, run.HitTablePath)
	} else {
		paths = append(paths, run.DatabasePath)
		if !run.ShouldExtractProteins() && run.ProteinsPath != "" {
			paths = append(paths, run.ProteinsPath)
		}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return MissingInputError(p, err)
		}
	}
	return nil
}

// checkAuxInputs stats the optional artifacts checkInputs leaves to
// later stages: a taxdump pair pinned by the run document and the
// source files of every coverage set.
func checkAuxInputs(run *screen.Config) error {
	var paths []string
	switch {
	case run.TaxdumpNodes != "" && run.TaxdumpNames != "":
		paths = append(paths, run.TaxdumpNodes, run.TaxdumpNames)
	case run.TaxdumpNodes != "" || run.TaxdumpNames != "":
		return iotaxonomy.DumpPairError(run.TaxdumpNodes, run.TaxdumpNames)
	}
	for _, set := range run.Coverage {
		switch set.Source() {
		case screen.SourcePBC:
			paths = append(paths, set.PBCPath)
		case screen.SourceBAM:
			paths = append(paths, set.BAMPath)
		case screen.SourceReads:
			paths = append(paths, set.ReadPaths...)
		}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return MissingInputError(p, err)
		}
	}
	return nil
}

func banner(msg string) {
	fmt.Println(strings.Repeat("─", 60))
	gn.Info(msg)
	fmt.Println(strings.Repeat("─", 60))
}
