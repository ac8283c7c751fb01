package ioscreen

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gnames/gn"
	"golang.org/x/sync/errgroup"

	"github.com/taxsieve/taxsieve/internal/ioaligner"
	"github.com/taxsieve/taxsieve/internal/iocoverage"
	"github.com/taxsieve/taxsieve/internal/iofasta"
	"github.com/taxsieve/taxsieve/internal/iofs"
	"github.com/taxsieve/taxsieve/internal/iogff"
	"github.com/taxsieve/taxsieve/internal/ioproteins"
	"github.com/taxsieve/taxsieve/internal/iotaxonomy"
	"github.com/taxsieve/taxsieve/pkg/assign"
	"github.com/taxsieve/taxsieve/pkg/config"
	"github.com/taxsieve/taxsieve/pkg/descriptors"
	"github.com/taxsieve/taxsieve/pkg/multivar"
	"github.com/taxsieve/taxsieve/pkg/screen"
	"github.com/taxsieve/taxsieve/pkg/taxtree"
)

func (scr *screener) loadTaxonomy(
	ctx context.Context,
	run *screen.Config,
) (*taxtree.Tree, error) {
	cacheDir := scr.cfg.TaxonomyDir
	if cacheDir == "" {
		cacheDir = config.TaxonomyCacheDir(scr.cfg.HomeDir)
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, iofs.CreateDirError(cacheDir, err)
	}
	return iotaxonomy.Load(ctx, iotaxonomy.Options{
		NodesPath: run.TaxdumpNodes,
		NamesPath: run.TaxdumpNames,
		CacheDir:  cacheDir,
	})
}

// ensureProteins returns the protein FASTA the aligner reads. An empty
// path means a precomputed hit table makes the aligner unnecessary.
func (scr *screener) ensureProteins(
	ctx context.Context,
	run *screen.Config,
	asm *iofasta.Assembly,
	genes []iogff.Gene,
	workDir string,
) (string, error) {
	if run.HitTablePath != "" {
		slog.Info("Hit table provided, protein extraction skipped",
			"path", run.HitTablePath)
		gn.Message("Using precomputed hit table <em>%s</em>",
			run.HitTablePath)
		return "", nil
	}
	if !run.ShouldExtractProteins() {
		if run.ProteinsPath == "" {
			return "", NoProteinSourceError()
		}
		slog.Info("Using provided protein FASTA", "path", run.ProteinsPath)
		gn.Message("Using provided proteins <em>%s</em>", run.ProteinsPath)
		return run.ProteinsPath, nil
	}

	prots, err := ioproteins.Extract(ctx, asm, genes, run.Phase())
	if err != nil {
		return "", err
	}
	path := filepath.Join(workDir, "proteins.fasta")
	if err = ioproteins.Write(path, prots); err != nil {
		return "", err
	}
	gn.Message("Extracted <em>%s</em> proteins",
		humanize.Comma(int64(len(prots))))
	return path, nil
}

// assignTaxa aligns proteins against the reference database, then
// resolves every query's hits to one taxon. Queries resolve from
// concurrent workers; the result map is keyed by gene id.
func (scr *screener) assignTaxa(
	ctx context.Context,
	run *screen.Config,
	tree *taxtree.Tree,
	proteinsPath, workDir string,
) (map[string]assign.Assignment, error) {
	hitsPath, err := ioaligner.Ensure(
		ctx, *scr.cfg, run.HitTablePath, proteinsPath,
		run.DatabasePath, workDir,
	)
	if err != nil {
		return nil, err
	}
	hits, err := ioaligner.ReadHits(ctx, hitsPath)
	if err != nil {
		return nil, err
	}

	queries := make([]string, 0, len(hits))
	for q := range hits {
		queries = append(queries, q)
	}
	sort.Strings(queries)

	opt := run.AssignOptions()
	res := make([]assign.Assignment, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scr.cfg.JobsNumber)
	for i, q := range queries {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			a, err := assign.Resolve(q, hits[q], tree, opt)
			if err != nil {
				return err
			}
			res[i] = a
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, ResolveError(err)
	}

	out := make(map[string]assign.Assignment, len(res))
	var assigned, unknownTaxa int
	for _, a := range res {
		out[a.QueryID] = a
		if a.Assigned() {
			assigned++
		}
		unknownTaxa += a.UnknownTaxa
	}
	if unknownTaxa > 0 {
		slog.Warn("Hits with subject taxa absent from the taxonomy dropped",
			"count", unknownTaxa)
	}
	slog.Info("Gene taxa resolved",
		"queries", len(queries),
		"assigned", assigned,
		"mode", opt.Mode.String(),
	)
	gn.Message("Assigned taxa to <em>%s</em> of <em>%s</em> genes with hits",
		humanize.Comma(int64(assigned)),
		humanize.Comma(int64(len(queries))),
	)
	return out, nil
}

// computeDescriptors parses the input_variables schema, collects
// coverage profiles when coverage sets are configured, and derives the
// full descriptor vector of every contig from concurrent workers.
func (scr *screener) computeDescriptors(
	ctx context.Context,
	run *screen.Config,
	asm *iofasta.Assembly,
	genes []iogff.Gene,
	workDir string,
) (descriptors.Schema, []descriptors.ContigResult, error) {
	schema, err := descriptors.ParseInputVariables(
		run.Variables(), len(run.Coverage),
	)
	if err != nil {
		return descriptors.Schema{}, nil, VariablesError(err)
	}

	var profiles []iocoverage.Profile
	if len(run.Coverage) > 0 {
		profiles, err = iocoverage.Collect(
			ctx, *scr.cfg, run.Coverage, run.FastaPath, workDir, genes,
		)
		if err != nil {
			return descriptors.Schema{}, nil, err
		}
	}

	inputs := buildInputs(asm, genes, profiles)
	asmStats := descriptors.ComputeAssemblyStats(inputs, len(run.Coverage))

	results := make([]descriptors.ContigResult, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scr.cfg.JobsNumber)
	for i, in := range inputs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = descriptors.Compute(in, asmStats)
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return descriptors.Schema{}, nil, DescriptorError(err)
	}

	gn.Message("Computed <em>%d</em> descriptors for <em>%s</em> contigs",
		len(schema.Columns), humanize.Comma(int64(len(results))))
	return schema, results, nil
}

// buildInputs groups genes by contig in genomic order and joins them
// with coverage profiles into per-contig descriptor inputs, keeping the
// assembly's contig order.
func buildInputs(
	asm *iofasta.Assembly,
	genes []iogff.Gene,
	profiles []iocoverage.Profile,
) []descriptors.ContigInput {
	perContig := make(map[string][]iogff.Gene)
	var orphaned int
	for _, g := range genes {
		if _, ok := asm.Seq(g.ContigID); !ok {
			orphaned++
			continue
		}
		perContig[g.ContigID] = append(perContig[g.ContigID], g)
	}
	if orphaned > 0 {
		slog.Warn("Genes on contigs absent from the assembly skipped",
			"count", orphaned)
	}

	ids := asm.IDs()
	inputs := make([]descriptors.ContigInput, 0, len(ids))
	for _, id := range ids {
		cg := perContig[id]
		sort.SliceStable(cg, func(i, j int) bool {
			return cg[i].Start < cg[j].Start
		})

		in := descriptors.ContigInput{
			ID:     id,
			Length: asm.Length(id),
			GC:     asm.GC(id),
			Cov:    make([]descriptors.Summary, len(profiles)),
		}
		for s, p := range profiles {
			in.Cov[s] = p.Contigs[id]
		}
		in.Genes = make([]descriptors.GeneInput, len(cg))
		for gi, g := range cg {
			gin := descriptors.GeneInput{
				ID:    g.ID,
				Start: g.Start,
				End:   g.End,
				GC:    asm.GCRange(id, g.Start, g.End),
				Cov:   make([]descriptors.Summary, len(profiles)),
			}
			for s, p := range profiles {
				gin.Cov[s] = p.Genes[g.ID]
			}
			in.Genes[gi] = gin
		}
		inputs = append(inputs, in)
	}
	return inputs
}

// analyze runs the multivariate stage. Too few contigs or a matrix
// without usable columns is not an error: the screening continues
// without cluster calls.
func (scr *screener) analyze(
	run *screen.Config,
	schema descriptors.Schema,
	contigs []descriptors.ContigResult,
) (*multivar.Result, error) {
	names := make([]string, 0, len(schema.Columns))
	for _, col := range schema.MatrixColumns() {
		names = append(names, col.Name)
	}
	rows := make([][]float64, len(contigs))
	lengths := make([]float64, len(contigs))
	for i, c := range contigs {
		rows[i] = schema.MatrixRow(c)
		lengths[i] = c.Values["c_len"]
	}

	opt := run.AnalysisOptions()
	res, err := multivar.Analyze(rows, names, lengths, opt)
	if err != nil {
		if errors.Is(err, multivar.ErrInsufficientData) {
			slog.Warn("Multivariate analysis skipped", "reason", err)
			gn.Warn("Not enough data for clustering, no cluster calls are made")
			return nil, nil
		}
		return nil, AnalysisError(err)
	}

	if len(res.Excluded) > 0 {
		slog.Info("Descriptors excluded from the analysis",
			"columns", strings.Join(res.Excluded, ","))
	}
	slog.Info("Multivariate analysis finished",
		"method", opt.Method.String(),
		"components", res.Components,
	)
	gn.Message("Kept <em>%d</em> principal components, clustered with <em>%s</em>",
		res.Components, opt.Method.String())
	return res, nil
}
