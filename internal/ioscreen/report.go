package ioscreen

import (
	"log/slog"
	"time"

	"github.com/gnames/gnfmt"

	"github.com/taxsieve/taxsieve/internal/ioreport"
	"github.com/taxsieve/taxsieve/pkg/assign"
	"github.com/taxsieve/taxsieve/pkg/descriptors"
	"github.com/taxsieve/taxsieve/pkg/screen"
	"github.com/taxsieve/taxsieve/pkg/taxmerge"
	"github.com/taxsieve/taxsieve/pkg/taxtree"
)

// contigTaxa picks each contig's display taxon by plurality over its
// genes' assignments; ties go to the higher summed best score, then to
// the smaller taxon id. Contigs without assigned genes stay unassigned
// with a divergence of -1.
func contigTaxa(
	contigs []descriptors.ContigResult,
	assignments map[string]assign.Assignment,
	tree *taxtree.Tree,
	queryTaxon int,
) []ioreport.Taxon {
	out := make([]ioreport.Taxon, len(contigs))
	for i, c := range contigs {
		counts := make(map[int]int)
		scores := make(map[int]float64)
		for _, g := range c.Genes {
			a, ok := assignments[g.ID]
			if !ok || !a.Assigned() {
				continue
			}
			counts[a.TaxonID]++
			scores[a.TaxonID] += a.BestScore
		}

		var best int
		for id := range counts {
			if best == 0 || preferred(id, best, counts, scores) {
				best = id
			}
		}

		t := ioreport.Taxon{ContigID: c.ID, Divergence: -1}
		if best == 0 {
			t.Name = taxmerge.Unassigned
			out[i] = t
			continue
		}
		t.TaxonID = best
		if name, err := tree.NameOf(best); err == nil {
			t.Name = name
		}
		if d, err := tree.Divergence(queryTaxon, best); err == nil {
			t.Divergence = d
		}
		out[i] = t
	}
	return out
}

func preferred(id, than int, counts map[int]int, scores map[int]float64) bool {
	switch {
	case counts[id] != counts[than]:
		return counts[id] > counts[than]
	case scores[id] != scores[than]:
		return scores[id] > scores[than]
	}
	return id < than
}

func mergeDisplay(
	taxa []ioreport.Taxon,
	tree *taxtree.Tree,
	opt taxmerge.Options,
) (*taxmerge.Result, error) {
	ids := make([]int, len(taxa))
	for i, t := range taxa {
		ids[i] = t.TaxonID
	}
	res, err := taxmerge.Merge(ids, tree, opt)
	if err != nil {
		return nil, MergeError(err)
	}
	if res.Steps > 0 {
		slog.Info("Display groups merged",
			"groups", len(res.Groups), "steps", res.Steps)
	}
	return res, nil
}

// buildCalls derives one verdict row per contig from the analysis, the
// resolved taxa and the merged display labels. A contamination
// candidate is an analysis outlier whose taxon diverges from the query
// lineage beyond maxDivergence.
func buildCalls(
	snap *ioreport.Snapshot,
	labels []string,
	maxDivergence int,
) []ioreport.Call {
	calls := make([]ioreport.Call, len(snap.Contigs))
	for i, c := range snap.Contigs {
		call := ioreport.Call{
			ContigID:   c.ID,
			TaxonID:    snap.Taxa[i].TaxonID,
			TaxonName:  snap.Taxa[i].Name,
			Divergence: snap.Taxa[i].Divergence,
			Group:      labels[i],
		}
		if snap.Analysis != nil {
			call.Cluster = snap.Analysis.Labels[i]
			call.Outlier = snap.Analysis.Outlier[i]
			call.Scores = snap.Analysis.Scores[i]
		}
		if call.Outlier && call.TaxonID != 0 &&
			call.Divergence > maxDivergence {
			call.Candidate = true
		}
		calls[i] = call
	}
	return calls
}

// report writes the result tables and the summary; withSnapshot also
// persists the snapshot that display updates load later. It returns
// the outlier and candidate counts for the closing message.
func (scr *screener) report(
	run *screen.Config,
	tree *taxtree.Tree,
	snap *ioreport.Snapshot,
	start time.Time,
	withSnapshot bool,
) (outliers, candidates int, err error) {
	paths := ioreport.NewPaths(run.OutputPath, run.Format())
	format := run.Format()
	sentinel := run.SentinelString()

	err = ioreport.WriteContigTable(
		paths.ContigTable(), format, snap.Schema, snap.Contigs, sentinel,
	)
	if err != nil {
		return 0, 0, err
	}
	err = ioreport.WriteGeneTable(
		paths.GeneTable(), format, snap.Schema, snap.Contigs, sentinel,
	)
	if err != nil {
		return 0, 0, err
	}

	merged, err := mergeDisplay(snap.Taxa, tree, run.MergeOptions())
	if err != nil {
		return 0, 0, err
	}

	calls := buildCalls(snap, merged.Labels, run.MaxDivergence())
	for _, c := range calls {
		if c.Outlier {
			outliers++
		}
		if c.Candidate {
			candidates++
		}
	}

	if snap.Analysis != nil {
		err = ioreport.WriteCallTable(
			paths.CallTable(), format, calls, sentinel,
		)
		if err != nil {
			return 0, 0, err
		}
	}
	err = ioreport.WriteGroupTable(
		paths.GroupTable(), format, merged.Groups, sentinel,
	)
	if err != nil {
		return 0, 0, err
	}

	var assigned int
	for _, a := range snap.Assignments {
		if a.Assigned() {
			assigned++
		}
	}
	var genes int
	for _, c := range snap.Contigs {
		genes += len(c.Genes)
	}
	summary := ioreport.Summary{
		Contigs:    len(snap.Contigs),
		Genes:      genes,
		Assigned:   assigned,
		Outliers:   outliers,
		Candidates: candidates,
		Groups:     len(merged.Groups),
		Elapsed:    gnfmt.TimeString(time.Since(start).Seconds()),
	}
	if snap.Analysis != nil {
		summary.Method = run.AnalysisOptions().Method.String()
		summary.Components = snap.Analysis.Components
	}
	if err = ioreport.WriteSummary(paths.SummaryFile(), summary); err != nil {
		return 0, 0, err
	}

	if withSnapshot {
		if err = ioreport.SaveSnapshot(paths.SnapshotFile(), snap); err != nil {
			return 0, 0, err
		}
	}
	return outliers, candidates, nil
}
