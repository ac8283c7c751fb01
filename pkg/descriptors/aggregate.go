// Package descriptors computes the per-contig and per-gene numeric
// descriptors that feed the multivariate analysis: gene structure,
// per-base coverage statistics over one or more coverage sets, GC
// content, and coverage-profile correlations.
//
// Descriptors that cannot be computed for a record, a correlation on a
// single-gene contig for instance, are reported as NaN sentinels rather
// than errors. The configured input_variables list, parsed into a
// Schema, decides which descriptors reach the output and in what order.
package descriptors

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// GeneInput carries one gene's structural and coverage inputs.
// Coordinates are 1-based and inclusive. Cov holds one Summary per
// coverage set; a zero Summary marks a set without data for this gene.
type GeneInput struct {
	ID         string
	Start, End int
	GC         float64
	Cov        []Summary
}

// Length returns the gene's span in bases.
func (g GeneInput) Length() int { return g.End - g.Start + 1 }

// ContigInput carries everything needed to compute one contig's
// descriptors. Genes are in genomic order.
type ContigInput struct {
	ID     string
	Length int
	GC     float64
	Genes  []GeneInput
	Cov    []Summary
}

// AssemblyStats holds the assembly-wide references that contig
// descriptors deviate against.
type AssemblyStats struct {
	TotalLength int64
	GC          Summary   // over contig GC fractions
	Cov         []Summary // pooled per-base coverage, one per set
}

// ComputeAssemblyStats pools contig-level inputs into assembly-wide
// reference statistics for the given number of coverage sets.
func ComputeAssemblyStats(contigs []ContigInput, sets int) AssemblyStats {
	asm := AssemblyStats{Cov: make([]Summary, sets)}

	var gcAcc Accum
	covAcc := make([]Accum, sets)
	for _, c := range contigs {
		asm.TotalLength += int64(c.Length)
		if !math.IsNaN(c.GC) {
			gcAcc.Add(c.GC)
		}
		for i := 0; i < sets && i < len(c.Cov); i++ {
			covAcc[i].Merge(c.Cov[i].Accum())
		}
	}

	asm.GC = gcAcc.Summary()
	for i := range covAcc {
		asm.Cov[i] = covAcc[i].Summary()
	}
	return asm
}

// Values maps expanded descriptor names to computed values. NaN marks a
// descriptor that is not computable for the record.
type Values map[string]float64

// GeneResult is the full descriptor vector of one gene.
type GeneResult struct {
	ID       string
	ContigID string
	Values   Values
}

// ContigResult is the full descriptor vector of one contig together
// with its genes' vectors.
type ContigResult struct {
	ID     string
	Values Values
	Genes  []GeneResult
}

// Compute derives every registry descriptor for one contig. It reads
// only its inputs and the shared assembly statistics, so contigs can be
// computed from concurrent workers.
func Compute(c ContigInput, asm AssemblyStats) ContigResult {
	sets := len(asm.Cov)
	res := ContigResult{ID: c.ID, Values: make(Values, 16+6*sets)}
	cv := res.Values

	nGenes := len(c.Genes)
	cv["c_num_of_genes"] = float64(nGenes)
	cv["c_len"] = float64(c.Length)
	cv["c_pct_assembly_len"] = math.NaN()
	if asm.TotalLength > 0 {
		cv["c_pct_assembly_len"] = 100 * float64(c.Length) / float64(asm.TotalLength)
	}

	lengths := make([]float64, nGenes)
	gcs := make([]float64, nGenes)
	for i, g := range c.Genes {
		lengths[i] = float64(g.Length())
		gcs[i] = g.GC
	}
	lenStats := summarize(lengths)
	gcStats := summarize(gcs)

	cv["c_genelenm"] = meanOrNaN(lenStats)
	cv["c_genelensd"] = lenStats.SD()
	cv["c_gc_cont"] = c.GC
	cv["c_gcdev"] = zdev(c.GC, asm.GC)

	for set := 1; set <= sets; set++ {
		cov := covAt(c.Cov, set)
		cv[setName("c_cov", set)] = meanOrNaN(cov)
		cv[setName("c_covsd", set)] = cov.SD()
		cv[setName("c_covdev", set)] = math.NaN()
		if cov.Defined() {
			cv[setName("c_covdev", set)] = zdev(cov.Mean, asm.Cov[set-1])
		}
	}

	// per-set lists of defined gene coverage means, for c_genecovm/sd
	geneMeans := make([][]float64, sets)
	var rOs, rCs []float64

	for i, g := range c.Genes {
		gr := GeneResult{
			ID:       g.ID,
			ContigID: c.ID,
			Values:   make(Values, 12+4*sets),
		}
		gv := gr.Values

		gv["g_len"] = float64(g.Length())
		gv["g_lendev_c"] = zdev(float64(g.Length()), lenStats)
		gv["g_abspos"] = math.NaN()
		if c.Length > 0 {
			gv["g_abspos"] = float64(g.Start+g.End) / 2 / float64(c.Length)
		}
		gv["g_terminal"] = boolVal(i == 0 || i == nGenes-1)
		gv["g_single"] = boolVal(nGenes == 1)
		gv["g_gc_cont"] = g.GC
		gv["g_gcdev_c"] = zdev(g.GC, gcStats)

		// coverage profiles across sets, kept aligned for correlations
		var geneVec, contigVec, asmVec []float64
		for set := 1; set <= sets; set++ {
			gc := covAt(g.Cov, set)
			cc := covAt(c.Cov, set)

			gv[setName("g_cov", set)] = meanOrNaN(gc)
			gv[setName("g_covsd", set)] = gc.SD()
			gv[setName("g_covdev_c", set)] = math.NaN()
			gv[setName("g_covdev_o", set)] = math.NaN()
			if gc.Defined() {
				gv[setName("g_covdev_c", set)] = zdev(gc.Mean, cc)
				gv[setName("g_covdev_o", set)] = zdev(gc.Mean, asm.Cov[set-1])
				geneMeans[set-1] = append(geneMeans[set-1], gc.Mean)
			}
			if gc.Defined() && cc.Defined() && asm.Cov[set-1].Defined() {
				geneVec = append(geneVec, gc.Mean)
				contigVec = append(contigVec, cc.Mean)
				asmVec = append(asmVec, asm.Cov[set-1].Mean)
			}
		}

		rO := pearson(geneVec, asmVec)
		rC := pearson(geneVec, contigVec)
		gv["g_pearson_r_o"] = rO
		gv["g_pearson_r_c"] = rC
		if !math.IsNaN(rO) {
			rOs = append(rOs, rO)
		}
		if !math.IsNaN(rC) {
			rCs = append(rCs, rC)
		}

		res.Genes = append(res.Genes, gr)
	}

	for set := 1; set <= sets; set++ {
		gm := summarize(geneMeans[set-1])
		cv[setName("c_genecovm", set)] = meanOrNaN(gm)
		cv[setName("c_genecovsd", set)] = gm.SD()
	}

	// contig correlations need at least two genes to mean anything
	cv["c_pearson_r_o"] = math.NaN()
	cv["c_pearson_r_c"] = math.NaN()
	if nGenes >= 2 {
		if len(rOs) > 0 {
			cv["c_pearson_r_o"] = stat.Mean(rOs, nil)
		}
		if len(rCs) > 0 {
			cv["c_pearson_r_c"] = stat.Mean(rCs, nil)
		}
	}

	return res
}

// MatrixColumns returns the schema's numeric columns, the ones a
// contig-row analysis matrix is built from. Key columns are skipped.
func (s Schema) MatrixColumns() []Column {
	cols := make([]Column, 0, len(s.Columns))
	for _, c := range s.Columns {
		if !c.Key {
			cols = append(cols, c)
		}
	}
	return cols
}

// MatrixRow renders one contig as a numeric row aligned with
// MatrixColumns. Gene-scope descriptors enter as the mean over the
// contig's genes with defined values; a column with no defined value
// stays NaN.
func (s Schema) MatrixRow(c ContigResult) []float64 {
	cols := s.MatrixColumns()
	row := make([]float64, len(cols))
	for i, col := range cols {
		if col.Scope == ScopeContig {
			row[i] = valueOrNaN(c.Values, col.Name)
			continue
		}
		var acc Accum
		for _, g := range c.Genes {
			if v := valueOrNaN(g.Values, col.Name); !math.IsNaN(v) {
				acc.Add(v)
			}
		}
		row[i] = meanOrNaN(acc.Summary())
	}
	return row
}

func valueOrNaN(v Values, name string) float64 {
	if x, ok := v[name]; ok {
		return x
	}
	return math.NaN()
}

func covAt(covs []Summary, set int) Summary {
	if set-1 < len(covs) {
		return covs[set-1]
	}
	return Summary{}
}

func meanOrNaN(s Summary) float64 {
	if !s.Defined() {
		return math.NaN()
	}
	return s.Mean
}

func setName(base string, set int) string {
	return fmt.Sprintf("%s_%d", base, set)
}

func boolVal(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// pearson computes the Pearson correlation of two aligned vectors, NaN
// when fewer than two points exist or either vector has no spread.
func pearson(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return math.NaN()
	}
	if !hasSpread(x) || !hasSpread(y) {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

func hasSpread(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return true
		}
	}
	return false
}
