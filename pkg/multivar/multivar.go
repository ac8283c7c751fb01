// Package multivar is the multivariate stage of the screening pipeline:
// it standardizes the contig descriptor matrix, projects it onto
// principal components and clusters the projection, handing every
// contig a cluster label and an outlier flag.
//
// The stage is deterministic: the decomposition is SVD-based and every
// stochastic initialization runs off the configured seed, so identical
// input and configuration reproduce identical scores and labels.
package multivar

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrInsufficientData reports a descriptor matrix too degenerate to
// analyze: fewer than two contigs, or no column with defined, varying
// values. The caller still owns a complete descriptor table when this
// happens; only the cluster assignment is skipped.
var ErrInsufficientData = errors.New("insufficient data for analysis")

// Method selects the clustering algorithm.
type Method int

const (
	// MethodDBSCAN clusters by density and marks sparse points as noise.
	MethodDBSCAN Method = iota
	// MethodGMM fits a Gaussian mixture by expectation maximization and
	// marks low-density members of each component.
	MethodGMM
)

func (m Method) String() string {
	if m == MethodGMM {
		return "gmm"
	}
	return "dbscan"
}

// ParseMethod converts a method name from a run document.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "dbscan":
		return MethodDBSCAN, nil
	case "gmm":
		return MethodGMM, nil
	}
	return 0, fmt.Errorf("unknown clustering method %q", s)
}

// Default tuning constants.
const (
	DefaultVarianceTarget  = 0.90
	DefaultMinPts          = 5
	DefaultMaxComponents   = 5
	DefaultDensityQuantile = 0.05
	DefaultSeed            = 42
)

// Options tunes the analysis. Zero fields fall back to the package
// defaults.
type Options struct {
	Method Method

	// VarianceTarget is the cumulative explained-variance fraction the
	// retained principal components must reach.
	VarianceTarget float64

	// Epsilon is the DBSCAN neighborhood radius in component space.
	// Zero or negative selects it automatically from the distribution
	// of MinPts-th neighbor distances.
	Epsilon float64

	// MinPts is the DBSCAN core-point threshold, the neighborhood
	// including the point itself.
	MinPts int

	// MaxComponents bounds the BIC search over mixture sizes in GMM
	// clustering.
	MaxComponents int

	// DensityQuantile is the per-component mixture-density quantile
	// below which a GMM member is flagged as an outlier.
	DensityQuantile float64

	// Seed drives every stochastic initialization.
	Seed int64
}

func (o Options) withDefaults() Options {
	if o.VarianceTarget <= 0 || o.VarianceTarget > 1 {
		o.VarianceTarget = DefaultVarianceTarget
	}
	if o.MinPts <= 0 {
		o.MinPts = DefaultMinPts
	}
	if o.MaxComponents <= 0 {
		o.MaxComponents = DefaultMaxComponents
	}
	if o.DensityQuantile <= 0 || o.DensityQuantile >= 1 {
		o.DensityQuantile = DefaultDensityQuantile
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	return o
}

// Result is the analysis outcome, aligned with the input row order.
type Result struct {
	// Columns are the descriptor columns that entered the analysis;
	// Excluded lists the ones dropped for having no defined or varying
	// values.
	Columns  []string
	Excluded []string

	// Components is the number of retained principal components,
	// Explained their individual explained-variance fractions, and
	// Scores the projected coordinates, one row per contig.
	Components int
	Explained  []float64
	Scores     [][]float64

	// Clusters holds the raw cluster index per contig, -1 for DBSCAN
	// noise. Labels names the clusters for display: the cluster
	// covering the largest summed contig length is "main", the rest
	// are "group_2", "group_3", … by descending length, noise is
	// "noise". Outlier flags every contig outside the main cluster,
	// plus low-density mixture members.
	Clusters []int
	Labels   []string
	Outlier  []bool
}

// Analyze runs standardization, PCA and clustering over the descriptor
// matrix. rows is contig-ordered, columns names each matrix column, and
// lengths carries the contig lengths used to elect the main cluster.
func Analyze(
	rows [][]float64,
	columns []string,
	lengths []float64,
	opt Options,
) (*Result, error) {
	opt = opt.withDefaults()

	n := len(rows)
	if len(lengths) != n {
		return nil, fmt.Errorf("got %d rows but %d contig lengths", n, len(lengths))
	}

	keep, excluded := usableColumns(rows, columns)
	if n < 2 || len(keep) == 0 {
		return nil, fmt.Errorf(
			"%w: %d contigs, %d usable descriptors",
			ErrInsufficientData, n, len(keep),
		)
	}

	x := standardize(rows, keep)
	d := len(keep)

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, fmt.Errorf("%w: principal component decomposition failed",
			ErrInsufficientData)
	}

	vars := pc.VarsTo(nil)
	k := selectComponents(vars, opt.VarianceTarget, n, d)

	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	var proj mat.Dense
	proj.Mul(x, vecs.Slice(0, d, 0, k))

	total := floats.Sum(vars)
	explained := make([]float64, k)
	for i := 0; i < k; i++ {
		explained[i] = vars[i] / total
	}

	res := &Result{
		Excluded:   excluded,
		Components: k,
		Explained:  explained,
		Scores:     denseRows(&proj),
	}
	for _, c := range keep {
		res.Columns = append(res.Columns, columns[c])
	}

	var low []bool
	switch opt.Method {
	case MethodGMM:
		res.Clusters, low = fitGMM(&proj, opt)
	default:
		res.Clusters = dbscan(&proj, opt.Epsilon, opt.MinPts)
		low = make([]bool, n)
	}

	res.Labels, res.Outlier = labelClusters(res.Clusters, low, lengths)
	return res, nil
}

// usableColumns keeps columns that have at least one defined value and
// some spread; constant and all-NaN columns cannot survive
// standardization and are reported back instead of dividing by zero.
func usableColumns(rows [][]float64, columns []string) (keep []int, excluded []string) {
	for c := range columns {
		var (
			first   float64
			seen    bool
			spread  bool
			defined int
		)
		for _, row := range rows {
			v := row[c]
			if math.IsNaN(v) {
				continue
			}
			defined++
			if !seen {
				first, seen = v, true
			} else if v != first {
				spread = true
			}
		}
		if defined > 0 && spread {
			keep = append(keep, c)
		} else {
			excluded = append(excluded, columns[c])
		}
	}
	return keep, excluded
}

// standardize centers and scales the kept columns to zero mean and unit
// variance. NaN sentinels impute to the column mean, landing on zero
// after centering.
func standardize(rows [][]float64, keep []int) *mat.Dense {
	n, d := len(rows), len(keep)
	x := mat.NewDense(n, d, nil)

	vals := make([]float64, 0, n)
	for j, c := range keep {
		vals = vals[:0]
		for _, row := range rows {
			if v := row[c]; !math.IsNaN(v) {
				vals = append(vals, v)
			}
		}
		mean := stat.Mean(vals, nil)
		sd := stat.StdDev(vals, nil)
		if math.IsNaN(sd) || sd == 0 {
			sd = 1
		}

		for i, row := range rows {
			v := row[c]
			if math.IsNaN(v) {
				v = mean
			}
			x.Set(i, j, (v-mean)/sd)
		}
	}
	return x
}

// selectComponents returns the smallest component count reaching the
// variance target, at least two when the bound allows, never more than
// min(rows-1, cols).
func selectComponents(vars []float64, target float64, rows, cols int) int {
	bound := rows - 1
	if cols < bound {
		bound = cols
	}
	if bound < 1 {
		bound = 1
	}
	if bound > len(vars) {
		bound = len(vars)
	}

	total := floats.Sum(vars)
	if total == 0 {
		return 1
	}

	k := bound
	var cum float64
	for i := 0; i < bound; i++ {
		cum += vars[i] / total
		if cum >= target {
			k = i + 1
			break
		}
	}

	if k < 2 && bound >= 2 {
		k = 2
	}
	return k
}

// labelClusters names clusters by descending summed contig length and
// derives the outlier flags.
func labelClusters(
	assign []int,
	lowDensity []bool,
	lengths []float64,
) (labels []string, outlier []bool) {
	totals := make(map[int]float64)
	for i, c := range assign {
		if c >= 0 {
			totals[c] += lengths[i]
		}
	}

	ids := make([]int, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if totals[ids[i]] != totals[ids[j]] {
			return totals[ids[i]] > totals[ids[j]]
		}
		return ids[i] < ids[j]
	})

	names := make(map[int]string, len(ids))
	for rank, id := range ids {
		if rank == 0 {
			names[id] = "main"
			continue
		}
		names[id] = fmt.Sprintf("group_%d", rank+1)
	}

	labels = make([]string, len(assign))
	outlier = make([]bool, len(assign))
	for i, c := range assign {
		if c < 0 {
			labels[i] = "noise"
			outlier[i] = true
			continue
		}
		labels[i] = names[c]
		outlier[i] = labels[i] != "main" || lowDensity[i]
	}
	return labels, outlier
}

func denseRows(m *mat.Dense) [][]float64 {
	n, d := m.Dims()
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = make([]float64, d)
		copy(rows[i], m.RawRowView(i))
	}
	return rows
}
