package descriptors

import "math"

// Accum accumulates a running mean and variance with Welford's method,
// so per-base coverage can be summarized in one pass without holding
// position vectors in memory.
type Accum struct {
	n    int64
	mean float64
	m2   float64
}

// Add folds one observation into the accumulator.
func (a *Accum) Add(x float64) {
	a.n++
	d := x - a.mean
	a.mean += d / float64(a.n)
	a.m2 += d * (x - a.mean)
}

// Merge folds another accumulator into this one. Used to pool per-contig
// coverage into assembly-wide statistics.
func (a *Accum) Merge(b Accum) {
	if b.n == 0 {
		return
	}
	if a.n == 0 {
		*a = b
		return
	}
	n := a.n + b.n
	d := b.mean - a.mean
	a.m2 += b.m2 + d*d*float64(a.n)*float64(b.n)/float64(n)
	a.mean += d * float64(b.n) / float64(n)
	a.n = n
}

// Summary freezes the accumulated state.
func (a Accum) Summary() Summary {
	return Summary{N: a.n, Mean: a.mean, m2: a.m2}
}

// Summary holds the moments of one value series. The zero value is an
// empty, undefined summary.
type Summary struct {
	N    int64
	Mean float64
	m2   float64
}

// Defined reports whether the series had any observations.
func (s Summary) Defined() bool { return s.N > 0 }

// SD returns the sample standard deviation, or NaN for series shorter
// than two observations.
func (s Summary) SD() float64 {
	if s.N < 2 {
		return math.NaN()
	}
	return math.Sqrt(s.m2 / float64(s.N-1))
}

// NewSummary rebuilds a Summary from stored moments, the inverse of
// reading Mean and SD. Needed when summaries cross a serialization
// boundary.
func NewSummary(n int64, mean, sd float64) Summary {
	s := Summary{N: n, Mean: mean}
	if n > 1 && !math.IsNaN(sd) {
		s.m2 = sd * sd * float64(n-1)
	}
	return s
}

// Accum rebuilds an accumulator from a summary so pooling can continue.
func (s Summary) Accum() Accum {
	return Accum{n: s.N, mean: s.Mean, m2: s.m2}
}

// zdev returns (x - ref.Mean) / ref.SD, the deviation of x from a
// reference series in SD units. NaN when x is NaN or the reference has
// no spread.
func zdev(x float64, ref Summary) float64 {
	sd := ref.SD()
	if math.IsNaN(x) || math.IsNaN(sd) || sd == 0 {
		return math.NaN()
	}
	return (x - ref.Mean) / sd
}

// defined filters NaN sentinels out of a value slice.
func defined(xs []float64) []float64 {
	res := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			res = append(res, x)
		}
	}
	return res
}

// summarize folds a slice into a Summary, skipping NaN sentinels.
func summarize(xs []float64) Summary {
	var a Accum
	for _, x := range xs {
		if !math.IsNaN(x) {
			a.Add(x)
		}
	}
	return a.Summary()
}
