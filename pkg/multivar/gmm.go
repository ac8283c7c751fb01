package multivar

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	emIterations  = 100
	emTolerance   = 1e-6
	varianceFloor = 1e-6
)

// mixture is a diagonal-covariance Gaussian mixture model.
type mixture struct {
	k, d     int
	weight   []float64
	mean     [][]float64
	variance [][]float64
}

// fitGMM picks the mixture size with the lowest BIC over 1..MaxComponents,
// fitting each candidate by EM from a seeded k-means++ start. It returns
// the component index per point and flags members whose mixture density
// falls under the per-component density quantile.
func fitGMM(x *mat.Dense, opt Options) (assign []int, low []bool) {
	n, _ := x.Dims()
	rng := rand.New(rand.NewSource(opt.Seed))

	maxK := opt.MaxComponents
	if maxK > n {
		maxK = n
	}

	var (
		best    *mixture
		bestBIC = math.Inf(1)
	)
	for k := 1; k <= maxK; k++ {
		m, ll := emFit(x, k, rng)
		params := float64(k*2*m.d + k - 1)
		bic := -2*ll + params*math.Log(float64(n))
		if bic < bestBIC {
			bestBIC = bic
			best = m
		}
	}

	assign = make([]int, n)
	logDens := make([]float64, n)
	lp := make([]float64, best.k)
	for i := 0; i < n; i++ {
		row := x.RawRowView(i)
		for j := 0; j < best.k; j++ {
			lp[j] = math.Log(best.weight[j]) + best.logNormal(j, row)
		}
		assign[i] = argmax(lp)
		logDens[i] = floats.LogSumExp(lp)
	}

	low = make([]bool, n)
	for j := 0; j < best.k; j++ {
		var (
			members []int
			dens    []float64
		)
		for i, a := range assign {
			if a == j {
				members = append(members, i)
				dens = append(dens, logDens[i])
			}
		}
		if len(dens) < 2 {
			continue
		}
		sort.Float64s(dens)
		cut := stat.Quantile(opt.DensityQuantile, stat.Empirical, dens, nil)
		for _, i := range members {
			if logDens[i] < cut {
				low[i] = true
			}
		}
	}

	return assign, low
}

// emFit runs expectation maximization for a k-component mixture and
// returns the fitted model with its final log likelihood.
func emFit(x *mat.Dense, k int, rng *rand.Rand) (*mixture, float64) {
	n, d := x.Dims()

	globalVar := make([]float64, d)
	col := make([]float64, n)
	for c := 0; c < d; c++ {
		mat.Col(col, c, x)
		v := stat.Variance(col, nil)
		if math.IsNaN(v) || v < varianceFloor {
			v = varianceFloor
		}
		globalVar[c] = v
	}

	m := &mixture{
		k:        k,
		d:        d,
		weight:   make([]float64, k),
		mean:     seedCenters(x, k, rng),
		variance: make([][]float64, k),
	}
	for j := 0; j < k; j++ {
		m.weight[j] = 1 / float64(k)
		m.variance[j] = append([]float64(nil), globalVar...)
	}

	resp := make([][]float64, n)
	for i := range resp {
		resp[i] = make([]float64, k)
	}

	lp := make([]float64, k)
	prevLL := math.Inf(-1)
	var ll float64

	for iter := 0; iter < emIterations; iter++ {
		// E step
		ll = 0
		for i := 0; i < n; i++ {
			row := x.RawRowView(i)
			for j := 0; j < k; j++ {
				lp[j] = math.Log(m.weight[j]) + m.logNormal(j, row)
			}
			tot := floats.LogSumExp(lp)
			ll += tot
			for j := 0; j < k; j++ {
				resp[i][j] = math.Exp(lp[j] - tot)
			}
		}

		if iter > 0 && math.Abs(ll-prevLL) < emTolerance*(math.Abs(ll)+1) {
			break
		}
		prevLL = ll

		// M step
		for j := 0; j < k; j++ {
			var wsum float64
			mean := make([]float64, d)
			for i := 0; i < n; i++ {
				w := resp[i][j]
				wsum += w
				row := x.RawRowView(i)
				for c := 0; c < d; c++ {
					mean[c] += w * row[c]
				}
			}
			if wsum == 0 {
				// component lost all responsibility, keep its parameters
				continue
			}
			for c := range mean {
				mean[c] /= wsum
			}

			vr := make([]float64, d)
			for i := 0; i < n; i++ {
				w := resp[i][j]
				row := x.RawRowView(i)
				for c := 0; c < d; c++ {
					dd := row[c] - mean[c]
					vr[c] += w * dd * dd
				}
			}
			for c := range vr {
				vr[c] /= wsum
				if vr[c] < varianceFloor {
					vr[c] = varianceFloor
				}
			}

			m.weight[j] = wsum / float64(n)
			m.mean[j] = mean
			m.variance[j] = vr
		}
	}

	return m, ll
}

// seedCenters draws k initial means with the k-means++ scheme: the
// first uniformly, later ones proportional to squared distance from the
// closest chosen center.
func seedCenters(x *mat.Dense, k int, rng *rand.Rand) [][]float64 {
	n, _ := x.Dims()

	centers := make([][]float64, 0, k)
	centers = append(centers, cloneRow(x.RawRowView(rng.Intn(n))))

	minSq := make([]float64, n)
	for i := range minSq {
		minSq[i] = sqDist(x.RawRowView(i), centers[0])
	}

	for len(centers) < k {
		total := floats.Sum(minSq)
		var idx int
		if total == 0 {
			idx = rng.Intn(n)
		} else {
			r := rng.Float64() * total
			var cum float64
			idx = n - 1
			for i, v := range minSq {
				cum += v
				if r < cum {
					idx = i
					break
				}
			}
		}

		c := cloneRow(x.RawRowView(idx))
		centers = append(centers, c)
		for i := range minSq {
			if sq := sqDist(x.RawRowView(i), c); sq < minSq[i] {
				minSq[i] = sq
			}
		}
	}

	return centers
}

func (m *mixture) logNormal(j int, row []float64) float64 {
	var sum float64
	for c, v := range row {
		vr := m.variance[j][c]
		d := v - m.mean[j][c]
		sum += math.Log(2*math.Pi*vr) + d*d/vr
	}
	return -0.5 * sum
}

func argmax(xs []float64) int {
	best := 0
	for i, x := range xs[1:] {
		if x > xs[best] {
			best = i + 1
		}
	}
	return best
}

func cloneRow(row []float64) []float64 {
	return append([]float64(nil), row...)
}

func sqDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
