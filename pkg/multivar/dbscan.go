package multivar

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const unclassified = -2

// dbscan assigns density-based cluster indexes over the score matrix.
// Points in sparse regions get index -1 (noise). Iteration order is
// fixed by row index, so the labeling is deterministic.
func dbscan(x *mat.Dense, eps float64, minPts int) []int {
	n, _ := x.Dims()
	if eps <= 0 {
		eps = autoEpsilon(x, minPts)
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = unclassified
	}

	cluster := -1
	for i := 0; i < n; i++ {
		if labels[i] != unclassified {
			continue
		}

		neigh := regionQuery(x, i, eps)
		if len(neigh) < minPts {
			labels[i] = -1
			continue
		}

		cluster++
		labels[i] = cluster

		// expand the cluster over the growing seed list
		queue := append([]int(nil), neigh...)
		for qi := 0; qi < len(queue); qi++ {
			j := queue[qi]
			if labels[j] == -1 {
				// border point reached from a core point
				labels[j] = cluster
			}
			if labels[j] != unclassified {
				continue
			}
			labels[j] = cluster

			jn := regionQuery(x, j, eps)
			if len(jn) >= minPts {
				queue = append(queue, jn...)
			}
		}
	}

	return labels
}

// regionQuery returns the indexes within eps of point i, including i
// itself, in ascending order.
func regionQuery(x *mat.Dense, i int, eps float64) []int {
	n, _ := x.Dims()
	var res []int
	for j := 0; j < n; j++ {
		if euclidean(x, i, j) <= eps {
			res = append(res, j)
		}
	}
	return res
}

func euclidean(x *mat.Dense, i, j int) float64 {
	a, b := x.RawRowView(i), x.RawRowView(j)
	var sum float64
	for k := range a {
		d := a[k] - b[k]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// autoEpsilon picks the neighborhood radius from the data: the 95th
// percentile of each point's distance to its minPts-th nearest
// neighbor. This follows the usual k-distance heuristic without
// requiring a manual elbow read.
func autoEpsilon(x *mat.Dense, minPts int) float64 {
	n, _ := x.Dims()
	if n < 2 {
		return 0
	}

	k := minPts
	if k > n-1 {
		k = n - 1
	}

	kth := make([]float64, n)
	dists := make([]float64, 0, n-1)
	for i := 0; i < n; i++ {
		dists = dists[:0]
		for j := 0; j < n; j++ {
			if i != j {
				dists = append(dists, euclidean(x, i, j))
			}
		}
		sort.Float64s(dists)
		kth[i] = dists[k-1]
	}

	sort.Float64s(kth)
	return stat.Quantile(0.95, stat.Empirical, kth, nil)
}
