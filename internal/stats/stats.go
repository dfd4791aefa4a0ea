// Package stats provides shared statistical helpers used across the pipeline.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// AdjustBH applies the Benjamini-Hochberg procedure to raw p-values and
// returns adjusted p-values in the input order. NaN entries are excluded
// from the correction and stay NaN in the output. Adjusted values are
// always >= the raw p-value and never exceed 1.
func AdjustBH(pvalues []float64) []float64 {
	adjusted := make([]float64, len(pvalues))

	// Collect indices of testable p-values.
	idx := make([]int, 0, len(pvalues))
	for i, p := range pvalues {
		if math.IsNaN(p) {
			adjusted[i] = math.NaN()
			continue
		}
		idx = append(idx, i)
	}

	m := len(idx)
	if m == 0 {
		return adjusted
	}

	// Sort testable indices by ascending p-value, stable on ties.
	sort.SliceStable(idx, func(a, b int) bool {
		return pvalues[idx[a]] < pvalues[idx[b]]
	})

	// Walk from the largest p-value down, keeping the running minimum of
	// p * m/rank so the adjusted values are monotone in the raw ordering.
	running := math.Inf(1)
	for rank := m; rank >= 1; rank-- {
		i := idx[rank-1]
		v := pvalues[i] * float64(m) / float64(rank)
		if v < running {
			running = v
		}
		adjusted[i] = math.Min(running, 1)
	}

	return adjusted
}

// LogChoose returns log(n choose k) computed via the log-gamma function.
// Returns -Inf for invalid arguments (k < 0 or k > n).
func LogChoose(n, k int) float64 {
	if k < 0 || k > n {
		return math.Inf(-1)
	}
	if k == 0 || k == n {
		return 0
	}
	ln1, _ := math.Lgamma(float64(n + 1))
	lk1, _ := math.Lgamma(float64(k + 1))
	lnk1, _ := math.Lgamma(float64(n - k + 1))
	return ln1 - lk1 - lnk1
}

// HypergeomUpperTail returns P[X >= k] for X ~ Hypergeometric(N, K, n):
// the probability of drawing at least k marked items when n items are
// drawn without replacement from a population of N containing K marked.
// This is the one-sided Fisher-type test used for over-representation.
func HypergeomUpperTail(k, K, n, N int) float64 {
	if k <= 0 {
		return 1
	}
	upper := K
	if n < upper {
		upper = n
	}
	if k > upper {
		return 0
	}

	denom := LogChoose(N, n)
	var p float64
	for i := k; i <= upper; i++ {
		if n-i > N-K {
			continue
		}
		p += math.Exp(LogChoose(K, i) + LogChoose(N-K, n-i) - denom)
	}
	if p > 1 {
		p = 1
	}
	return p
}

// Quantile returns the empirical q-quantile of xs. The input is copied
// and sorted, so callers may pass unsorted data.
func Quantile(q float64, xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	return stat.Quantile(q, stat.Empirical, sorted, nil)
}

// Median returns the median of xs without modifying the input. Even
// lengths average the two middle values.
func Median(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
