package deseq

import (
	"fmt"
	"math"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/counts"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/stats"
)

// EstimateSizeFactors computes per-sample normalization factors with
// the median-of-ratios method: each sample's factor is the median ratio
// of its counts to the per-gene geometric mean across samples, over the
// genes with a positive count in every sample. When no such gene exists
// the factors fall back to relative library sizes scaled to geometric
// mean one. Factors are always strictly positive.
func EstimateSizeFactors(m *counts.Matrix) ([]float64, error) {
	nGenes, nSamples := m.NGenes(), m.NSamples()
	if nSamples == 0 {
		return nil, fmt.Errorf("count matrix has no samples")
	}

	var usable []int
	var logGeoMean []float64
	for g := 0; g < nGenes; g++ {
		sum := 0.0
		allPositive := true
		for j := 0; j < nSamples; j++ {
			v := m.At(g, j)
			if v <= 0 {
				allPositive = false
				break
			}
			sum += math.Log(v)
		}
		if allPositive {
			usable = append(usable, g)
			logGeoMean = append(logGeoMean, sum/float64(nSamples))
		}
	}

	if len(usable) == 0 {
		return librarySizeFactors(m)
	}

	factors := make([]float64, nSamples)
	logRatios := make([]float64, len(usable))
	for j := 0; j < nSamples; j++ {
		for i, g := range usable {
			logRatios[i] = math.Log(m.At(g, j)) - logGeoMean[i]
		}
		factors[j] = math.Exp(stats.Median(logRatios))
	}
	return factors, nil
}

// librarySizeFactors scales total library sizes so their geometric mean
// is one. Used when no gene has positive counts in all samples.
func librarySizeFactors(m *counts.Matrix) ([]float64, error) {
	sums := m.ColumnSums()
	logSum := 0.0
	for j, s := range sums {
		if s <= 0 {
			return nil, fmt.Errorf("sample %q has zero total counts", m.Samples[j])
		}
		logSum += math.Log(s)
	}
	geoMean := math.Exp(logSum / float64(len(sums)))

	factors := make([]float64, len(sums))
	for j, s := range sums {
		factors[j] = s / geoMean
	}
	return factors, nil
}

// normalizedCounts divides each column of the matrix by its size
// factor. The result is no longer integer-valued.
func normalizedCounts(m *counts.Matrix, sizeFactors []float64) [][]float64 {
	out := make([][]float64, m.NGenes())
	for g := range out {
		row := m.Row(g)
		for j := range row {
			row[j] /= sizeFactors[j]
		}
		out[g] = row
	}
	return out
}
