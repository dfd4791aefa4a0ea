package deseq

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/counts"
)

func mustMatrix(t *testing.T, genes, samples []string, data []float64) *counts.Matrix {
	t.Helper()
	m, err := counts.NewMatrix(genes, samples, data)
	require.NoError(t, err)
	return m
}

func TestEstimateSizeFactors_MedianOfRatios(t *testing.T) {
	// Sample s2 is an exact double-depth copy of s1, so the factors
	// must be (1/sqrt(2), sqrt(2)): same composition, double depth.
	m := mustMatrix(t,
		[]string{"g1", "g2", "g3"},
		[]string{"s1", "s2"},
		[]float64{
			10, 20,
			100, 200,
			5, 10,
		})

	factors, err := EstimateSizeFactors(m)
	require.NoError(t, err)
	require.Len(t, factors, 2)

	assert.InDelta(t, 1/math.Sqrt2, factors[0], 1e-9)
	assert.InDelta(t, math.Sqrt2, factors[1], 1e-9)
	assert.InDelta(t, 2, factors[1]/factors[0], 1e-9)
}

func TestEstimateSizeFactors_StrictlyPositive(t *testing.T) {
	m := mustMatrix(t,
		[]string{"g1", "g2", "g3", "g4"},
		[]string{"s1", "s2", "s3"},
		[]float64{
			10, 15, 8,
			100, 90, 120,
			3, 5, 2,
			50, 55, 45,
		})

	factors, err := EstimateSizeFactors(m)
	require.NoError(t, err)
	for i, f := range factors {
		assert.Greater(t, f, 0.0, "factor %d", i)
		assert.False(t, math.IsInf(f, 0), "factor %d", i)
	}
}

func TestEstimateSizeFactors_LibrarySizeFallback(t *testing.T) {
	// Every gene has a zero somewhere, so the geometric-mean reference
	// is empty and factors fall back to scaled library sizes.
	m := mustMatrix(t,
		[]string{"g1", "g2"},
		[]string{"s1", "s2"},
		[]float64{
			10, 0,
			0, 10,
		})

	factors, err := EstimateSizeFactors(m)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, factors[0], 1e-9)
	assert.InDelta(t, 1.0, factors[1], 1e-9)
}

func TestEstimateSizeFactors_FallbackScalesToGeometricMeanOne(t *testing.T) {
	m := mustMatrix(t,
		[]string{"g1", "g2"},
		[]string{"s1", "s2"},
		[]float64{
			40, 0,
			0, 10,
		})

	factors, err := EstimateSizeFactors(m)
	require.NoError(t, err)

	// Library sizes 40 and 10, geometric mean 20.
	assert.InDelta(t, 2.0, factors[0], 1e-9)
	assert.InDelta(t, 0.5, factors[1], 1e-9)
	assert.InDelta(t, 1.0, math.Sqrt(factors[0]*factors[1]), 1e-9)
}

func TestEstimateSizeFactors_ZeroTotalSample(t *testing.T) {
	m := mustMatrix(t,
		[]string{"g1", "g2"},
		[]string{"s1", "s2"},
		[]float64{
			10, 0,
			20, 0,
		})

	_, err := EstimateSizeFactors(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zero total counts")
}

func TestNormalizedCounts(t *testing.T) {
	m := mustMatrix(t,
		[]string{"g1"},
		[]string{"s1", "s2"},
		[]float64{10, 20})

	norm := normalizedCounts(m, []float64{0.5, 2})
	assert.Equal(t, []float64{20, 10}, norm[0])

	// The matrix itself is untouched.
	assert.Equal(t, 10.0, m.At(0, 0))
	assert.Equal(t, 20.0, m.At(0, 1))
}
