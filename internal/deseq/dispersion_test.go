package deseq

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrigamma(t *testing.T) {
	tests := []struct {
		x    float64
		want float64
	}{
		{0.5, math.Pi * math.Pi / 2},
		{1, math.Pi * math.Pi / 6},
		{2, math.Pi*math.Pi/6 - 1},
		{10, 0.10516633568169},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, trigamma(tt.x), 1e-7, "trigamma(%v)", tt.x)
	}
	assert.True(t, math.IsNaN(trigamma(0)))
	assert.True(t, math.IsNaN(trigamma(-1)))
}

func TestGoldenMax(t *testing.T) {
	got := goldenMax(func(x float64) float64 { return -(x - 2) * (x - 2) }, 0, 5)
	assert.InDelta(t, 2, got, 1e-6)

	// Boundary maximum.
	got = goldenMax(func(x float64) float64 { return -x }, 1, 3)
	assert.InDelta(t, 1, got, 1e-6)
}

func TestTrendCoefficientsAt(t *testing.T) {
	tc := TrendCoefficients{AsymptDisp: 0.05, ExtraPois: 2}

	assert.InDelta(t, 0.25, tc.At(10), 1e-12)
	assert.InDelta(t, 2.05, tc.At(1), 1e-12)
	assert.Equal(t, 0.05, tc.At(0))
}

func TestFitDispersionTrend_RecoversParameters(t *testing.T) {
	// Gene-wise dispersions placed exactly on a(q) = 0.05 + 2/q.
	var baseMeans, genewise []float64
	for q := 1.0; q <= 512; q *= 2 {
		baseMeans = append(baseMeans, q)
		genewise = append(genewise, 0.05+2/q)
	}

	tc := fitDispersionTrend(baseMeans, genewise)
	require.False(t, tc.Flat)
	assert.InDelta(t, 0.05, tc.AsymptDisp, 1e-3)
	assert.InDelta(t, 2, tc.ExtraPois, 1e-2)
}

func TestFitDispersionTrend_FlatFallback(t *testing.T) {
	// Too few informative genes for a parametric fit.
	tc := fitDispersionTrend([]float64{10, 20}, []float64{0.1, 0.3})
	require.True(t, tc.Flat)
	assert.InDelta(t, 0.2, tc.AsymptDisp, 1e-9)
	assert.Equal(t, 0.0, tc.ExtraPois)
}

func TestFitDispersionTrend_IgnoresBoundaryEstimates(t *testing.T) {
	// Genes stuck at the lower dispersion bound carry no trend signal.
	baseMeans := []float64{10, 20, 40, 80}
	genewise := []float64{dispMin, dispMin, dispMin, dispMin}

	tc := fitDispersionTrend(baseMeans, genewise)
	require.True(t, tc.Flat)
	assert.Equal(t, 0.1, tc.AsymptDisp)
}

func TestEstimateGenewiseDispersion_NearPoisson(t *testing.T) {
	y := []float64{50, 51, 49, 50, 52, 48}
	alpha, mu, err := estimateGenewiseDispersion(y, unitFactors(6), onesDesign(6))
	require.NoError(t, err)
	require.Len(t, mu, 6)

	// Variance below the mean: the estimate collapses to the boundary.
	assert.Less(t, alpha, 0.01)
	assert.GreaterOrEqual(t, alpha, dispMin*0.99)
	assert.InDelta(t, 50, mu[0], 1)
}

func TestEstimateGenewiseDispersion_Overdispersed(t *testing.T) {
	y := []float64{10, 200, 15, 300, 25, 180}
	alpha, _, err := estimateGenewiseDispersion(y, unitFactors(6), onesDesign(6))
	require.NoError(t, err)

	assert.Greater(t, alpha, 0.1)
	assert.LessOrEqual(t, alpha, dispMaxFor(6))
}

func TestDispersionPriorVariance(t *testing.T) {
	// Symmetric residuals: median 0, MAD-based sd 1.4826.
	logResiduals := []float64{-2, -1, 0, 1, 2}
	priorVar, residSD := dispersionPriorVariance(logResiduals, 6, 2)

	assert.InDelta(t, 1.4826, residSD, 1e-9)
	// 1.4826^2 minus trigamma((6-2)/2).
	assert.InDelta(t, 1.4826*1.4826-(math.Pi*math.Pi/6-1), priorVar, 1e-6)
}

func TestDispersionPriorVariance_Floor(t *testing.T) {
	// Tight residuals: sampling noise explains all the spread, so the
	// prior width sits at the floor.
	logResiduals := []float64{-0.05, 0, 0.02, 0.01, -0.01}
	priorVar, _ := dispersionPriorVariance(logResiduals, 6, 2)
	assert.Equal(t, priorVarFloor, priorVar)

	priorVar, residSD := dispersionPriorVariance(nil, 6, 2)
	assert.Equal(t, priorVarFloor, priorVar)
	assert.InDelta(t, math.Sqrt(priorVarFloor), residSD, 1e-12)
}

func TestShrinkDispersionMAP_Outlier(t *testing.T) {
	// Gene-wise estimate far above the trend is kept as is.
	y := []float64{10, 200, 15, 300, 25, 180}
	_, mu, err := estimateGenewiseDispersion(y, unitFactors(6), onesDesign(6))
	require.NoError(t, err)

	genewise := 5.0
	final, outlier := shrinkDispersionMAP(y, mu, onesDesign(6), genewise, 0.1, 0.25, 0.5, 6)
	assert.True(t, outlier)
	assert.Equal(t, genewise, final)
}

func TestShrinkDispersionMAP_ShrinksTowardTrend(t *testing.T) {
	y := []float64{50, 51, 49, 50, 52, 48}
	genewise, mu, err := estimateGenewiseDispersion(y, unitFactors(6), onesDesign(6))
	require.NoError(t, err)

	trend := 0.1
	final, outlier := shrinkDispersionMAP(y, mu, onesDesign(6), genewise, trend, priorVarFloor, 0.5, 6)
	require.False(t, outlier)

	// The prior pulls the boundary estimate up toward the trend.
	assert.Greater(t, final, genewise)
	assert.Less(t, final, trend)
}
