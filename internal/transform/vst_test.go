package transform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/counts"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/deseq"
)

func TestVSTValue_Monotone(t *testing.T) {
	prev := math.Inf(-1)
	for q := 0.0; q <= 100; q++ {
		v := vstValue(q, 0.05, 2)
		assert.Greater(t, v, prev, "q=%v", q)
		prev = v
	}
}

func TestVSTValue_ApproachesLog2(t *testing.T) {
	// For large counts the transform converges to plain log2.
	for _, q := range []float64{1e4, 1e5, 1e6} {
		assert.InDelta(t, math.Log2(q), vstValue(q, 0.05, 2), 0.05, "q=%v", q)
	}
}

func TestVSTValue_ZeroCount(t *testing.T) {
	// vst(0) = log2((1+extraPois)/(4*asymptDisp)).
	got := vstValue(0, 0.05, 2)
	assert.InDelta(t, math.Log2(3/0.2), got, 1e-12)
}

func TestVST(t *testing.T) {
	m, err := counts.NewMatrix(
		[]string{"g1", "g2"},
		[]string{"s1", "s2"},
		[]float64{
			0, 100,
			1000, 1000,
		})
	require.NoError(t, err)

	trend := deseq.TrendCoefficients{AsymptDisp: 0.05, ExtraPois: 2}
	out, err := VST(m, []float64{1, 2}, trend)
	require.NoError(t, err)

	assert.Equal(t, []string{"g1", "g2"}, out.Genes)
	assert.InDelta(t, vstValue(0, 0.05, 2), out.At(0, 0), 1e-12)
	// Size factor 2 halves the normalized count.
	assert.InDelta(t, vstValue(50, 0.05, 2), out.At(0, 1), 1e-12)
	assert.InDelta(t, vstValue(500, 0.05, 2), out.At(1, 1), 1e-12)
}

func TestVST_Errors(t *testing.T) {
	m, err := counts.NewMatrix([]string{"g1"}, []string{"s1", "s2"}, []float64{1, 2})
	require.NoError(t, err)

	_, err = VST(m, []float64{1}, deseq.TrendCoefficients{AsymptDisp: 0.05})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size factors")

	_, err = VST(m, []float64{1, 1}, deseq.TrendCoefficients{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "asymptotic dispersion")
}
