package transform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// conditionSplitMatrix has five strongly condition-driven genes and two
// low-variance oscillating genes.
func conditionSplitMatrix() *Matrix {
	samples := []string{"c1", "c2", "c3", "t1", "t2", "t3"}
	genes := []string{"sig1", "sig2", "sig3", "sig4", "sig5", "osc1", "osc2"}
	rows := [][]float64{
		{10, 10, 10, 15, 15, 15},
		{20, 20, 20, 25, 25, 25},
		{5, 5, 5, 10, 10, 10},
		{8, 8, 8, 13, 13, 13},
		{12, 12, 12, 17, 17, 17},
		{0.1, -0.1, 0.1, -0.1, 0.1, -0.1},
		{-0.2, 0.2, -0.2, 0.2, -0.2, 0.2},
	}

	m := NewMatrix(genes, samples)
	for g, row := range rows {
		for j, v := range row {
			m.Set(g, j, v)
		}
	}
	return m
}

func TestPCA_SeparatesConditions(t *testing.T) {
	m := conditionSplitMatrix()

	res, err := PCA(m, 0, 2)
	require.NoError(t, err)
	require.Len(t, res.PercentVar, 2)
	assert.Equal(t, 7, res.GenesUsed)

	// Condition dominates the variance.
	assert.Greater(t, res.PercentVar[0], 80.0)

	// PC1 splits control from treated; the sign of the axis is
	// arbitrary, so only separation is checked.
	ctrlMax, trtMin := math.Inf(-1), math.Inf(1)
	ctrlMin, trtMax := math.Inf(1), math.Inf(-1)
	for i := 0; i < 3; i++ {
		ctrlMax = math.Max(ctrlMax, res.Coord(i, 0))
		ctrlMin = math.Min(ctrlMin, res.Coord(i, 0))
	}
	for i := 3; i < 6; i++ {
		trtMax = math.Max(trtMax, res.Coord(i, 0))
		trtMin = math.Min(trtMin, res.Coord(i, 0))
	}
	separated := ctrlMax < trtMin || trtMax < ctrlMin
	assert.True(t, separated, "PC1 did not separate conditions: ctrl [%v, %v], trt [%v, %v]",
		ctrlMin, ctrlMax, trtMin, trtMax)

	// Scores are centered per component.
	sum := 0.0
	for i := 0; i < 6; i++ {
		sum += res.Coord(i, 0)
	}
	assert.InDelta(t, 0, sum, 1e-8)
}

func TestPCA_TopGenes(t *testing.T) {
	m := conditionSplitMatrix()

	res, err := PCA(m, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, res.GenesUsed)
}

func TestPCA_PercentVarBounded(t *testing.T) {
	m := conditionSplitMatrix()

	res, err := PCA(m, 0, 4)
	require.NoError(t, err)

	total := 0.0
	for _, p := range res.PercentVar {
		assert.GreaterOrEqual(t, p, 0.0)
		total += p
	}
	assert.LessOrEqual(t, total, 100.0+1e-9)
}

func TestPCA_Errors(t *testing.T) {
	one := NewMatrix([]string{"g1"}, []string{"s1"})
	_, err := PCA(one, 0, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least two samples")

	// Constant rows carry no variance at all.
	flat := NewMatrix([]string{"g1"}, []string{"s1", "s2"})
	flat.Set(0, 0, 3)
	flat.Set(0, 1, 3)
	_, err = PCA(flat, 0, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonzero variance")
}
