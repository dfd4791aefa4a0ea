package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/counts"
)

func batchedSamples() *counts.SampleTable {
	return &counts.SampleTable{Samples: []counts.Sample{
		{Name: "c1", Condition: "control", Batch: "B1"},
		{Name: "c2", Condition: "control", Batch: "B2"},
		{Name: "c3", Condition: "control", Batch: "B1"},
		{Name: "t1", Condition: "treated", Batch: "B2"},
		{Name: "t2", Condition: "treated", Batch: "B1"},
		{Name: "t3", Condition: "treated", Batch: "B2"},
	}}
}

// additiveMatrix builds values base + 3*treated + 2*B2 per gene.
func additiveMatrix(bases []float64) *Matrix {
	samples := []string{"c1", "c2", "c3", "t1", "t2", "t3"}
	treated := []float64{0, 0, 0, 1, 1, 1}
	inB2 := []float64{0, 1, 0, 1, 0, 1}

	genes := make([]string, len(bases))
	for i := range bases {
		genes[i] = "g" + string(rune('1'+i))
	}
	m := NewMatrix(genes, samples)
	for g, base := range bases {
		for j := range samples {
			m.Set(g, j, base+3*treated[j]+2*inB2[j])
		}
	}
	return m
}

func TestRemoveBatchEffect(t *testing.T) {
	m := additiveMatrix([]float64{5, 8, 12})

	out, err := RemoveBatchEffect(m, batchedSamples())
	require.NoError(t, err)

	for g := 0; g < out.NGenes(); g++ {
		// Batch mates collapse onto each other.
		assert.InDelta(t, out.At(g, 0), out.At(g, 1), 1e-8, "gene %d controls", g)
		assert.InDelta(t, out.At(g, 0), out.At(g, 2), 1e-8, "gene %d controls", g)
		assert.InDelta(t, out.At(g, 3), out.At(g, 4), 1e-8, "gene %d treated", g)
		assert.InDelta(t, out.At(g, 3), out.At(g, 5), 1e-8, "gene %d treated", g)

		// The condition effect survives untouched.
		assert.InDelta(t, 3, out.At(g, 3)-out.At(g, 0), 1e-8, "gene %d effect", g)
	}

	// The input matrix is not modified.
	assert.InDelta(t, 7.0, m.At(0, 1), 1e-12)
}

func TestRemoveBatchEffect_NoBatchColumn(t *testing.T) {
	m := additiveMatrix([]float64{5})
	samples := &counts.SampleTable{Samples: []counts.Sample{
		{Name: "c1", Condition: "control"},
		{Name: "c2", Condition: "control"},
		{Name: "c3", Condition: "control"},
		{Name: "t1", Condition: "treated"},
		{Name: "t2", Condition: "treated"},
		{Name: "t3", Condition: "treated"},
	}}

	_, err := RemoveBatchEffect(m, samples)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch")
}

func TestRemoveBatchEffect_SizeMismatch(t *testing.T) {
	m := NewMatrix([]string{"g1"}, []string{"s1", "s2"})
	_, err := RemoveBatchEffect(m, batchedSamples())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metadata rows")
}
