package deseq

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/counts"
)

// threeVsThree builds a two-condition experiment with one strongly
// induced gene, one flat gene, a spread of stable genes and one
// all-zero gene.
func threeVsThree(t *testing.T) (*counts.Matrix, *counts.SampleTable) {
	t.Helper()

	genes := []string{"up", "flat", "g3", "g4", "g5", "g6", "g7", "g8", "g9", "g10", "zero"}
	samples := []string{"c1", "c2", "c3", "t1", "t2", "t3"}
	data := []float64{
		10, 12, 11, 100, 110, 105,
		50, 51, 49, 50, 52, 48,
		20, 22, 18, 21, 19, 20,
		200, 210, 190, 205, 195, 200,
		1000, 1020, 980, 1010, 990, 1005,
		5, 6, 4, 5, 6, 5,
		80, 82, 78, 81, 79, 80,
		400, 420, 380, 410, 390, 400,
		150, 155, 145, 152, 148, 150,
		60, 58, 62, 59, 61, 60,
		0, 0, 0, 0, 0, 0,
	}
	m := mustMatrix(t, genes, samples, data)

	table := &counts.SampleTable{Samples: []counts.Sample{
		{Name: "c1", Condition: "control", Replicate: "1", Batch: "B1"},
		{Name: "c2", Condition: "control", Replicate: "2", Batch: "B2"},
		{Name: "c3", Condition: "control", Replicate: "3", Batch: "B1"},
		{Name: "t1", Condition: "treated", Replicate: "1", Batch: "B2"},
		{Name: "t2", Condition: "treated", Replicate: "2", Batch: "B1"},
		{Name: "t3", Condition: "treated", Replicate: "3", Batch: "B2"},
	}}
	return m, table
}

func treatedVsControl() Contrast {
	return Contrast{Factor: "condition", Test: "treated", Reference: "control"}
}

func TestNewDataset_DropsAllZeroGenes(t *testing.T) {
	m, samples := threeVsThree(t)

	ds, err := NewDataset(m, samples, "~ condition")
	require.NoError(t, err)

	assert.Equal(t, 1, ds.DroppedGenes())
	assert.Equal(t, 10, ds.Counts.NGenes())
	assert.Equal(t, -1, ds.Counts.GeneIndex("zero"))
}

func TestNewDataset_Errors(t *testing.T) {
	m, samples := threeVsThree(t)

	// Metadata out of order.
	reordered := &counts.SampleTable{Samples: []counts.Sample{
		samples.Samples[1], samples.Samples[0], samples.Samples[2],
		samples.Samples[3], samples.Samples[4], samples.Samples[5],
	}}
	_, err := NewDataset(m, reordered, "~ condition")
	require.Error(t, err)

	// Saturated design: four samples, four replicate levels.
	small := mustMatrix(t, []string{"g1"}, []string{"a", "b", "c", "d"},
		[]float64{10, 20, 30, 40})
	four := &counts.SampleTable{Samples: []counts.Sample{
		{Name: "a", Condition: "x", Replicate: "1"},
		{Name: "b", Condition: "x", Replicate: "2"},
		{Name: "c", Condition: "y", Replicate: "3"},
		{Name: "d", Condition: "y", Replicate: "4"},
	}}
	_, err = NewDataset(small, four, "~ replicate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no residual degrees of freedom")
}

func TestDataset_StepOrderEnforced(t *testing.T) {
	m, samples := threeVsThree(t)
	ds, err := NewDataset(m, samples, "~ condition")
	require.NoError(t, err)

	require.Error(t, ds.EstimateDispersions())
	require.Error(t, ds.Fit())
	_, err = ds.Results(treatedVsControl())
	require.Error(t, err)
	_, err = ds.NormalizedCounts()
	require.Error(t, err)
}

func TestDataset_Run(t *testing.T) {
	m, samples := threeVsThree(t)
	ds, err := NewDataset(m, samples, "~ condition")
	require.NoError(t, err)

	rs, err := ds.Run(treatedVsControl())
	require.NoError(t, err)
	require.Len(t, rs, 10)

	// Size factors are strictly positive and near one for balanced
	// libraries.
	require.Len(t, ds.SizeFactors, 6)
	for _, sf := range ds.SizeFactors {
		assert.Greater(t, sf, 0.0)
		assert.InDelta(t, 1.0, sf, 0.2)
	}

	// The induced gene comes out strongly positive and significant.
	up, ok := rs.ByGene("up")
	require.True(t, ok)
	assert.Greater(t, up.Log2FC, 2.0)
	assert.Less(t, up.Log2FC, 4.5)
	assert.Less(t, up.PAdj, 0.05)
	assert.Greater(t, up.Stat, 0.0)

	// The flat gene stays near zero and non-significant.
	flat, ok := rs.ByGene("flat")
	require.True(t, ok)
	assert.InDelta(t, 0, flat.Log2FC, 0.3)
	assert.Greater(t, flat.PAdj, 0.1)

	// Base means are positive and padj never drops below the raw p.
	for _, r := range rs {
		assert.Greater(t, r.BaseMean, 0.0, r.GeneID)
		if !math.IsNaN(r.PValue) {
			assert.GreaterOrEqual(t, r.PAdj, r.PValue, r.GeneID)
		}
	}
}

func TestDataset_SignificantIdempotent(t *testing.T) {
	m, samples := threeVsThree(t)
	ds, err := NewDataset(m, samples, "~ condition")
	require.NoError(t, err)

	rs, err := ds.Run(treatedVsControl())
	require.NoError(t, err)

	sig := rs.Significant(0.1, 1.0)
	require.Len(t, sig, 1)
	assert.Equal(t, "up", sig[0].GeneID)

	assert.Equal(t, sig, sig.Significant(0.1, 1.0))
}

func TestDataset_WorkerCountDoesNotChangeResults(t *testing.T) {
	m, samples := threeVsThree(t)

	run := func(workers int) Results {
		ds, err := NewDataset(m, samples, "~ condition")
		require.NoError(t, err)
		ds.SetWorkers(workers)
		rs, err := ds.Run(treatedVsControl())
		require.NoError(t, err)
		return rs
	}

	assert.Equal(t, run(1), run(4))
}

func TestDataset_BatchCovariate(t *testing.T) {
	m, samples := threeVsThree(t)
	ds, err := NewDataset(m, samples, "~ batch + condition")
	require.NoError(t, err)

	rs, err := ds.Run(treatedVsControl())
	require.NoError(t, err)

	up, ok := rs.ByGene("up")
	require.True(t, ok)
	assert.Greater(t, up.Log2FC, 2.0)
	assert.Less(t, up.PAdj, 0.05)
}

func TestDataset_SwappedContrastFlipsSign(t *testing.T) {
	m, samples := threeVsThree(t)
	ds, err := NewDataset(m, samples, "~ condition")
	require.NoError(t, err)

	rs, err := ds.Run(treatedVsControl())
	require.NoError(t, err)
	flipped, err := ds.Results(Contrast{Factor: "condition", Test: "control", Reference: "treated"})
	require.NoError(t, err)

	up, _ := rs.ByGene("up")
	upFlipped, _ := flipped.ByGene("up")
	assert.InDelta(t, -up.Log2FC, upFlipped.Log2FC, 1e-9)
	assert.InDelta(t, up.PValue, upFlipped.PValue, 1e-12)
}

func TestDataset_NormalizedCounts(t *testing.T) {
	m, samples := threeVsThree(t)
	ds, err := NewDataset(m, samples, "~ condition")
	require.NoError(t, err)
	require.NoError(t, ds.EstimateSizeFactors())

	norm, err := ds.NormalizedCounts()
	require.NoError(t, err)
	require.Len(t, norm, 10)

	g := ds.Counts.GeneIndex("flat")
	require.GreaterOrEqual(t, g, 0)
	for j, v := range norm[g] {
		assert.InDelta(t, ds.Counts.At(g, j)/ds.SizeFactors[j], v, 1e-12)
	}
}

func TestShrinkLFC(t *testing.T) {
	m, samples := threeVsThree(t)
	ds, err := NewDataset(m, samples, "~ condition")
	require.NoError(t, err)

	rs, err := ds.Run(treatedVsControl())
	require.NoError(t, err)
	shrunk := ShrinkLFC(rs)
	require.Len(t, shrunk, len(rs))

	// The input table keeps its MLE estimates.
	up, _ := rs.ByGene("up")
	upShrunk, _ := shrunk.ByGene("up")
	assert.NotSame(t, &rs[0], &shrunk[0])

	// Shrinkage never increases magnitude, and a high-confidence
	// estimate moves very little.
	for i := range rs {
		if math.IsNaN(rs[i].Log2FC) {
			continue
		}
		assert.LessOrEqual(t, math.Abs(shrunk[i].Log2FC), math.Abs(rs[i].Log2FC)+1e-12, rs[i].GeneID)
		assert.Equal(t, rs[i].PValue, shrunk[i].PValue, rs[i].GeneID)
	}
	assert.Greater(t, upShrunk.Log2FC, 0.7*up.Log2FC)
	assert.Less(t, upShrunk.Log2FC, up.Log2FC)
}

func TestResultsSortByPAdj(t *testing.T) {
	rs := Results{
		{GeneID: "a", PAdj: 0.5},
		{GeneID: "b", PAdj: math.NaN()},
		{GeneID: "c", PAdj: 0.01},
		{GeneID: "d", PAdj: 0.5},
	}
	rs.SortByPAdj()

	assert.Equal(t, "c", rs[0].GeneID)
	assert.Equal(t, "a", rs[1].GeneID) // stable on ties
	assert.Equal(t, "d", rs[2].GeneID)
	assert.Equal(t, "b", rs[3].GeneID) // NaN last
}
