package enrich

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/geneset"
)

// fiftyGeneRanking ranks g01..g50 with strictly decreasing scores.
func fiftyGeneRanking() *Ranking {
	r := &Ranking{Genes: make([]string, 50), Scores: make([]float64, 50)}
	for i := 0; i < 50; i++ {
		r.Genes[i] = fmt.Sprintf("g%02d", i+1)
		r.Scores[i] = float64(50 - i)
	}
	return r
}

func genes(ids ...int) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = fmt.Sprintf("g%02d", id)
	}
	return out
}

func TestOverrepRun(t *testing.T) {
	ranking := fiftyGeneRanking()
	selected := genes(1, 2, 3, 4, 5)

	c := &geneset.Collection{Name: "test", Sets: []geneset.Set{
		// Listed shuffled to prove Core comes back in rank order.
		{ID: "full", Name: "Full hit", Genes: append(genes(40, 41, 42, 43, 44, 5, 3), genes(1, 4, 2)...)},
		{ID: "none", Name: "No overlap", Genes: genes(6, 7, 8, 9, 10)},
		{ID: "partial", Name: "Partial", Genes: append(genes(2, 1), genes(20, 21, 22, 23, 24, 25, 26, 27)...)},
	}}

	rs, err := NewOverrep(selected).Run(ranking, c)
	require.NoError(t, err)

	// Sets without a selected member are dropped.
	require.Len(t, rs, 2)

	full := rs[0]
	assert.Equal(t, "full", full.SetID)
	assert.Equal(t, 10, full.SetSize)
	assert.Equal(t, 5, full.Overlap)
	assert.InDelta(t, 1.0, full.GeneRatio, 1e-12)
	assert.Equal(t, genes(1, 2, 3, 4, 5), full.Core)
	// All five picks marked: P[X >= 5] = C(10,5)/C(50,5).
	assert.InDelta(t, 252.0/2118760.0, full.PValue, 1e-12)
	assert.True(t, math.IsNaN(full.ES))
	assert.True(t, math.IsNaN(full.NES))

	partial := rs[1]
	assert.Equal(t, 10, partial.SetSize)
	assert.Equal(t, 2, partial.Overlap)
	assert.InDelta(t, 0.4, partial.GeneRatio, 1e-12)
	assert.Equal(t, genes(1, 2), partial.Core)
	// P[X >= 2] = 546852/2118760 for 5 draws, 10 marked, 50 total.
	assert.InDelta(t, 546852.0/2118760.0, partial.PValue, 1e-12)

	// Benjamini-Hochberg over the two reported sets.
	assert.InDelta(t, 2*252.0/2118760.0, full.PAdj, 1e-12)
	assert.InDelta(t, partial.PValue, partial.PAdj, 1e-12)
}

func TestOverrepRun_DedupesSetGenes(t *testing.T) {
	ranking := fiftyGeneRanking()
	c := &geneset.Collection{Name: "dup", Sets: []geneset.Set{
		{ID: "s", Genes: []string{"g01", "g01", "g20", "g20", "g21"}},
	}}

	rs, err := NewOverrep(genes(1, 2, 3, 4, 5)).Run(ranking, c)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, 3, rs[0].SetSize)
	assert.Equal(t, 1, rs[0].Overlap)
}

func TestOverrepRun_SelectedOutsideUniverse(t *testing.T) {
	ranking := fiftyGeneRanking()
	c := &geneset.Collection{Name: "test", Sets: []geneset.Set{
		{ID: "s", Genes: genes(1, 2, 3)},
	}}

	_, err := NewOverrep([]string{"ENSG00000141510"}).Run(ranking, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "selected genes")
}

func TestOverrepRun_NamespaceMismatch(t *testing.T) {
	ranking := fiftyGeneRanking()
	c := &geneset.Collection{Name: "entrez", Sets: []geneset.Set{
		{ID: "s", Genes: []string{"1017", "1019", "7157"}},
	}}

	_, err := NewOverrep(genes(1)).Run(ranking, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "namespaces")
}
