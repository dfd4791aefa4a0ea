package enrich

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/deseq"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/geneset"
)

func TestRankByLFC(t *testing.T) {
	rs := deseq.Results{
		{GeneID: "down", Log2FC: -1.5, Stat: -4.0},
		{GeneID: "up", Log2FC: 2.0, Stat: 5.0},
		{GeneID: "mid", Log2FC: 0.5, Stat: 1.0},
		{GeneID: "allzero", Log2FC: math.NaN(), Stat: math.NaN()},
	}

	r := RankByLFC(rs)
	assert.Equal(t, []string{"up", "mid", "down"}, r.Genes)
	assert.Equal(t, []float64{2.0, 0.5, -1.5}, r.Scores)
	assert.Equal(t, 3, r.Len())
}

func TestRankByLFC_TiesKeepInputOrder(t *testing.T) {
	rs := deseq.Results{
		{GeneID: "first", Log2FC: 1.0},
		{GeneID: "second", Log2FC: 1.0},
		{GeneID: "third", Log2FC: 1.0},
	}
	r := RankByLFC(rs)
	assert.Equal(t, []string{"first", "second", "third"}, r.Genes)
}

func TestRankByStat(t *testing.T) {
	rs := deseq.Results{
		{GeneID: "a", Log2FC: 3.0, Stat: 1.2},
		{GeneID: "b", Log2FC: 1.0, Stat: 6.0},
	}
	r := RankByStat(rs)
	assert.Equal(t, []string{"b", "a"}, r.Genes)
	assert.Equal(t, []float64{6.0, 1.2}, r.Scores)
}

func TestCheckOverlap(t *testing.T) {
	ranking := &Ranking{Genes: make([]string, 200), Scores: make([]float64, 200)}
	for i := range ranking.Genes {
		ranking.Genes[i] = fmt.Sprintf("g%03d", i)
	}

	// Two of 200 genes matched meets the one percent floor.
	ok := &geneset.Collection{Name: "ok", Sets: []geneset.Set{
		{ID: "s", Genes: []string{"g000", "g001"}},
	}}
	assert.NoError(t, checkOverlap(ranking, ok))

	// A single match out of 200 does not.
	thin := &geneset.Collection{Name: "thin", Sets: []geneset.Set{
		{ID: "s", Genes: []string{"g000", "OTHER1", "OTHER2"}},
	}}
	err := checkOverlap(ranking, thin)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "namespaces")

	// Disjoint namespaces always error.
	disjoint := &geneset.Collection{Name: "entrez", Sets: []geneset.Set{
		{ID: "s", Genes: []string{"1017", "1019"}},
	}}
	assert.Error(t, checkOverlap(ranking, disjoint))
}

func TestSortByPValue(t *testing.T) {
	rs := []Result{
		{SetID: "c", PValue: 0.5},
		{SetID: "a", PValue: 0.01},
		{SetID: "b", PValue: 0.5},
	}
	SortByPValue(rs)
	assert.Equal(t, "a", rs[0].SetID)
	assert.Equal(t, "c", rs[1].SetID)
	assert.Equal(t, "b", rs[2].SetID)
}

func TestAdjustResults(t *testing.T) {
	rs := []Result{
		{SetID: "a", PValue: 0.01},
		{SetID: "b", PValue: 0.04},
	}
	adjustResults(rs)
	assert.InDelta(t, 0.02, rs[0].PAdj, 1e-12)
	assert.InDelta(t, 0.04, rs[1].PAdj, 1e-12)
}
