// Package enrich implements gene set enrichment testing: hypergeometric
// over-representation and rank-based GSEA with a permutation null.
package enrich

import (
	"fmt"
	"math"
	"sort"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/deseq"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/geneset"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/stats"
)

// minOverlapFraction is the smallest share of ranked genes that must
// appear somewhere in a collection. Below this the ranking and the
// collection are almost certainly keyed by different identifier
// namespaces and every test would be meaningless.
const minOverlapFraction = 0.01

// Result holds the enrichment outcome for one gene set.
type Result struct {
	SetID   string
	SetName string
	// SetSize counts set members present in the ranked universe.
	SetSize int
	// Overlap counts the Core genes.
	Overlap int
	// GeneRatio is the fraction the method reports for dot plots:
	// overlap over selected genes for over-representation, leading
	// edge over set size for GSEA.
	GeneRatio float64
	// ES and NES are NaN for methods without a running-sum statistic.
	ES     float64
	NES    float64
	PValue float64
	PAdj   float64
	// Core lists the genes driving the result: the significant overlap
	// for over-representation, the leading edge for GSEA.
	Core []string
}

// Engine runs one enrichment method over a ranking and a collection.
type Engine interface {
	Name() string
	Run(r *Ranking, c *geneset.Collection) ([]Result, error)
}

// Ranking is a list of genes ordered by signed effect size, strongest
// upregulation first. Scores is aligned with Genes.
type Ranking struct {
	Genes  []string
	Scores []float64
}

// Len returns the number of ranked genes.
func (r *Ranking) Len() int { return len(r.Genes) }

// RankByLFC ranks genes by log2 fold change, largest first. Rows
// without a usable fold change are dropped; ties keep the results
// order.
func RankByLFC(rs deseq.Results) *Ranking {
	return rankBy(rs, func(r deseq.Result) float64 { return r.Log2FC })
}

// RankByStat ranks genes by the Wald statistic, which folds the
// standard error into the ordering.
func RankByStat(rs deseq.Results) *Ranking {
	return rankBy(rs, func(r deseq.Result) float64 { return r.Stat })
}

func rankBy(rs deseq.Results, score func(deseq.Result) float64) *Ranking {
	type entry struct {
		gene  string
		score float64
	}
	entries := make([]entry, 0, len(rs))
	for _, r := range rs {
		s := score(r)
		if math.IsNaN(s) {
			continue
		}
		entries = append(entries, entry{gene: r.GeneID, score: s})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].score > entries[j].score })

	out := &Ranking{
		Genes:  make([]string, len(entries)),
		Scores: make([]float64, len(entries)),
	}
	for i, e := range entries {
		out.Genes[i] = e.gene
		out.Scores[i] = e.score
	}
	return out
}

// SortByPValue orders results by ascending p-value, ties staying in
// collection order.
func SortByPValue(rs []Result) {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].PValue < rs[j].PValue })
}

// checkOverlap errors when too few ranked genes appear in the
// collection to test anything.
func checkOverlap(r *Ranking, c *geneset.Collection) error {
	members := make(map[string]bool)
	for _, s := range c.Sets {
		for _, g := range s.Genes {
			members[g] = true
		}
	}
	matched := 0
	for _, g := range r.Genes {
		if members[g] {
			matched++
		}
	}
	if matched == 0 || float64(matched) < minOverlapFraction*float64(r.Len()) {
		return fmt.Errorf("only %d of %d ranked genes appear in collection %q: gene identifier namespaces likely differ",
			matched, r.Len(), c.Name)
	}
	return nil
}

// adjustResults fills PAdj across all results with Benjamini-Hochberg.
func adjustResults(rs []Result) {
	ps := make([]float64, len(rs))
	for i, r := range rs {
		ps[i] = r.PValue
	}
	adj := stats.AdjustBH(ps)
	for i := range rs {
		rs[i].PAdj = adj[i]
	}
}
