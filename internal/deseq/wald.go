package deseq

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/stats"
)

// Result holds the differential expression test output for one gene.
// PValue and PAdj are NaN when the gene could not be tested.
type Result struct {
	GeneID   string
	BaseMean float64
	Log2FC   float64
	LfcSE    float64
	Stat     float64
	PValue   float64
	PAdj     float64
}

// Passes reports whether the row meets the joint significance
// threshold padj < alpha and |log2FC| ≥ lfcThreshold. NaN never passes.
func (r Result) Passes(alpha, lfcThreshold float64) bool {
	return !math.IsNaN(r.PAdj) && r.PAdj < alpha && math.Abs(r.Log2FC) >= lfcThreshold
}

// Results is the per-gene test table for one contrast, in the order of
// the dataset's kept genes.
type Results []Result

// Genes returns the gene IDs in row order.
func (rs Results) Genes() []string {
	genes := make([]string, len(rs))
	for i, r := range rs {
		genes[i] = r.GeneID
	}
	return genes
}

// ByGene returns the row for a gene ID.
func (rs Results) ByGene(geneID string) (Result, bool) {
	for _, r := range rs {
		if r.GeneID == geneID {
			return r, true
		}
	}
	return Result{}, false
}

// Significant returns the rows passing the joint threshold. It is
// idempotent: applying it to its own output returns the same rows.
func (rs Results) Significant(alpha, lfcThreshold float64) Results {
	var out Results
	for _, r := range rs {
		if r.Passes(alpha, lfcThreshold) {
			out = append(out, r)
		}
	}
	return out
}

// SortByPAdj orders rows in place by adjusted p-value with NaNs last.
// The sort is stable so tied genes keep their input order.
func (rs Results) SortByPAdj() {
	sort.SliceStable(rs, func(i, j int) bool {
		pi, pj := rs[i].PAdj, rs[j].PAdj
		switch {
		case math.IsNaN(pi):
			return false
		case math.IsNaN(pj):
			return true
		default:
			return pi < pj
		}
	})
}

// waldPValue is the two-sided normal tail probability of the Wald
// statistic.
func waldPValue(stat float64) float64 {
	if math.IsNaN(stat) {
		return math.NaN()
	}
	return 2 * distuv.UnitNormal.CDF(-math.Abs(stat))
}

// adjust fills PAdj with Benjamini-Hochberg adjusted p-values.
func (rs Results) adjust() {
	ps := make([]float64, len(rs))
	for i := range rs {
		ps[i] = rs[i].PValue
	}
	padj := stats.AdjustBH(ps)
	for i := range rs {
		rs[i].PAdj = padj[i]
	}
}
