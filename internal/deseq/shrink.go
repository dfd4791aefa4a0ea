package deseq

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/stats"
)

// ShrinkLFC applies a zero-centered normal prior to the MLE log2 fold
// changes: each estimate is scaled by priorVar/(priorVar + SE²), so
// noisy estimates move toward zero while high-confidence estimates are
// essentially unchanged. The standard errors become the posterior
// standard deviations; Stat, PValue and PAdj keep their MLE values. The
// input is not modified.
func ShrinkLFC(rs Results) Results {
	priorVar := lfcPriorVariance(rs)

	out := make(Results, len(rs))
	copy(out, rs)
	for i := range out {
		se2 := out[i].LfcSE * out[i].LfcSE
		if math.IsNaN(out[i].Log2FC) || math.IsNaN(se2) {
			continue
		}
		shrink := priorVar / (priorVar + se2)
		out[i].Log2FC *= shrink
		out[i].LfcSE *= math.Sqrt(shrink)
	}
	return out
}

// lfcPriorVariance sets the prior width so its 95% absolute quantile
// matches the empirical 95% quantile of the nonzero MLE fold changes.
func lfcPriorVariance(rs Results) float64 {
	var abs []float64
	for _, r := range rs {
		if !math.IsNaN(r.Log2FC) && r.Log2FC != 0 {
			abs = append(abs, math.Abs(r.Log2FC))
		}
	}
	if len(abs) == 0 {
		return 1
	}

	sd := stats.Quantile(0.95, abs) / distuv.UnitNormal.Quantile(0.975)
	if sd < 1e-3 {
		sd = 1e-3
	}
	return sd * sd
}
