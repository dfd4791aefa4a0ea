package transform

import (
	"fmt"
	"math"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/counts"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/deseq"
)

// VST applies the closed-form variance-stabilizing transformation for
// the parametric dispersion trend a(q) = asymptDisp + extraPois/q to
// size-factor-normalized counts. The output is on the log2 scale and
// approaches log2 of the normalized count for large counts, while low
// counts are compressed so their inflated variance does not dominate
// distances and principal components.
func VST(m *counts.Matrix, sizeFactors []float64, trend deseq.TrendCoefficients) (*Matrix, error) {
	if m.NSamples() != len(sizeFactors) {
		return nil, fmt.Errorf("vst: %d size factors for %d samples", len(sizeFactors), m.NSamples())
	}
	if trend.AsymptDisp <= 0 {
		return nil, fmt.Errorf("vst: non-positive asymptotic dispersion %g", trend.AsymptDisp)
	}

	out := NewMatrix(m.Genes, m.Samples)
	for g := 0; g < m.NGenes(); g++ {
		for j := 0; j < m.NSamples(); j++ {
			q := m.At(g, j) / sizeFactors[j]
			out.Set(g, j, vstValue(q, trend.AsymptDisp, trend.ExtraPois))
		}
	}
	return out, nil
}

func vstValue(q, asymptDisp, extraPois float64) float64 {
	num := 1 + extraPois + 2*asymptDisp*q +
		2*math.Sqrt(asymptDisp*q*(1+extraPois+asymptDisp*q))
	return math.Log2(num / (4 * asymptDisp))
}
