package transform

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/counts"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/deseq"
)

// RemoveBatchEffect removes the batch component from transformed values
// for visualization. Per gene, a least-squares fit on the combined
// [intercept | condition | batch] matrix estimates the batch
// coefficients and only that part is subtracted, so the condition
// signal stays untouched. This is a display aid: differential testing
// handles batch through the design formula instead.
func RemoveBatchEffect(m *Matrix, samples *counts.SampleTable) (*Matrix, error) {
	if m.NSamples() != len(samples.Samples) {
		return nil, fmt.Errorf("remove batch effect: %d metadata rows for %d sample columns",
			len(samples.Samples), m.NSamples())
	}

	design, err := deseq.ParseDesign("~ condition + batch", samples)
	if err != nil {
		return nil, fmt.Errorf("remove batch effect: %w", err)
	}
	x := design.ModelMatrix()
	n, _ := x.Dims()

	var batchCols []int
	for i, name := range design.Columns() {
		if strings.HasPrefix(name, "batch_") {
			batchCols = append(batchCols, i)
		}
	}

	// One factorization solves the least squares for every gene at once.
	yT := mat.NewDense(n, m.NGenes(), nil)
	for g := 0; g < m.NGenes(); g++ {
		for j := 0; j < n; j++ {
			yT.Set(j, g, m.At(g, j))
		}
	}

	var qr mat.QR
	qr.Factorize(x)
	var theta mat.Dense
	if err := qr.SolveTo(&theta, false, yT); err != nil {
		return nil, fmt.Errorf("remove batch effect: %w", err)
	}

	out := m.Clone()
	for g := 0; g < m.NGenes(); g++ {
		for j := 0; j < n; j++ {
			part := 0.0
			for _, b := range batchCols {
				part += x.At(j, b) * theta.At(b, g)
			}
			out.Set(g, j, m.At(g, j)-part)
		}
	}
	return out, nil
}
