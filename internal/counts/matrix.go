// Package counts loads and validates the genes-by-samples count matrix
// and the accompanying sample metadata table.
package counts

import (
	"fmt"
	"math"
)

// Matrix is a dense genes-by-samples matrix of raw read counts.
// Rows align with Genes, columns with Samples. Counts are stored as
// float64 for downstream arithmetic but must be non-negative integers.
type Matrix struct {
	Genes   []string
	Samples []string
	data    []float64 // row-major, len = len(Genes)*len(Samples)
}

// NewMatrix creates a matrix from row-major data. The data length must
// equal len(genes)*len(samples).
func NewMatrix(genes, samples []string, data []float64) (*Matrix, error) {
	if len(data) != len(genes)*len(samples) {
		return nil, fmt.Errorf("count matrix: %d values for %d genes x %d samples",
			len(data), len(genes), len(samples))
	}
	for i, v := range data {
		if v < 0 || v != math.Trunc(v) || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("count matrix: gene %q sample %q: count %v is not a non-negative integer",
				genes[i/len(samples)], samples[i%len(samples)], v)
		}
	}
	return &Matrix{Genes: genes, Samples: samples, data: data}, nil
}

// NGenes returns the number of genes (rows).
func (m *Matrix) NGenes() int { return len(m.Genes) }

// NSamples returns the number of samples (columns).
func (m *Matrix) NSamples() int { return len(m.Samples) }

// At returns the count for gene row i and sample column j.
func (m *Matrix) At(i, j int) float64 {
	return m.data[i*len(m.Samples)+j]
}

// Row returns a copy of the counts for gene row i across all samples.
func (m *Matrix) Row(i int) []float64 {
	row := make([]float64, len(m.Samples))
	copy(row, m.data[i*len(m.Samples):(i+1)*len(m.Samples)])
	return row
}

// Column returns a copy of the counts for sample column j across all genes.
func (m *Matrix) Column(j int) []float64 {
	col := make([]float64, len(m.Genes))
	for i := range m.Genes {
		col[i] = m.At(i, j)
	}
	return col
}

// ColumnSums returns the total counts per sample (library sizes).
func (m *Matrix) ColumnSums() []float64 {
	sums := make([]float64, len(m.Samples))
	for i := range m.Genes {
		for j := range m.Samples {
			sums[j] += m.At(i, j)
		}
	}
	return sums
}

// RowAllZero reports whether gene row i has zero counts in every sample.
func (m *Matrix) RowAllZero(i int) bool {
	for j := range m.Samples {
		if m.At(i, j) > 0 {
			return false
		}
	}
	return true
}

// DropAllZeroRows returns a new matrix without all-zero gene rows, along
// with the number of rows removed. The receiver is unchanged.
func (m *Matrix) DropAllZeroRows() (*Matrix, int) {
	keep := make([]int, 0, len(m.Genes))
	for i := range m.Genes {
		if !m.RowAllZero(i) {
			keep = append(keep, i)
		}
	}
	if len(keep) == len(m.Genes) {
		return m, 0
	}
	return m.SubsetRows(keep), len(m.Genes) - len(keep)
}

// SubsetRows returns a new matrix containing the gene rows at the given
// indices, in the given order.
func (m *Matrix) SubsetRows(rows []int) *Matrix {
	genes := make([]string, len(rows))
	data := make([]float64, 0, len(rows)*len(m.Samples))
	for k, i := range rows {
		genes[k] = m.Genes[i]
		data = append(data, m.data[i*len(m.Samples):(i+1)*len(m.Samples)]...)
	}
	return &Matrix{Genes: genes, Samples: append([]string(nil), m.Samples...), data: data}
}

// GeneIndex returns the row index of the given gene id, or -1.
func (m *Matrix) GeneIndex(gene string) int {
	for i, g := range m.Genes {
		if g == gene {
			return i
		}
	}
	return -1
}
