// Package transform provides visualization-oriented transformations of
// normalized counts: variance stabilization, batch-effect removal and
// principal component analysis.
package transform

// Matrix holds transformed expression values on the log2 scale,
// genes×samples.
type Matrix struct {
	Genes   []string
	Samples []string
	data    []float64 // row-major
}

// NewMatrix allocates a zero-filled matrix with the given labels.
func NewMatrix(genes, samples []string) *Matrix {
	return &Matrix{
		Genes:   genes,
		Samples: samples,
		data:    make([]float64, len(genes)*len(samples)),
	}
}

// NGenes returns the number of gene rows.
func (m *Matrix) NGenes() int { return len(m.Genes) }

// NSamples returns the number of sample columns.
func (m *Matrix) NSamples() int { return len(m.Samples) }

// At returns the value for gene row i and sample column j.
func (m *Matrix) At(i, j int) float64 {
	return m.data[i*len(m.Samples)+j]
}

// Set stores a value for gene row i and sample column j.
func (m *Matrix) Set(i, j int, v float64) {
	m.data[i*len(m.Samples)+j] = v
}

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []float64 {
	row := make([]float64, len(m.Samples))
	copy(row, m.data[i*len(m.Samples):(i+1)*len(m.Samples)])
	return row
}

// Column returns a copy of column j.
func (m *Matrix) Column(j int) []float64 {
	col := make([]float64, len(m.Genes))
	for i := range m.Genes {
		col[i] = m.At(i, j)
	}
	return col
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	out := NewMatrix(m.Genes, m.Samples)
	copy(out.data, m.data)
	return out
}

// GeneIndex returns the row index of a gene ID, or -1.
func (m *Matrix) GeneIndex(gene string) int {
	for i, g := range m.Genes {
		if g == gene {
			return i
		}
	}
	return -1
}
