package counts

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMatrixCSV = `gene_id,s1,s2,s3,s4
ENSG000001,10,12,100,110
ENSG000002,0,0,0,0
ENSG000003,5,5,5,5
`

func TestParseMatrix_CSV(t *testing.T) {
	m, err := ParseMatrix(strings.NewReader(testMatrixCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{"ENSG000001", "ENSG000002", "ENSG000003"}, m.Genes)
	assert.Equal(t, []string{"s1", "s2", "s3", "s4"}, m.Samples)
	assert.Equal(t, 100.0, m.At(0, 2))
	assert.Equal(t, []float64{5, 5, 5, 5}, m.Row(2))
	assert.Equal(t, []float64{10, 0, 5}, m.Column(0))
}

func TestParseMatrix_TSV(t *testing.T) {
	tsv := strings.ReplaceAll(testMatrixCSV, ",", "\t")
	m, err := ParseMatrix(strings.NewReader(tsv))
	require.NoError(t, err)
	assert.Equal(t, 3, m.NGenes())
	assert.Equal(t, 4, m.NSamples())
}

func TestParseMatrix_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"ragged row", "gene_id,s1,s2\ng1,1\n", "expected 3 fields"},
		{"negative count", "gene_id,s1\ng1,-4\n", "not a non-negative integer"},
		{"non-integer count", "gene_id,s1\ng1,3.5\n", "not a non-negative integer"},
		{"bad number", "gene_id,s1\ng1,abc\n", "invalid count"},
		{"duplicate gene", "gene_id,s1\ng1,1\ng1,2\n", "duplicate gene identifier"},
		{"empty input", "", "no header line"},
		{"header only", "gene_id,s1\n", "no count rows"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMatrix(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMatrix_Gzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "counts.csv.gz")

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(testMatrixCSV))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	m, err := LoadMatrix(path)
	require.NoError(t, err)
	assert.Equal(t, 3, m.NGenes())
}

func TestMatrix_DropAllZeroRows(t *testing.T) {
	m, err := ParseMatrix(strings.NewReader(testMatrixCSV))
	require.NoError(t, err)

	kept, dropped := m.DropAllZeroRows()
	assert.Equal(t, 1, dropped)
	assert.Equal(t, []string{"ENSG000001", "ENSG000003"}, kept.Genes)

	// Dropping again is a no-op.
	again, dropped2 := kept.DropAllZeroRows()
	assert.Equal(t, 0, dropped2)
	assert.Equal(t, kept.Genes, again.Genes)
}

func TestMatrix_ColumnSums(t *testing.T) {
	m, err := ParseMatrix(strings.NewReader(testMatrixCSV))
	require.NoError(t, err)
	assert.Equal(t, []float64{15, 17, 105, 115}, m.ColumnSums())
}
