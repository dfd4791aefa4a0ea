package output

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/transform"
)

// WriteMatrixCSV writes an expression matrix with genes as rows and
// samples as columns. rows must be aligned with genes and each row with
// samples.
func WriteMatrixCSV(w io.Writer, genes, samples []string, rows [][]float64) error {
	if len(rows) != len(genes) {
		return fmt.Errorf("matrix has %d rows for %d genes", len(rows), len(genes))
	}

	cw := csv.NewWriter(w)
	header := append([]string{"gene_id"}, samples...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write matrix header: %w", err)
	}

	record := make([]string, len(samples)+1)
	for i, gene := range genes {
		if len(rows[i]) != len(samples) {
			return fmt.Errorf("gene %q has %d values for %d samples", gene, len(rows[i]), len(samples))
		}
		record[0] = gene
		for j, v := range rows[i] {
			record[j+1] = formatFloat(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write matrix row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteTransformedCSV writes a transformed expression matrix.
func WriteTransformedCSV(w io.Writer, m *transform.Matrix) error {
	rows := make([][]float64, m.NGenes())
	for i := range rows {
		rows[i] = m.Row(i)
	}
	return WriteMatrixCSV(w, m.Genes, m.Samples, rows)
}
