// Package output writes analysis results as CSV files and reads them
// back for downstream steps.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/annotation"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/deseq"
)

// WriteResultsCSV writes differential expression results. When an
// annotation table is given, a symbol column is added after the gene
// ID. Values without a test come out as NA.
func WriteResultsCSV(w io.Writer, rs deseq.Results, ann annotation.Table) error {
	cw := csv.NewWriter(w)

	header := []string{"gene_id", "base_mean", "log2_fc", "lfc_se", "stat", "pvalue", "padj"}
	if ann != nil {
		header = append([]string{header[0], "symbol"}, header[1:]...)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write results header: %w", err)
	}

	for _, r := range rs {
		row := []string{
			r.GeneID,
			formatFloat(r.BaseMean),
			formatFloat(r.Log2FC),
			formatFloat(r.LfcSE),
			formatFloat(r.Stat),
			formatFloat(r.PValue),
			formatFloat(r.PAdj),
		}
		if ann != nil {
			row = append([]string{row[0], ann.Symbol(r.GeneID)}, row[1:]...)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write result row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadResultsCSV reads a results file written by WriteResultsCSV.
// Columns are located by header name, so order and extra columns do
// not matter.
func ReadResultsCSV(r io.Reader) (deseq.Results, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read results header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	need := []string{"gene_id", "base_mean", "log2_fc", "lfc_se", "stat", "pvalue", "padj"}
	for _, col := range need {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("results file is missing column %q", col)
		}
	}

	var results deseq.Results
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read results row: %w", err)
		}
		if len(record) < len(header) {
			return nil, fmt.Errorf("results row %d: %d fields, expected %d", len(results)+2, len(record), len(header))
		}

		var res deseq.Result
		res.GeneID = record[idx["gene_id"]]
		if res.GeneID == "" {
			return nil, fmt.Errorf("results row %d: empty gene identifier", len(results)+2)
		}
		fields := []struct {
			col string
			dst *float64
		}{
			{"base_mean", &res.BaseMean},
			{"log2_fc", &res.Log2FC},
			{"lfc_se", &res.LfcSE},
			{"stat", &res.Stat},
			{"pvalue", &res.PValue},
			{"padj", &res.PAdj},
		}
		for _, f := range fields {
			v, err := parseFloat(record[idx[f.col]])
			if err != nil {
				return nil, fmt.Errorf("results gene %q: column %s: %w", res.GeneID, f.col, err)
			}
			*f.dst = v
		}
		results = append(results, res)
	}

	return results, nil
}

// formatFloat renders v for CSV output, NaN as NA.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// parseFloat accepts NA or an empty field as a missing value.
func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "na") || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
