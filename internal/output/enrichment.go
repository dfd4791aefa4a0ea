package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/enrich"
)

// WriteEnrichmentCSV writes enrichment results for one method. Core
// genes are joined with semicolons into a single column.
func WriteEnrichmentCSV(w io.Writer, rs []enrich.Result) error {
	cw := csv.NewWriter(w)

	header := []string{
		"set_id", "set_name", "set_size", "overlap", "gene_ratio",
		"es", "nes", "pvalue", "padj", "core_genes",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write enrichment header: %w", err)
	}

	for _, r := range rs {
		row := []string{
			r.SetID,
			r.SetName,
			strconv.Itoa(r.SetSize),
			strconv.Itoa(r.Overlap),
			formatFloat(r.GeneRatio),
			formatFloat(r.ES),
			formatFloat(r.NES),
			formatFloat(r.PValue),
			formatFloat(r.PAdj),
			strings.Join(r.Core, ";"),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write enrichment row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
