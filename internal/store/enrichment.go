package store

import (
	"fmt"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/enrich"
)

// coreGeneSep joins Core gene lists into one VARCHAR column.
const coreGeneSep = ";"

// SaveEnrichment batch-inserts enrichment results for one run and
// method, replacing any previous results under the same pair.
func (s *Store) SaveEnrichment(runID, method string, rs []enrich.Result) error {
	if _, err := s.db.Exec("DELETE FROM enrichment_results WHERE run_id=? AND method=?", runID, method); err != nil {
		return fmt.Errorf("replace enrichment: %w", err)
	}
	if len(rs) == 0 {
		return nil
	}

	return s.withAppender("enrichment_results", func(appender *goduckdb.Appender) error {
		for _, r := range rs {
			if err := appender.AppendRow(
				runID, method, r.SetID, r.SetName,
				int64(r.SetSize), int64(r.Overlap), r.GeneRatio,
				r.ES, r.NES, r.PValue, r.PAdj,
				strings.Join(r.Core, coreGeneSep),
			); err != nil {
				return fmt.Errorf("append enrichment result: %w", err)
			}
		}
		return nil
	})
}

// EnrichmentForRun returns the stored enrichment results for one run
// and method, best p-value first.
func (s *Store) EnrichmentForRun(runID, method string) ([]enrich.Result, error) {
	rows, err := s.db.Query(`SELECT set_id, set_name, set_size, overlap, gene_ratio,
		es, nes, pvalue, padj, core_genes
		FROM enrichment_results
		WHERE run_id=? AND method=?
		ORDER BY pvalue, set_id`, runID, method)
	if err != nil {
		return nil, fmt.Errorf("query enrichment: %w", err)
	}
	defer rows.Close()

	var results []enrich.Result
	for rows.Next() {
		var r enrich.Result
		var core string
		if err := rows.Scan(&r.SetID, &r.SetName, &r.SetSize, &r.Overlap, &r.GeneRatio,
			&r.ES, &r.NES, &r.PValue, &r.PAdj, &core); err != nil {
			return nil, fmt.Errorf("scan enrichment result: %w", err)
		}
		if core != "" {
			r.Core = strings.Split(core, coreGeneSep)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrichment results: %w", err)
	}
	return results, nil
}
