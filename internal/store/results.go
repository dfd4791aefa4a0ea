package store

import (
	"fmt"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/deseq"
)

// RunMeta describes one analysis run.
type RunMeta struct {
	ID           string
	CreatedAt    time.Time
	Design       string
	Contrast     string
	Alpha        float64
	LFCThreshold float64
}

// SaveRun records run metadata, replacing any previous entry with the
// same ID.
func (s *Store) SaveRun(meta RunMeta) error {
	if _, err := s.db.Exec("DELETE FROM runs WHERE run_id=?", meta.ID); err != nil {
		return fmt.Errorf("replace run: %w", err)
	}
	_, err := s.db.Exec(
		"INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?)",
		meta.ID, meta.CreatedAt, meta.Design, meta.Contrast, meta.Alpha, meta.LFCThreshold,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// ListRuns returns all recorded runs, newest first.
func (s *Store) ListRuns() ([]RunMeta, error) {
	rows, err := s.db.Query(`SELECT run_id, created_at, design, contrast, alpha, lfc_threshold
		FROM runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunMeta
	for rows.Next() {
		var m RunMeta
		if err := rows.Scan(&m.ID, &m.CreatedAt, &m.Design, &m.Contrast, &m.Alpha, &m.LFCThreshold); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// SaveResults batch-inserts the differential expression results for a
// run using the Appender API, replacing any previous results under the
// same run ID.
func (s *Store) SaveResults(runID string, rs deseq.Results) error {
	if _, err := s.db.Exec("DELETE FROM de_results WHERE run_id=?", runID); err != nil {
		return fmt.Errorf("replace results: %w", err)
	}
	if len(rs) == 0 {
		return nil
	}

	return s.withAppender("de_results", func(appender *goduckdb.Appender) error {
		for _, r := range rs {
			if err := appender.AppendRow(
				runID, r.GeneID, r.BaseMean, r.Log2FC, r.LfcSE,
				r.Stat, r.PValue, r.PAdj,
			); err != nil {
				return fmt.Errorf("append result: %w", err)
			}
		}
		return nil
	})
}

// ResultsForRun returns all results of a run ordered by gene ID.
func (s *Store) ResultsForRun(runID string) (deseq.Results, error) {
	rows, err := s.db.Query(`SELECT gene_id, base_mean, log2_fc, lfc_se, stat, pvalue, padj
		FROM de_results WHERE run_id=? ORDER BY gene_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// SignificantResults returns the results of a run passing the adjusted
// p-value cutoff and fold-change threshold, best first. Genes without a
// usable test are never significant.
func (s *Store) SignificantResults(runID string, alpha, lfcThreshold float64) (deseq.Results, error) {
	rows, err := s.db.Query(`SELECT gene_id, base_mean, log2_fc, lfc_se, stat, pvalue, padj
		FROM de_results
		WHERE run_id=? AND padj < ? AND abs(log2_fc) >= ?
		ORDER BY padj, gene_id`, runID, alpha, lfcThreshold)
	if err != nil {
		return nil, fmt.Errorf("query significant results: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// GeneResult pairs a stored result with the run that produced it.
type GeneResult struct {
	RunID  string
	Result deseq.Result
}

// ResultsForGene returns every stored result for a gene across runs.
func (s *Store) ResultsForGene(geneID string) ([]GeneResult, error) {
	rows, err := s.db.Query(`SELECT run_id, gene_id, base_mean, log2_fc, lfc_se, stat, pvalue, padj
		FROM de_results WHERE gene_id=? ORDER BY run_id`, geneID)
	if err != nil {
		return nil, fmt.Errorf("query gene: %w", err)
	}
	defer rows.Close()

	var out []GeneResult
	for rows.Next() {
		var g GeneResult
		r := &g.Result
		if err := rows.Scan(&g.RunID, &r.GeneID, &r.BaseMean, &r.Log2FC,
			&r.LfcSE, &r.Stat, &r.PValue, &r.PAdj); err != nil {
			return nil, fmt.Errorf("scan gene result: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gene results: %w", err)
	}
	return out, nil
}

// scanResults scans de_results rows without the run_id column.
func scanResults(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) (deseq.Results, error) {
	var results deseq.Results
	for rows.Next() {
		var r deseq.Result
		if err := rows.Scan(&r.GeneID, &r.BaseMean, &r.Log2FC, &r.LfcSE,
			&r.Stat, &r.PValue, &r.PAdj); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}
