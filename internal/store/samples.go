package store

import (
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/counts"
)

// SaveSamples records the sample metadata of a run in column order,
// replacing any previous entry under the same run ID.
func (s *Store) SaveSamples(runID string, samples []counts.Sample) error {
	if _, err := s.db.Exec("DELETE FROM samples WHERE run_id=?", runID); err != nil {
		return fmt.Errorf("replace samples: %w", err)
	}
	if len(samples) == 0 {
		return nil
	}

	return s.withAppender("samples", func(appender *goduckdb.Appender) error {
		for i, sm := range samples {
			if err := appender.AppendRow(
				runID, int64(i), sm.Name, sm.Condition, sm.Replicate, sm.Batch,
			); err != nil {
				return fmt.Errorf("append sample: %w", err)
			}
		}
		return nil
	})
}

// SamplesForRun returns a run's sample metadata in stored column order.
func (s *Store) SamplesForRun(runID string) ([]counts.Sample, error) {
	rows, err := s.db.Query(`SELECT name, condition, replicate, batch
		FROM samples WHERE run_id=? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var samples []counts.Sample
	for rows.Next() {
		var sm counts.Sample
		if err := rows.Scan(&sm.Name, &sm.Condition, &sm.Replicate, &sm.Batch); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		samples = append(samples, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return samples, nil
}
