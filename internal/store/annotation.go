package store

import (
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/annotation"
)

// SaveAnnotation replaces the stored annotation table.
func (s *Store) SaveAnnotation(table annotation.Table) error {
	if _, err := s.db.Exec("DELETE FROM annotation"); err != nil {
		return fmt.Errorf("replace annotation: %w", err)
	}
	if len(table) == 0 {
		return nil
	}

	return s.withAppender("annotation", func(appender *goduckdb.Appender) error {
		for _, id := range table.GeneIDs() {
			r := table[id]
			if err := appender.AppendRow(
				r.GeneID, r.Symbol, r.Description, r.EntrezID, r.Biotype,
			); err != nil {
				return fmt.Errorf("append annotation: %w", err)
			}
		}
		return nil
	})
}

// LoadAnnotation returns the stored annotation table.
func (s *Store) LoadAnnotation() (annotation.Table, error) {
	rows, err := s.db.Query("SELECT gene_id, symbol, description, entrez_id, biotype FROM annotation")
	if err != nil {
		return nil, fmt.Errorf("query annotation: %w", err)
	}
	defer rows.Close()

	table := make(annotation.Table)
	for rows.Next() {
		var r annotation.Record
		if err := rows.Scan(&r.GeneID, &r.Symbol, &r.Description, &r.EntrezID, &r.Biotype); err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		table[r.GeneID] = &r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate annotation: %w", err)
	}
	return table, nil
}
