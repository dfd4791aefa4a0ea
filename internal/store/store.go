// Package store persists analysis results in DuckDB so finished runs
// can be queried without recomputing them. Writes go through the
// Appender API, reads through database/sql.
package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"

	goduckdb "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for analysis results.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create results directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id VARCHAR PRIMARY KEY,
			created_at TIMESTAMP,
			design VARCHAR,
			contrast VARCHAR,
			alpha DOUBLE,
			lfc_threshold DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS samples (
			run_id VARCHAR,
			position BIGINT,
			name VARCHAR,
			condition VARCHAR,
			replicate VARCHAR,
			batch VARCHAR,
			PRIMARY KEY (run_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS de_results (
			run_id VARCHAR,
			gene_id VARCHAR,
			base_mean DOUBLE,
			log2_fc DOUBLE,
			lfc_se DOUBLE,
			stat DOUBLE,
			pvalue DOUBLE,
			padj DOUBLE,
			PRIMARY KEY (run_id, gene_id)
		)`,
		`CREATE TABLE IF NOT EXISTS enrichment_results (
			run_id VARCHAR,
			method VARCHAR,
			set_id VARCHAR,
			set_name VARCHAR,
			set_size BIGINT,
			overlap BIGINT,
			gene_ratio DOUBLE,
			es DOUBLE,
			nes DOUBLE,
			pvalue DOUBLE,
			padj DOUBLE,
			core_genes VARCHAR,
			PRIMARY KEY (run_id, method, set_id)
		)`,
		`CREATE TABLE IF NOT EXISTS annotation (
			gene_id VARCHAR PRIMARY KEY,
			symbol VARCHAR,
			description VARCHAR,
			entrez_id VARCHAR,
			biotype VARCHAR
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// withAppender runs fn with an Appender for the given table and flushes
// on success.
func (s *Store) withAppender(table string, fn func(*goduckdb.Appender) error) error {
	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	if err := fn(appender); err != nil {
		return err
	}
	return appender.Flush()
}
