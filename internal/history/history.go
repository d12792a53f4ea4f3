// Package history provides version-controlled run history for
// delphino: every completed analysis (merged graph, node/edge counts,
// symbol table snapshot) is appended as a row in a Dolt-backed
// database, so `delphino history` and `delphino history diff` can
// compare how a translation unit's external call surface changed
// across two recorded runs. Grounded on internal/store/db.go's own
// use of Dolt as cx's primary code-graph store (Open(dir) creating the
// .delphino/history Dolt repo, CREATE DATABASE IF NOT EXISTS, then
// reconnecting scoped to it), generalized from "the whole code graph"
// to one append-only table of merged-graph run snapshots.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/dolthub/driver"
)

// Store manages the .delphino/history Dolt database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens or creates the history store inside delphinoDir.
func Open(delphinoDir string) (*Store, error) {
	if err := os.MkdirAll(delphinoDir, 0755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	dbPath := filepath.Join(delphinoDir, "history")
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("create dolt directory: %w", err)
	}

	initDSN := fmt.Sprintf("file://%s?commitname=delphino&commitemail=delphino@local", dbPath)
	initDB, err := sql.Open("dolt", initDSN)
	if err != nil {
		return nil, fmt.Errorf("open dolt for init: %w", err)
	}
	if _, err := initDB.Exec("CREATE DATABASE IF NOT EXISTS delphino_history"); err != nil {
		initDB.Close()
		return nil, fmt.Errorf("create database: %w", err)
	}
	initDB.Close()

	dsn := fmt.Sprintf("file://%s?commitname=delphino&commitemail=delphino@local&database=delphino_history", dbPath)
	db, err := sql.Open("dolt", dsn)
	if err != nil {
		return nil, fmt.Errorf("open dolt db: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// OpenDefault opens the history store in the default .delphino
// directory under the current working directory.
func OpenDefault() (*Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	return Open(filepath.Join(cwd, ".delphino"))
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id           INT AUTO_INCREMENT PRIMARY KEY,
    file_path    TEXT NOT NULL,
    node_count   INT NOT NULL,
    edge_count   INT NOT NULL,
    symbol_table TEXT NOT NULL,
    merged_graph TEXT NOT NULL,
    recorded_at  TEXT NOT NULL
);
`

func (s *Store) initSchema() error {
	_, err := s.db.Exec(schemaSQL)
	return err
}

// Run is one recorded analysis run.
type Run struct {
	ID          int64
	FilePath    string
	NodeCount   int
	EdgeCount   int
	SymbolTable string
	MergedGraph string
	RecordedAt  string
}

// Record appends a completed analysis run to the history table.
func (s *Store) Record(run Run) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (file_path, node_count, edge_count, symbol_table, merged_graph, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.FilePath, run.NodeCount, run.EdgeCount, run.SymbolTable, run.MergedGraph,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Recent returns the limit most recent runs for filePath, newest
// first. limit<=0 means no limit.
func (s *Store) Recent(filePath string, limit int) ([]Run, error) {
	query := `SELECT id, file_path, node_count, edge_count, symbol_table, merged_graph, recorded_at
	          FROM runs WHERE file_path = ? ORDER BY id DESC`
	args := []any{filePath}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.FilePath, &r.NodeCount, &r.EdgeCount, &r.SymbolTable, &r.MergedGraph, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ByID fetches a single run by id.
func (s *Store) ByID(id int64) (*Run, error) {
	var r Run
	err := s.db.QueryRow(
		`SELECT id, file_path, node_count, edge_count, symbol_table, merged_graph, recorded_at
		 FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.FilePath, &r.NodeCount, &r.EdgeCount, &r.SymbolTable, &r.MergedGraph, &r.RecordedAt)
	if err != nil {
		return nil, fmt.Errorf("get run %d: %w", id, err)
	}
	return &r, nil
}

// Diff describes how the merged external-call surface changed between
// two recorded runs of the same (or different) file.
type Diff struct {
	Added   []string
	Removed []string
}

// DiffRuns compares two runs' edge lists (callers decode each run's
// MergedGraph JSON into an "a->b" string slice before calling this;
// DiffRuns itself only does set arithmetic, so it carries no encoding
// dependency of its own).
func DiffRuns(fromEdges, toEdges []string) Diff {
	fromSet := toSet(fromEdges)
	toSetM := toSet(toEdges)

	var d Diff
	for e := range toSetM {
		if !fromSet[e] {
			d.Added = append(d.Added, e)
		}
	}
	for e := range fromSet {
		if !toSetM[e] {
			d.Removed = append(d.Removed, e)
		}
	}
	return d
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, it := range items {
		s[it] = true
	}
	return s
}
