// Package cache provides SQLite-backed memoization of Stage A's AST
// dump and Stage D's merged graph, keyed by a content hash of the
// source file plus a clang identifier and a config representation
// supplied by the caller. The analyze command stores and reads back
// only the AST dump, so a second run against an unchanged file skips
// re-invoking clang but still re-runs the extraction and merge stages.
// Open(dir) creates or
// opens a WAL-mode database and initializes the analysis_cache schema
// (see schema.go).
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Cache manages the .delphino/cache.db SQLite database.
type Cache struct {
	db     *sql.DB
	dbPath string
}

// Open opens or creates the cache database inside delphinoDir.
func Open(delphinoDir string) (*Cache, error) {
	dbPath := filepath.Join(delphinoDir, "cache.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	c := &Cache{db: db, dbPath: dbPath}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return c, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Path returns the database file path.
func (c *Cache) Path() string { return c.dbPath }

// Key computes the cache key for a source file: a SHA-256 digest of
// its content, the clang version string in effect, and the config
// hash (callers pass whatever representation of the active config
// they want folded in — typically a marshaled config.Config).
func Key(fileContent, clangVersion, configHash string) string {
	h := sha256.New()
	h.Write([]byte(fileContent))
	h.Write([]byte{0})
	h.Write([]byte(clangVersion))
	h.Write([]byte{0})
	h.Write([]byte(configHash))
	return hex.EncodeToString(h.Sum(nil))
}

// Entry is one cached analysis result.
type Entry struct {
	FilePath    string
	ASTDump     string
	MergedGraph string
}

// Get returns the cached entry for key, if any.
func (c *Cache) Get(key string) (*Entry, bool, error) {
	var e Entry
	err := c.db.QueryRow(
		"SELECT file_path, ast_dump, merged_graph FROM analysis_cache WHERE cache_key = ?", key,
	).Scan(&e.FilePath, &e.ASTDump, &e.MergedGraph)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cache entry: %w", err)
	}
	return &e, true, nil
}

// Put stores (or replaces) the cached entry for key.
func (c *Cache) Put(key string, e Entry) error {
	_, err := c.db.Exec(
		`INSERT INTO analysis_cache (cache_key, file_path, ast_dump, merged_graph, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
		   file_path = excluded.file_path,
		   ast_dump = excluded.ast_dump,
		   merged_graph = excluded.merged_graph,
		   created_at = excluded.created_at`,
		key, e.FilePath, e.ASTDump, e.MergedGraph, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}

// Clear removes all cached entries.
func (c *Cache) Clear() error {
	_, err := c.db.Exec("DELETE FROM analysis_cache")
	if err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}
