package cache

// schemaSQL defines the SQLite schema for the analysis cache.
// analysis_cache memoizes, per cache key (see Key), the AST dump and
// the serialized merged graph. The analyze command fills only
// ast_dump, leaving merged_graph empty.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS analysis_cache (
    cache_key    TEXT PRIMARY KEY,
    file_path    TEXT NOT NULL,
    ast_dump     TEXT NOT NULL,
    merged_graph TEXT NOT NULL,
    created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analysis_cache_file_path ON analysis_cache(file_path);
`

// initSchema creates the database tables if they don't exist.
func (c *Cache) initSchema() error {
	_, err := c.db.Exec(schemaSQL)
	return err
}
