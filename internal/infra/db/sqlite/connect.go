package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Connect opens (and creates) the database file at path. ":memory:" works for tests.
func Connect(ctx context.Context, path string) (*sql.DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
	}

	dsn := path
	if path != ":memory:" && !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// single writer; also keeps ":memory:" on one connection
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS analysis_records (
  seq               INTEGER PRIMARY KEY AUTOINCREMENT,
  id                TEXT    NOT NULL UNIQUE,
  device_id         TEXT    NOT NULL,
  original_text     TEXT    NOT NULL,
  source_text       TEXT    NOT NULL DEFAULT '',
  input_kind        TEXT    NOT NULL DEFAULT 'text',
  file_name         TEXT    NOT NULL DEFAULT '',
  artifact_url      TEXT    NOT NULL DEFAULT '',
  translated_text   TEXT    NOT NULL DEFAULT '',
  language_code     TEXT    NOT NULL DEFAULT '',
  detected_language TEXT    NOT NULL DEFAULT 'Unknown',
  keywords_json     TEXT    NOT NULL DEFAULT '[]',
  created_at        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analysis_records_device
  ON analysis_records (device_id, created_at DESC, seq DESC);
`

// EnsureSchema creates the history table when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
