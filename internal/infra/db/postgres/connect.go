package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

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
  seq               BIGSERIAL PRIMARY KEY,
  id                TEXT      NOT NULL UNIQUE,
  device_id         TEXT      NOT NULL,
  original_text     TEXT      NOT NULL,
  source_text       TEXT      NOT NULL DEFAULT '',
  input_kind        TEXT      NOT NULL DEFAULT 'text',
  file_name         TEXT      NOT NULL DEFAULT '',
  artifact_url      TEXT      NOT NULL DEFAULT '',
  translated_text   TEXT      NOT NULL DEFAULT '',
  language_code     TEXT      NOT NULL DEFAULT '',
  detected_language TEXT      NOT NULL DEFAULT 'Unknown',
  keywords_json     TEXT      NOT NULL DEFAULT '[]',
  created_at        BIGINT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analysis_records_device
  ON analysis_records (device_id, created_at DESC, seq DESC);`

// EnsureSchema creates the history table when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
