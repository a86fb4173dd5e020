package mysql

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
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
  seq               BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
  id                VARCHAR(36)  NOT NULL,
  device_id         VARCHAR(64)  NOT NULL,
  original_text     MEDIUMTEXT   NOT NULL,
  source_text       MEDIUMTEXT   NOT NULL,
  input_kind        VARCHAR(8)   NOT NULL,
  file_name         VARCHAR(255) NOT NULL,
  artifact_url      VARCHAR(1024) NOT NULL,
  translated_text   MEDIUMTEXT   NOT NULL,
  language_code     VARCHAR(8)   NOT NULL,
  detected_language VARCHAR(64)  NOT NULL,
  keywords_json     TEXT         NOT NULL,
  created_at        BIGINT       NOT NULL,
  UNIQUE KEY uq_analysis_records_id (id),
  KEY idx_analysis_records_device (device_id, created_at, seq)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

// EnsureSchema creates the history table when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
