package sqlite

import (
	"database/sql"

	"github.com/bryanwahyu/piracy-text/internal/infra/db"
)

// Dialect is the sqlite flavour of the shared repository.
var Dialect = db.Dialect{
	Name: "sqlite",
	Upsert: `ON CONFLICT (id) DO UPDATE SET
  translated_text=excluded.translated_text,
  language_code=excluded.language_code,
  detected_language=excluded.detected_language,
  keywords_json=excluded.keywords_json,
  artifact_url=excluded.artifact_url`,
}

func NewAnalysisRepository(conn *sql.DB) *db.AnalysisRepository {
	return db.NewAnalysisRepository(conn, Dialect)
}
