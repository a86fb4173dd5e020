package postgres

import (
	"database/sql"

	"github.com/bryanwahyu/piracy-text/internal/infra/db"
)

var Dialect = db.Dialect{
	Name:     "postgres",
	Numbered: true,
	Upsert: `ON CONFLICT (id) DO UPDATE SET
  translated_text=EXCLUDED.translated_text,
  language_code=EXCLUDED.language_code,
  detected_language=EXCLUDED.detected_language,
  keywords_json=EXCLUDED.keywords_json,
  artifact_url=EXCLUDED.artifact_url`,
}

func NewAnalysisRepository(conn *sql.DB) *db.AnalysisRepository {
	return db.NewAnalysisRepository(conn, Dialect)
}
