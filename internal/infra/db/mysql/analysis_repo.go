package mysql

import (
	"database/sql"

	"github.com/bryanwahyu/piracy-text/internal/infra/db"
)

var Dialect = db.Dialect{
	Name: "mysql",
	Upsert: `ON DUPLICATE KEY UPDATE
  translated_text=VALUES(translated_text),
  language_code=VALUES(language_code),
  detected_language=VALUES(detected_language),
  keywords_json=VALUES(keywords_json),
  artifact_url=VALUES(artifact_url)`,
}

func NewAnalysisRepository(conn *sql.DB) *db.AnalysisRepository {
	return db.NewAnalysisRepository(conn, Dialect)
}
