// Package db holds the pieces shared by the SQL repositories.
package db

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	domain "github.com/bryanwahyu/piracy-text/internal/domain/analysis"
)

// Columns is the select list every driver scans with ScanRecord.
const Columns = `id, device_id, original_text, source_text, input_kind, file_name, artifact_url,
       translated_text, language_code, detected_language, keywords_json, created_at`

// TopKeywordLimit bounds Stats.TopKeywords.
const TopKeywordLimit = 10

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanRecord reads one row selected with Columns.
func ScanRecord(s Scanner) (*domain.Record, error) {
	var r domain.Record
	var kind, keywords string
	var created int64
	if err := s.Scan(
		&r.ID, &r.DeviceID, &r.OriginalText, &r.SourceText, &kind, &r.FileName, &r.ArtifactURL,
		&r.TranslatedText, &r.LanguageCode, &r.DetectedLanguage, &keywords, &created,
	); err != nil {
		return nil, err
	}
	r.InputKind = domain.InputKind(kind)
	r.Keywords = DecodeKeywords(keywords)
	r.CreatedAt = time.UnixMilli(created).UTC()
	return &r, nil
}

// Args returns the insert arguments in Columns order.
func Args(r *domain.Record) []any {
	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	kind := r.InputKind
	if kind == "" {
		kind = domain.InputText
	}
	lang := r.DetectedLanguage
	if strings.TrimSpace(lang) == "" {
		lang = domain.UnknownLanguage
	}
	return []any{
		string(r.ID), r.DeviceID, r.OriginalText, r.SourceText, string(kind), r.FileName, r.ArtifactURL,
		r.TranslatedText, r.LanguageCode, lang, EncodeKeywords(r.Keywords), created.UnixMilli(),
	}
}

// EncodeKeywords always yields a JSON array, never null.
func EncodeKeywords(kw []string) string {
	if len(kw) == 0 {
		return "[]"
	}
	b, err := json.Marshal(kw)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// DecodeKeywords tolerates empty or broken values and returns an empty slice.
func DecodeKeywords(s string) []string {
	out := []string{}
	if strings.TrimSpace(s) == "" {
		return out
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

// TallyKeywords counts keywords across encoded lists, most frequent first.
func TallyKeywords(encoded []string, limit int) []domain.KeywordCount {
	counts := map[string]int{}
	for _, e := range encoded {
		for _, kw := range DecodeKeywords(e) {
			counts[kw]++
		}
	}
	out := make([]domain.KeywordCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, domain.KeywordCount{Keyword: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Keyword < out[j].Keyword
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Offset converts 1-based page numbers, applying the defaults used everywhere.
func Offset(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return pageSize, (page - 1) * pageSize
}
