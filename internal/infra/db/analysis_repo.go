package db

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	domain "github.com/bryanwahyu/piracy-text/internal/domain/analysis"
)

// Dialect is what differs between the SQL drivers. Queries are written
// with '?' placeholders and rebound for drivers that number them.
type Dialect struct {
	Name     string
	Numbered bool   // $1, $2 ... (postgres)
	Upsert   string // appended to the insert, resolves an id conflict
}

// Rebind rewrites '?' placeholders for the dialect.
func (d Dialect) Rebind(q string) string {
	if !d.Numbered {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, c := range q {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// AnalysisRepository implements analysis.Repository on database/sql.
type AnalysisRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewAnalysisRepository(conn *sql.DB, d Dialect) *AnalysisRepository {
	return &AnalysisRepository{db: conn, dialect: d}
}

func (r *AnalysisRepository) q(query string) string { return r.dialect.Rebind(query) }

// Save insert/update Record
func (r *AnalysisRepository) Save(ctx context.Context, rec *domain.Record) error {
	q := `
INSERT INTO analysis_records (` + Columns + `)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
` + r.dialect.Upsert + `;`
	_, err := r.db.ExecContext(ctx, r.q(q), Args(rec)...)
	return err
}

// Get by ID + device
func (r *AnalysisRepository) Get(ctx context.Context, device string, id domain.RecordID) (*domain.Record, error) {
	const q = `SELECT ` + Columns + `
FROM analysis_records
WHERE device_id=? AND id=?
LIMIT 1;`
	rec, err := ScanRecord(r.db.QueryRowContext(ctx, r.q(q), device, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rec, err
}

// Latest records per device
func (r *AnalysisRepository) Latest(ctx context.Context, device string, limit int) ([]*domain.Record, error) {
	return r.page(ctx, device, limit, 0)
}

// Paginate with offset + limit (classic pagination)
func (r *AnalysisRepository) Paginate(ctx context.Context, device string, page, pageSize int) ([]*domain.Record, int64, error) {
	limit, offset := Offset(page, pageSize)
	list, err := r.page(ctx, device, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, r.q(`SELECT COUNT(*) FROM analysis_records WHERE device_id=?`), device).Scan(&total); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *AnalysisRepository) page(ctx context.Context, device string, limit, offset int) ([]*domain.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `SELECT ` + Columns + `
FROM analysis_records
WHERE device_id=?
ORDER BY created_at DESC, seq DESC
LIMIT ? OFFSET ?;`
	rows, err := r.db.QueryContext(ctx, r.q(q), device, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Record
	for rows.Next() {
		rec, err := ScanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete satu record
func (r *AnalysisRepository) Delete(ctx context.Context, device string, id domain.RecordID) error {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM analysis_records WHERE device_id=? AND id=?`), device, string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Clear hapus semua history device
func (r *AnalysisRepository) Clear(ctx context.Context, device string) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM analysis_records WHERE device_id=?`), device)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Stats rekap per device
func (r *AnalysisRepository) Stats(ctx context.Context, device string) (domain.Stats, error) {
	st := domain.Stats{ByLanguage: map[string]int{}, TopKeywords: []domain.KeywordCount{}}

	const qLang = `
SELECT detected_language, COUNT(*)
FROM analysis_records
WHERE device_id=?
GROUP BY detected_language;`
	rows, err := r.db.QueryContext(ctx, r.q(qLang), device)
	if err != nil {
		return st, err
	}
	for rows.Next() {
		var lang string
		var n int
		if err := rows.Scan(&lang, &n); err != nil {
			rows.Close()
			return st, err
		}
		st.ByLanguage[lang] = n
		st.Total += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return st, err
	}

	const qKw = `SELECT keywords_json FROM analysis_records WHERE device_id=? AND keywords_json <> '[]';`
	rows, err = r.db.QueryContext(ctx, r.q(qKw), device)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	var flagged []string
	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return st, err
		}
		flagged = append(flagged, kw)
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	st.Flagged = len(flagged)
	st.PirateFree = st.Total - st.Flagged
	st.TopKeywords = TallyKeywords(flagged, TopKeywordLimit)
	return st, nil
}
