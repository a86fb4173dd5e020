package analysis

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/piracy-text/internal/application"
	domain "github.com/bryanwahyu/piracy-text/internal/domain/analysis"
)

type memRepo struct {
	mu   sync.Mutex
	recs []*domain.Record
	err  error
}

func (m *memRepo) Save(_ context.Context, r *domain.Record) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, r)
	return nil
}

func (m *memRepo) byDevice(device string) []*domain.Record {
	var out []*domain.Record
	for i := len(m.recs) - 1; i >= 0; i-- {
		if m.recs[i].DeviceID == device {
			out = append(out, m.recs[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memRepo) Get(_ context.Context, device string, id domain.RecordID) (*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.byDevice(device) {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memRepo) Latest(_ context.Context, device string, limit int) ([]*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.byDevice(device)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) Paginate(_ context.Context, device string, page, pageSize int) ([]*domain.Record, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.byDevice(device)
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, int64(len(all)), nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (m *memRepo) Delete(_ context.Context, device string, id domain.RecordID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.recs {
		if r.DeviceID == device && r.ID == id {
			m.recs = append(m.recs[:i], m.recs[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memRepo) Clear(_ context.Context, device string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*domain.Record
	var n int64
	for _, r := range m.recs {
		if r.DeviceID == device {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.recs = kept
	return n, nil
}

func (m *memRepo) Stats(_ context.Context, device string) (domain.Stats, error) {
	return domain.Stats{Total: len(m.byDevice(device))}, nil
}

type fakeDetector struct{ code, name string }

func (f fakeDetector) Detect(string) (string, string) { return f.code, f.name }

type fakeTranslator struct {
	out    string
	err    error
	calls  int
	source string
}

func (f *fakeTranslator) Translate(_ context.Context, _ string, source string) (string, error) {
	f.calls++
	f.source = source
	return f.out, f.err
}

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) ExtractText(context.Context, io.ReaderAt, int64) (string, error) {
	return f.text, f.err
}

type fakeDocs struct {
	key  string
	body []byte
	err  error
}

func (f *fakeDocs) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.key = key
	f.body, _ = io.ReadAll(r)
	return "http://minio/bucket/" + key, nil
}

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestService(det fakeDetector, tr *fakeTranslator) (*Service, *memRepo) {
	repo := &memRepo{}
	return &Service{
		Repo:       repo,
		Detector:   det,
		Translator: tr,
		Extractor:  fakeExtractor{text: "  hola mundo torrent  "},
		Clock:      application.FixedClock{T: fixedNow},
	}, repo
}

func pdfUpload(name string, data []byte) *Upload {
	return &Upload{Name: name, Size: int64(len(data)), Body: bytes.NewReader(data)}
}

func TestProcess_TranslatesNonEnglish(t *testing.T) {
	tr := &fakeTranslator{out: "download the cracked version via torrent"}
	svc, repo := newTestService(fakeDetector{"es", "Spanish"}, tr)

	rec, err := svc.Process(context.Background(), ProcessCommand{DeviceID: "dev1", Text: "  descarga la versión crackeada  "})
	require.NoError(t, err)

	assert.Equal(t, 1, tr.calls)
	assert.Equal(t, "es", tr.source)
	assert.Equal(t, "descarga la versión crackeada", rec.OriginalText)
	assert.Equal(t, "Spanish", rec.DetectedLanguage)
	assert.Equal(t, "es", rec.LanguageCode)
	assert.Equal(t, []string{"torrent", "cracked version"}, rec.Keywords)
	assert.Equal(t, fixedNow, rec.CreatedAt)
	assert.Equal(t, domain.InputText, rec.InputKind)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.PirateFree())
	require.Len(t, repo.recs, 1)
}

func TestProcess_EnglishSkipsTranslation(t *testing.T) {
	tr := &fakeTranslator{}
	svc, _ := newTestService(fakeDetector{"en", "English"}, tr)

	rec, err := svc.Process(context.Background(), ProcessCommand{DeviceID: "dev1", Text: "A perfectly ordinary sentence."})
	require.NoError(t, err)

	assert.Zero(t, tr.calls)
	assert.Equal(t, "A perfectly ordinary sentence.", rec.TranslatedText)
	assert.Empty(t, rec.Keywords)
	assert.True(t, rec.PirateFree())
}

func TestProcess_UnknownLanguage(t *testing.T) {
	tr := &fakeTranslator{out: "something"}
	svc, _ := newTestService(fakeDetector{}, tr)

	rec, err := svc.Process(context.Background(), ProcessCommand{DeviceID: "dev1", Text: "zzzzzz qqqq"})
	require.NoError(t, err)
	assert.Equal(t, 1, tr.calls)
	assert.Equal(t, "", tr.source)
	assert.Equal(t, domain.UnknownLanguage, rec.DetectedLanguage)
}

func TestProcess_ValidationErrors(t *testing.T) {
	svc, repo := newTestService(fakeDetector{"en", "English"}, &fakeTranslator{})

	_, err := svc.Process(context.Background(), ProcessCommand{DeviceID: "dev1", Text: "   "})
	assert.ErrorIs(t, err, domain.ErrEmptyInput)

	_, err = svc.Process(context.Background(), ProcessCommand{DeviceID: "dev1", Text: " abcd "})
	assert.ErrorIs(t, err, domain.ErrInputTooShort)

	_, err = svc.Process(context.Background(), ProcessCommand{DeviceID: "dev1", File: pdfUpload("notes.txt", []byte("x"))})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFile)

	svc.MaxUploadBytes = 4
	_, err = svc.Process(context.Background(), ProcessCommand{DeviceID: "dev1", File: pdfUpload("big.pdf", []byte("12345"))})
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)

	assert.Empty(t, repo.recs)
}

func TestProcess_FileUpload(t *testing.T) {
	tr := &fakeTranslator{out: "hello world torrent"}
	svc, _ := newTestService(fakeDetector{"es", "Spanish"}, tr)
	docs := &fakeDocs{}
	svc.Documents = docs

	rec, err := svc.Process(context.Background(), ProcessCommand{
		DeviceID: "dev1",
		Text:     "ignored because a file wins",
		File:     pdfUpload("Report.PDF", []byte("%PDF-1.4 data")),
	})
	require.NoError(t, err)

	assert.Equal(t, "File: Report.PDF", rec.OriginalText)
	assert.Equal(t, "hola mundo torrent", rec.SourceText)
	assert.Equal(t, domain.InputFile, rec.InputKind)
	assert.Equal(t, "Report.PDF", rec.FileName)
	assert.Equal(t, "dev1/"+string(rec.ID)+"/Report.PDF", docs.key)
	assert.Equal(t, []byte("%PDF-1.4 data"), docs.body)
	assert.Equal(t, "http://minio/bucket/"+docs.key, rec.ArtifactURL)
}

func TestProcess_ArchiveFailureIsNotFatal(t *testing.T) {
	svc, repo := newTestService(fakeDetector{"es", "Spanish"}, &fakeTranslator{out: "hello world"})
	svc.Documents = &fakeDocs{err: errors.New("minio down")}

	rec, err := svc.Process(context.Background(), ProcessCommand{DeviceID: "dev1", File: pdfUpload("a.pdf", []byte("pdf"))})
	require.NoError(t, err)
	assert.Empty(t, rec.ArtifactURL)
	assert.Len(t, repo.recs, 1)
}

func TestProcess_ExtractFailure(t *testing.T) {
	svc, repo := newTestService(fakeDetector{"en", "English"}, &fakeTranslator{})
	svc.Extractor = fakeExtractor{err: errors.New("malformed xref")}

	_, err := svc.Process(context.Background(), ProcessCommand{DeviceID: "dev1", File: pdfUpload("a.pdf", []byte("junk"))})
	assert.ErrorIs(t, err, domain.ErrExtractFailed)
	assert.Contains(t, err.Error(), "malformed xref")
	assert.Empty(t, repo.recs)
}

func TestProcess_TranslationErrors(t *testing.T) {
	svc, repo := newTestService(fakeDetector{"fr", "French"}, &fakeTranslator{err: errors.New("status 500")})
	_, err := svc.Process(context.Background(), ProcessCommand{DeviceID: "dev1", Text: "bonjour tout le monde"})
	assert.ErrorIs(t, err, domain.ErrTranslationFailed)

	svc.Translator = &fakeTranslator{err: domain.ErrQuotaExceeded}
	_, err = svc.Process(context.Background(), ProcessCommand{DeviceID: "dev1", Text: "bonjour tout le monde"})
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
	assert.NotErrorIs(t, err, domain.ErrTranslationFailed)

	assert.Empty(t, repo.recs)
}

func TestProcess_SaveFailure(t *testing.T) {
	svc, repo := newTestService(fakeDetector{"en", "English"}, &fakeTranslator{})
	repo.err = errors.New("disk full")

	_, err := svc.Process(context.Background(), ProcessCommand{DeviceID: "dev1", Text: "hello there"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestHistory_PagingAndClear(t *testing.T) {
	svc, repo := newTestService(fakeDetector{"en", "English"}, &fakeTranslator{})
	for i := 0; i < 25; i++ {
		repo.recs = append(repo.recs, &domain.Record{
			ID:        domain.RecordID(string(rune('a' + i))),
			DeviceID:  "dev1",
			CreatedAt: fixedNow.Add(time.Duration(i) * time.Minute),
		})
	}
	repo.recs = append(repo.recs, &domain.Record{ID: "other", DeviceID: "dev2", CreatedAt: fixedNow})

	page, err := svc.History(context.Background(), "dev1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Data, 20)
	assert.True(t, page.Data[0].CreatedAt.After(page.Data[1].CreatedAt))

	page, err = svc.History(context.Background(), "dev1", 2, 500)
	require.NoError(t, err)
	assert.Equal(t, 100, page.PageSize)
	assert.Empty(t, page.Data)

	latest, err := svc.Latest(context.Background(), "dev1", 3)
	require.NoError(t, err)
	assert.Len(t, latest, 3)

	n, err := svc.ClearHistory(context.Background(), "dev1")
	require.NoError(t, err)
	assert.Equal(t, int64(25), n)

	latest, err = svc.Latest(context.Background(), "dev1", 10)
	require.NoError(t, err)
	assert.NotNil(t, latest)
	assert.Empty(t, latest)

	_, err = svc.Get(context.Background(), "dev2", "other")
	assert.NoError(t, err)
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(fakeDetector{"en", "English"}, &fakeTranslator{})
	rec, err := svc.Process(context.Background(), ProcessCommand{DeviceID: "dev1", Text: "hello there"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(context.Background(), "dev2", rec.ID), domain.ErrNotFound)
	require.NoError(t, svc.Delete(context.Background(), "dev1", rec.ID))
	_, err = svc.Get(context.Background(), "dev1", rec.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
