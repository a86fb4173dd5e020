package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/piracy-text/internal/application"
	domain "github.com/bryanwahyu/piracy-text/internal/domain/analysis"
)

const (
	defaultPageSize  = 20
	maxPageSize      = 100
	DefaultMaxUpload = 10 << 20
)

// Service implements use-cases untuk analysis history.
// Service is safe for concurrent use as long as its ports are.
type Service struct {
	Repo       domain.Repository
	Detector   domain.LanguageDetector
	Translator domain.Translator
	Extractor  domain.TextExtractor
	Documents  domain.DocumentStore // optional
	Clock      application.Clock
	Logger     *zap.Logger

	// MaxUploadBytes caps PDF uploads; zero means DefaultMaxUpload.
	MaxUploadBytes int64
}

//
// ==== USE CASES ====
//

// Upload is a file received from the client.
type Upload struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.ReaderAt
}

// ProcessCommand untuk satu analisis
type ProcessCommand struct {
	DeviceID string
	Text     string
	File     *Upload
}

// Process extracts, detects, translates and matches one input, then stores
// the record. Nothing is stored when any step fails.
func (s *Service) Process(ctx context.Context, cmd ProcessCommand) (*domain.Record, error) {
	if cmd.File == nil && strings.TrimSpace(cmd.Text) == "" {
		return nil, domain.ErrEmptyInput
	}

	rec := &domain.Record{
		ID:        domain.RecordID(uuid.New().String()),
		DeviceID:  cmd.DeviceID,
		InputKind: domain.InputText,
	}

	text := cmd.Text
	if cmd.File != nil {
		extracted, err := s.extract(ctx, cmd.File)
		if err != nil {
			return nil, err
		}
		text = extracted
		rec.InputKind = domain.InputFile
		rec.FileName = cmd.File.Name
		rec.OriginalText = domain.FileLabel(cmd.File.Name)
	}

	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < domain.MinTextLength {
		return nil, domain.ErrInputTooShort
	}
	if rec.InputKind == domain.InputText {
		rec.OriginalText = text
	}
	rec.SourceText = text

	code, name := s.Detector.Detect(text)
	rec.LanguageCode = code
	rec.DetectedLanguage = name
	if rec.DetectedLanguage == "" {
		rec.DetectedLanguage = domain.UnknownLanguage
	}

	english := text
	if code != "en" {
		translated, err := s.Translator.Translate(ctx, text, code)
		if err != nil {
			s.logger().Warn("translation failed",
				zap.String("device", cmd.DeviceID),
				zap.String("source", code),
				zap.Error(err))
			if errors.Is(err, domain.ErrQuotaExceeded) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrTranslationFailed, err)
		}
		english = translated
	}
	rec.TranslatedText = english
	rec.Keywords = domain.MatchKeywords(english)

	if cmd.File != nil && s.Documents != nil {
		rec.ArtifactURL = s.archive(ctx, rec, cmd.File)
	}

	rec.CreatedAt = s.now()
	if err := s.Repo.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("save record: %w", err)
	}

	s.logger().Info("analysis stored",
		zap.String("id", string(rec.ID)),
		zap.String("device", rec.DeviceID),
		zap.String("kind", string(rec.InputKind)),
		zap.String("language", rec.LanguageCode),
		zap.Int("keywords", len(rec.Keywords)))
	return rec, nil
}

func (s *Service) extract(ctx context.Context, f *Upload) (string, error) {
	if !strings.EqualFold(filepath.Ext(f.Name), ".pdf") {
		return "", domain.ErrUnsupportedFile
	}
	if f.Size > s.maxUpload() {
		return "", domain.ErrFileTooLarge
	}
	text, err := s.Extractor.ExtractText(ctx, f.Body, f.Size)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrExtractFailed, err)
	}
	return text, nil
}

// archive uploads the original PDF; failure only costs the artifact URL.
func (s *Service) archive(ctx context.Context, rec *domain.Record, f *Upload) string {
	key := fmt.Sprintf("%s/%s/%s", rec.DeviceID, rec.ID, filepath.Base(f.Name))
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	url, err := s.Documents.Put(ctx, key, io.NewSectionReader(f.Body, 0, f.Size), f.Size, contentType)
	if err != nil {
		s.logger().Warn("archive upload failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	return url
}

// History returns one page of a device's records, newest first.
func (s *Service) History(ctx context.Context, device string, page, pageSize int) (domain.Page, error) {
	if page <= 0 {
		page = 1
	}
	pageSize = clampPageSize(pageSize)
	list, total, err := s.Repo.Paginate(ctx, device, page, pageSize)
	if err != nil {
		return domain.Page{}, err
	}
	return domain.NewPage(list, page, pageSize, total), nil
}

// Latest ambil N record terakhir
func (s *Service) Latest(ctx context.Context, device string, limit int) ([]*domain.Record, error) {
	list, err := s.Repo.Latest(ctx, device, clampPageSize(limit))
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*domain.Record{}
	}
	return list, nil
}

// Get ambil 1 record by id
func (s *Service) Get(ctx context.Context, device string, id domain.RecordID) (*domain.Record, error) {
	return s.Repo.Get(ctx, device, id)
}

// Delete removes a single record.
func (s *Service) Delete(ctx context.Context, device string, id domain.RecordID) error {
	return s.Repo.Delete(ctx, device, id)
}

// ClearHistory drops every record of the device and reports how many went.
func (s *Service) ClearHistory(ctx context.Context, device string) (int64, error) {
	n, err := s.Repo.Clear(ctx, device)
	if err != nil {
		return 0, err
	}
	s.logger().Info("history cleared", zap.String("device", device), zap.Int64("removed", n))
	return n, nil
}

// Stats rekap history device
func (s *Service) Stats(ctx context.Context, device string) (domain.Stats, error) {
	return s.Repo.Stats(ctx, device)
}

// helper
func clampPageSize(n int) int {
	if n <= 0 {
		return defaultPageSize
	}
	if n > maxPageSize {
		return maxPageSize
	}
	return n
}

func (s *Service) maxUpload() int64 {
	if s.MaxUploadBytes > 0 {
		return s.MaxUploadBytes
	}
	return DefaultMaxUpload
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
