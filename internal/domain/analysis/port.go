package analysis

import (
	"context"
	"io"
)

// Repository port (interface untuk persistence)
type Repository interface {
	Save(ctx context.Context, r *Record) error
	Get(ctx context.Context, device string, id RecordID) (*Record, error)
	Latest(ctx context.Context, device string, limit int) ([]*Record, error)
	Paginate(ctx context.Context, device string, page, pageSize int) ([]*Record, int64, error)
	Delete(ctx context.Context, device string, id RecordID) error
	Clear(ctx context.Context, device string) (int64, error)
	Stats(ctx context.Context, device string) (Stats, error)
}

// LanguageDetector returns an ISO 639-1 code and an English display name.
// The code is empty when the language could not be determined.
type LanguageDetector interface {
	Detect(text string) (code, name string)
}

// Translator translates text into English. An empty source means auto-detect.
type Translator interface {
	Translate(ctx context.Context, text, source string) (string, error)
}

// TextExtractor pulls the text layer out of a PDF document.
type TextExtractor interface {
	ExtractText(ctx context.Context, r io.ReaderAt, size int64) (string, error)
}

// DocumentStore port (interface untuk arsip file upload)
type DocumentStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}
