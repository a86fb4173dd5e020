package analysis

import "errors"

var (
	ErrEmptyInput        = errors.New("no text or file provided")
	ErrInputTooShort     = errors.New("input text must be at least 5 characters long")
	ErrUnsupportedFile   = errors.New("unsupported file type, please upload a PDF")
	ErrFileTooLarge      = errors.New("uploaded file is too large")
	ErrExtractFailed     = errors.New("failed to extract text from PDF")
	ErrTranslationFailed = errors.New("translation failed")
	// ErrQuotaExceeded indicates the translation provider returned HTTP 429 or similar.
	ErrQuotaExceeded = errors.New("translation quota exceeded")
	ErrNotFound      = errors.New("record not found")
)

// MinTextLength is the shortest input, in runes, worth analysing.
const MinTextLength = 5
