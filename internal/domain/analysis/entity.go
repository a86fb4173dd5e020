package analysis

import (
	"time"
)

// RecordID tipe untuk Record
type RecordID string

// InputKind enum
type InputKind string

const (
	InputText InputKind = "text"
	InputFile InputKind = "file"
)

// UnknownLanguage is the display name used when detection gives no answer.
const UnknownLanguage = "Unknown"

// Record is one successful analysis kept in a device's history.
type Record struct {
	ID               RecordID  `json:"id"`
	DeviceID         string    `json:"device_id"`
	OriginalText     string    `json:"original_text"`
	SourceText       string    `json:"source_text,omitempty"`
	InputKind        InputKind `json:"input_kind"`
	FileName         string    `json:"file_name,omitempty"`
	ArtifactURL      string    `json:"artifact_url,omitempty"`
	TranslatedText   string    `json:"translated_text"`
	LanguageCode     string    `json:"language_code,omitempty"`
	DetectedLanguage string    `json:"detected_language"`
	Keywords         []string  `json:"keywords"`
	CreatedAt        time.Time `json:"created_at"`
}

// PirateFree reports whether no piracy keyword matched.
func (r *Record) PirateFree() bool {
	return len(r.Keywords) == 0
}

// FileLabel is what the history shows in place of an uploaded file's text.
func FileLabel(name string) string {
	return "File: " + name
}

// KeywordCount value object
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// Stats rekap history satu device
type Stats struct {
	Total       int            `json:"total"`
	Flagged     int            `json:"flagged"`
	PirateFree  int            `json:"pirate_free"`
	ByLanguage  map[string]int `json:"by_language"`
	TopKeywords []KeywordCount `json:"top_keywords"`
}
