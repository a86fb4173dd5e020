package detect

import (
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	domain "github.com/bryanwahyu/piracy-text/internal/domain/analysis"
)

// Detector implements analysis.LanguageDetector on top of whatlanggo.
type Detector struct {
	names display.Namer
}

func NewDetector() *Detector {
	return &Detector{names: display.English.Languages()}
}

// Detect returns the ISO 639-1 code and English name of the text's language.
// Unreliable guesses come back as ("", Unknown).
func (d *Detector) Detect(text string) (string, string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.UnknownLanguage
	}
	info := whatlanggo.Detect(text)
	// short inputs often land on a neighbouring language; let the translator auto-detect
	if !info.IsReliable() {
		return "", domain.UnknownLanguage
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return "", fallbackName(info.Lang.String())
	}
	return code, d.Name(code, info.Lang.String())
}

// Name resolves a display name for code, using fallback when x/text has none.
func (d *Detector) Name(code, fallback string) string {
	tag, err := language.Parse(code)
	if err == nil {
		if n := d.names.Name(tag); n != "" {
			return n
		}
	}
	return fallbackName(fallback)
}

func fallbackName(name string) string {
	if name == "" {
		return domain.UnknownLanguage
	}
	return name
}
