package translate

import (
	"context"

	"github.com/bregydoc/gtranslate"
)

// Google uses the keyless translate.google.com endpoint.
type Google struct{}

func (Google) Translate(ctx context.Context, text, source string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if source == "" {
		source = "auto"
	}
	return gtranslate.TranslateWithParams(text, gtranslate.TranslationParams{
		From: source,
		To:   "en",
	})
}
