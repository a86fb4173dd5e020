package translate

import (
	"fmt"
	"strings"
	"time"

	domain "github.com/bryanwahyu/piracy-text/internal/domain/analysis"
)

const (
	ProviderRapidAPI = "rapidapi"
	ProviderOpenAI   = "openai"
	ProviderGoogle   = "google"
)

// Options selects and configures a translator backend.
type Options struct {
	Provider      string
	APIKey        string
	APIHost       string
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string
	Timeout       time.Duration
}

// New builds the translator named by opts.Provider.
func New(opts Options) (domain.Translator, error) {
	switch strings.ToLower(opts.Provider) {
	case "", ProviderRapidAPI:
		if opts.APIKey == "" || opts.APIHost == "" {
			return nil, fmt.Errorf("rapidapi translator needs API_KEY and API_HOST")
		}
		return NewRapidAPI(opts.APIKey, opts.APIHost, opts.Timeout), nil
	case ProviderOpenAI:
		if opts.OpenAIKey == "" {
			return nil, fmt.Errorf("openai translator needs OPENAI_API_KEY")
		}
		return NewOpenAI(opts.OpenAIKey, opts.OpenAIModel, opts.OpenAIBaseURL), nil
	case ProviderGoogle:
		return Google{}, nil
	default:
		return nil, fmt.Errorf("unknown translator provider: %s", opts.Provider)
	}
}
