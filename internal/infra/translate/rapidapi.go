package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	domain "github.com/bryanwahyu/piracy-text/internal/domain/analysis"
)

// RapidAPI calls the Google Translate v2 API published on RapidAPI.
type RapidAPI struct {
	APIKey  string
	Host    string
	BaseURL string // defaults to https://{Host}
	HTTP    *http.Client
}

func NewRapidAPI(apiKey, host string, timeout time.Duration) *RapidAPI {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RapidAPI{
		APIKey: apiKey,
		Host:   host,
		HTTP:   &http.Client{Timeout: timeout},
	}
}

type rapidRequest struct {
	Q      string `json:"q"`
	Source string `json:"source,omitempty"`
	Target string `json:"target"`
	Format string `json:"format"`
}

type rapidResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

func (c *RapidAPI) Translate(ctx context.Context, text, source string) (string, error) {
	payload, err := json.Marshal(rapidRequest{Q: text, Source: source, Target: "en", Format: "text"})
	if err != nil {
		return "", err
	}

	base := c.BaseURL
	if base == "" {
		base = "https://" + c.Host
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+"/v2", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-rapidapi-key", c.APIKey)
	req.Header.Set("x-rapidapi-host", c.Host)
	req.Header.Set("Content-Type", "application/json")

	httpc := c.HTTP
	if httpc == nil {
		httpc = http.DefaultClient
	}
	res, err := httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("translation request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read translation response: %w", err)
	}
	if res.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: %s", domain.ErrQuotaExceeded, strings.TrimSpace(string(body)))
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translation API failed with status code %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var out rapidResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode translation response: %w", err)
	}
	if len(out.Data.Translations) == 0 {
		return "", fmt.Errorf("translation response has no translations")
	}
	return out.Data.Translations[0].TranslatedText, nil
}
