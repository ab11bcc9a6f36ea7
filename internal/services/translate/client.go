// Package translate wraps a Google Translate v2 compatible API for text
// translation and language detection.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"revoice/internal/config"
	"revoice/internal/jobs"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/transcript"
)

const stage = "translate"

// Client issues translation and detection requests.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New builds a translation client from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	timeout := time.Duration(cfg.Translation.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &Client{
		baseURL:    strings.TrimRight(cfg.Translation.BaseURL, "/"),
		apiKey:     cfg.Translation.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(logger, "translate"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Translate converts text into targetLang. sourceLang "auto" or empty lets
// the provider detect it. Blank input passes through unchanged.
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	if c.apiKey == "" {
		return "", services.Wrap(services.ErrConfiguration, stage, "translate", "translation api key not configured", nil)
	}

	form := url.Values{}
	form.Set("q", text)
	form.Set("target", targetLang)
	form.Set("format", "text")
	if sourceLang != "" && sourceLang != jobs.AutoDetect {
		form.Set("source", sourceLang)
	}

	var response struct {
		Data struct {
			Translations []struct {
				TranslatedText string `json:"translatedText"`
			} `json:"translations"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/language/translate/v2", form, &response); err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage, "translate", "", err)
	}
	if len(response.Data.Translations) == 0 {
		return "", services.Wrap(services.ErrExternalTool, stage, "translate", "no translation in response", nil)
	}
	return response.Data.Translations[0].TranslatedText, nil
}

// Detect identifies the language of a text sample.
func (c *Client) Detect(ctx context.Context, text string) (transcript.DetectedLanguage, error) {
	unknown := transcript.DetectedLanguage{Code: "unknown", Name: "Unknown"}
	if strings.TrimSpace(text) == "" {
		return unknown, nil
	}
	if c.apiKey == "" {
		return unknown, services.Wrap(services.ErrConfiguration, stage, "detect", "translation api key not configured", nil)
	}

	form := url.Values{}
	form.Set("q", text)

	var response struct {
		Data struct {
			Detections [][]struct {
				Language   string  `json:"language"`
				Confidence float64 `json:"confidence"`
			} `json:"detections"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/language/translate/v2/detect", form, &response); err != nil {
		return unknown, services.Wrap(services.ErrExternalTool, stage, "detect", "", err)
	}
	if len(response.Data.Detections) == 0 || len(response.Data.Detections[0]) == 0 {
		return unknown, nil
	}

	top := response.Data.Detections[0][0]
	code := transcript.NormalizeLanguageCode(top.Language)
	return transcript.DetectedLanguage{
		Code:       code,
		Name:       transcript.LanguageName(code),
		Confidence: round3(top.Confidence),
	}, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	form.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func round3(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}
