// Package diarize wraps a pyannote-style speaker diarization service.
package diarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"revoice/internal/config"
	"revoice/internal/logging"
	"revoice/internal/providers"
	"revoice/internal/services"
)

const stage = "transcribe"

// Client posts audio to the diarization service.
type Client struct {
	baseURL    string
	hfToken    string
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

// New builds a diarization client from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	timeout := time.Duration(cfg.Transcription.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	client := &Client{
		baseURL:    strings.TrimRight(cfg.Transcription.DiarizeURL, "/"),
		hfToken:    cfg.Transcription.HFToken,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(logger, "diarize"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Diarize labels who speaks when. A missing service or token returns
// services.ErrUnavailable so the caller can fall back to gap-based speaker
// assignment instead of failing the stage.
func (c *Client) Diarize(ctx context.Context, audioFile string) ([]providers.SpeakerTurn, error) {
	if c.baseURL == "" {
		return nil, services.Wrap(services.ErrUnavailable, stage, "diarize", "diarization service not configured", nil)
	}
	if c.hfToken == "" {
		return nil, services.Wrap(services.ErrUnavailable, stage, "diarize", "hugging face token not configured", nil)
	}

	file, err := os.Open(audioFile)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, stage, "diarize", "open audio file", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioFile))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stage, "diarize", "build multipart body", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stage, "diarize", "copy audio file", err)
	}
	if err := writer.Close(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stage, "diarize", "finalize multipart body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/diarize", &body)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stage, "diarize", "build request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.hfToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, stage, "diarize", "request failed", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stage, "diarize", "read response", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, services.Wrap(services.ErrExternalTool, stage, "diarize",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}

	var response struct {
		Segments []struct {
			Speaker string  `json:"speaker"`
			Start   float64 `json:"start"`
			End     float64 `json:"end"`
		} `json:"segments"`
	}
	if err := json.Unmarshal(payload, &response); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stage, "diarize", "decode response", err)
	}

	turns := make([]providers.SpeakerTurn, 0, len(response.Segments))
	speakers := make(map[string]struct{})
	for _, seg := range response.Segments {
		turns = append(turns, providers.SpeakerTurn{
			Speaker: seg.Speaker,
			Start:   seg.Start,
			End:     seg.End,
		})
		speakers[seg.Speaker] = struct{}{}
	}

	c.logger.InfoContext(ctx, "diarization complete",
		logging.Int("turns", len(turns)),
		logging.Int("speakers", len(speakers)))
	return turns, nil
}
