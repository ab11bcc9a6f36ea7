// Package transcribe wraps a Whisper-compatible transcription server and the
// speaker assignment logic that merges diarization output into segments.
package transcribe

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
	"revoice/internal/jobs"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/transcript"
)

const stage = "transcribe"

// Client posts audio to the transcription server.
type Client struct {
	baseURL    string
	model      string
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

// New builds a transcription client from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	timeout := time.Duration(cfg.Transcription.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	client := &Client{
		baseURL:    strings.TrimRight(cfg.Transcription.WhisperURL, "/"),
		model:      cfg.Transcription.WhisperModel,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(logger, "transcribe"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Transcribe runs speech recognition. languageHint may be empty or "auto"
// for server-side detection. Segments come back without speaker labels;
// callers assign those from diarization output.
func (c *Client) Transcribe(ctx context.Context, audioFile, languageHint string) ([]transcript.Segment, error) {
	if c.baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, stage, "transcribe", "whisper url not configured", nil)
	}

	file, err := os.Open(audioFile)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, stage, "transcribe", "open audio file", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioFile))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stage, "transcribe", "build multipart body", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stage, "transcribe", "copy audio file", err)
	}
	fields := map[string]string{
		"model":           c.model,
		"response_format": "verbose_json",
	}
	if languageHint != "" && languageHint != jobs.AutoDetect {
		fields["language"] = languageHint
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, services.Wrap(services.ErrExternalTool, stage, "transcribe", "write form field", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stage, "transcribe", "finalize multipart body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio/transcriptions", &body)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stage, "transcribe", "build request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stage, "transcribe", "request failed", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stage, "transcribe", "read response", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, services.Wrap(services.ErrExternalTool, stage, "transcribe",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}

	var response struct {
		Language string `json:"language"`
		Segments []struct {
			Start float64 `json:"start"`
			End   float64 `json:"end"`
			Text  string  `json:"text"`
		} `json:"segments"`
	}
	if err := json.Unmarshal(payload, &response); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stage, "transcribe", "decode response", err)
	}

	segments := make([]transcript.Segment, 0, len(response.Segments))
	for _, seg := range response.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, transcript.Segment{
			Text:      text,
			StartTime: round2(seg.Start),
			EndTime:   round2(seg.End),
		})
	}

	c.logger.InfoContext(ctx, "transcription complete",
		logging.Int("segments", len(segments)),
		logging.String("language", response.Language))
	return segments, nil
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
