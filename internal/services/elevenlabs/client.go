// Package elevenlabs integrates the ElevenLabs API for voice cloning and
// text-to-speech, plus the embedding sidecar used for voice fingerprints.
package elevenlabs

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
	"revoice/internal/services"
)

const stage = "synthesize"

// Client drives voice cloning and speech synthesis.
type Client struct {
	apiKey     string
	baseURL    string
	ttsModel   string
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

// New builds a voice client from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	timeout := time.Duration(cfg.Voice.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	client := &Client{
		apiKey:     cfg.Voice.APIKey,
		baseURL:    strings.TrimRight(cfg.Voice.BaseURL, "/"),
		ttsModel:   cfg.Voice.TTSModel,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(logger, "elevenlabs"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// CloneVoice creates a reusable synthetic voice from a speech sample and
// returns the provider's voice ID.
func (c *Client) CloneVoice(ctx context.Context, name, sampleFile string) (string, error) {
	if c.apiKey == "" {
		return "", services.Wrap(services.ErrConfiguration, stage, "clone voice", "elevenlabs api key not configured", nil)
	}

	file, err := os.Open(sampleFile)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, stage, "clone voice", "open sample file", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("name", name); err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage, "clone voice", "write name field", err)
	}
	if err := writer.WriteField("description", "Cloned voice for "+name); err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage, "clone voice", "write description field", err)
	}
	part, err := writer.CreateFormFile("files", filepath.Base(sampleFile))
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage, "clone voice", "build multipart body", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage, "clone voice", "copy sample file", err)
	}
	if err := writer.Close(); err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage, "clone voice", "finalize multipart body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/voices/add", &body)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage, "clone voice", "build request", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	payload, err := c.do(req)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage, "clone voice", "", err)
	}

	var response struct {
		VoiceID string `json:"voice_id"`
	}
	if err := json.Unmarshal(payload, &response); err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage, "clone voice", "decode response", err)
	}
	if response.VoiceID == "" {
		return "", services.Wrap(services.ErrExternalTool, stage, "clone voice", "no voice id in response", nil)
	}

	c.logger.InfoContext(ctx, "voice cloned",
		logging.String("name", name),
		logging.String("voice_id", response.VoiceID))
	return response.VoiceID, nil
}

// Synthesize renders text in the cloned voice and writes the audio to
// outputFile.
func (c *Client) Synthesize(ctx context.Context, voiceID, text, languageCode, outputFile string) error {
	if c.apiKey == "" {
		return services.Wrap(services.ErrConfiguration, stage, "synthesize", "elevenlabs api key not configured", nil)
	}

	payload := map[string]any{
		"text":     text,
		"model_id": c.ttsModel,
		"voice_settings": map[string]any{
			"stability":         0.5,
			"similarity_boost":  0.75,
			"style":             0.5,
			"use_speaker_boost": true,
		},
	}
	if languageCode != "" {
		payload["language_code"] = languageCode
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, stage, "synthesize", "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/text-to-speech/"+voiceID, bytes.NewReader(encoded))
	if err != nil {
		return services.Wrap(services.ErrExternalTool, stage, "synthesize", "build request", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, stage, "synthesize", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return services.Wrap(services.ErrExternalTool, stage, "synthesize",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	if err := os.MkdirAll(filepath.Dir(outputFile), 0o755); err != nil {
		return services.Wrap(services.ErrExternalTool, stage, "synthesize", "create output directory", err)
	}
	out, err := os.Create(outputFile)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, stage, "synthesize", "create output file", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return services.Wrap(services.ErrExternalTool, stage, "synthesize", "write output file", err)
	}
	return nil
}

// DeleteVoice removes a cloned voice to free provider quota.
func (c *Client) DeleteVoice(ctx context.Context, voiceID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/voices/"+voiceID, nil)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, stage, "delete voice", "build request", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	if _, err := c.do(req); err != nil {
		return services.Wrap(services.ErrExternalTool, stage, "delete voice", "", err)
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
