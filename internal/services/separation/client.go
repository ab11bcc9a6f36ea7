// Package separation talks to a source-separation service that splits audio
// into vocal and background stems. When the service is unreachable it
// degrades to using the original audio for both stems so the rest of the
// pipeline can still run.
package separation

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

const stage = "separate"

// Client posts audio to the separation service.
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

// New builds a separation client from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	timeout := time.Duration(cfg.Separation.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	client := &Client{
		baseURL:    strings.TrimRight(cfg.Separation.BaseURL, "/"),
		model:      cfg.Separation.Model,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(logger, "separation"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Separate splits inputFile into stems under outputDir. Total service
// unavailability yields the degraded fallback instead of an error: both
// stems are copies of the input, flagged so the mixer can lower its
// expectations.
func (c *Client) Separate(ctx context.Context, inputFile, outputDir string) (providers.Stems, error) {
	vocalsFile := filepath.Join(outputDir, "vocals.wav")
	backgroundFile := filepath.Join(outputDir, "background.wav")

	if c.baseURL == "" {
		c.logger.WarnContext(ctx, "separation service not configured, using original audio for both stems")
		return c.fallback(inputFile, vocalsFile, backgroundFile)
	}

	stems, err := c.separateRemote(ctx, inputFile, vocalsFile, backgroundFile)
	if err != nil {
		if ctx.Err() != nil {
			return providers.Stems{}, ctx.Err()
		}
		c.logger.WarnContext(ctx, "separation failed, using original audio for both stems",
			logging.Error(err))
		return c.fallback(inputFile, vocalsFile, backgroundFile)
	}
	return stems, nil
}

func (c *Client) separateRemote(ctx context.Context, inputFile, vocalsFile, backgroundFile string) (providers.Stems, error) {
	file, err := os.Open(inputFile)
	if err != nil {
		return providers.Stems{}, services.Wrap(services.ErrValidation, stage, "separate", "open input file", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(inputFile))
	if err != nil {
		return providers.Stems{}, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return providers.Stems{}, fmt.Errorf("copy input file: %w", err)
	}
	if c.model != "" {
		if err := writer.WriteField("model", c.model); err != nil {
			return providers.Stems{}, fmt.Errorf("write model field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return providers.Stems{}, fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/separate", &body)
	if err != nil {
		return providers.Stems{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return providers.Stems{}, fmt.Errorf("separation request: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return providers.Stems{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return providers.Stems{}, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var response struct {
		VocalsURL     string `json:"vocals_url"`
		BackgroundURL string `json:"background_url"`
	}
	if err := json.Unmarshal(payload, &response); err != nil {
		return providers.Stems{}, fmt.Errorf("decode response: %w", err)
	}
	if response.VocalsURL == "" || response.BackgroundURL == "" {
		return providers.Stems{}, fmt.Errorf("separation response missing stem urls")
	}

	if err := c.downloadStem(ctx, response.VocalsURL, vocalsFile); err != nil {
		return providers.Stems{}, err
	}
	if err := c.downloadStem(ctx, response.BackgroundURL, backgroundFile); err != nil {
		return providers.Stems{}, err
	}
	return providers.Stems{VocalsFile: vocalsFile, BackgroundFile: backgroundFile}, nil
}

func (c *Client) downloadStem(ctx context.Context, url, target string) error {
	if !strings.HasPrefix(url, "http") {
		url = c.baseURL + url
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download stem: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("download stem: http %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create stem file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write stem file: %w", err)
	}
	return nil
}

func (c *Client) fallback(inputFile, vocalsFile, backgroundFile string) (providers.Stems, error) {
	for _, target := range []string{vocalsFile, backgroundFile} {
		if err := copyFile(inputFile, target); err != nil {
			return providers.Stems{}, services.Wrap(services.ErrExternalTool, stage, "fallback", "copy original audio", err)
		}
	}
	return providers.Stems{VocalsFile: vocalsFile, BackgroundFile: backgroundFile, Degraded: true}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
