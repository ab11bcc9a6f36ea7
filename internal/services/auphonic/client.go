// Package auphonic integrates the Auphonic production API for audio cleanup:
// denoising, leveling, and loudness normalization.
package auphonic

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

const stage = "cleanup"

// Client drives the production lifecycle: create, upload, start, poll,
// download.
type Client struct {
	apiKey       string
	baseURL      string
	loudness     int
	pollInterval time.Duration
	maxPolls     int
	httpClient   *http.Client
	logger       *slog.Logger
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

// WithPollInterval overrides how often production status is checked.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// New builds a cleanup client from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	client := &Client{
		apiKey:       cfg.Cleanup.APIKey,
		baseURL:      strings.TrimRight(cfg.Cleanup.BaseURL, "/"),
		loudness:     cfg.Cleanup.LoudnessTarget,
		pollInterval: time.Duration(cfg.Cleanup.PollInterval) * time.Second,
		maxPolls:     cfg.Cleanup.PollMaxAttempts,
		httpClient:   &http.Client{Timeout: 2 * time.Minute},
		logger:       logging.NewComponentLogger(logger, "auphonic"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Clean uploads the file, runs a production, and downloads the result into
// outputDir. The returned reference is the remote production UUID.
func (c *Client) Clean(ctx context.Context, inputFile, outputDir string) (string, string, error) {
	if c.apiKey == "" {
		return "", "", services.Wrap(services.ErrConfiguration, stage, "clean", "auphonic api key not configured", nil)
	}

	productionID, err := c.createProduction(ctx)
	if err != nil {
		return "", "", err
	}
	if err := c.uploadInput(ctx, productionID, inputFile); err != nil {
		return "", "", err
	}
	if err := c.startProduction(ctx, productionID); err != nil {
		return "", "", err
	}

	c.logger.InfoContext(ctx, "production started", logging.String("production", productionID))

	downloadURL, err := c.pollProduction(ctx, productionID)
	if err != nil {
		return "", "", err
	}

	cleanedFile := filepath.Join(outputDir, "cleaned.wav")
	if err := c.download(ctx, downloadURL, cleanedFile); err != nil {
		return "", "", err
	}
	return cleanedFile, productionID, nil
}

func (c *Client) createProduction(ctx context.Context) (string, error) {
	payload := map[string]any{
		"output_files": []map[string]any{{"format": "wav"}},
		"algorithms": map[string]any{
			"leveler":         true,
			"denoise":         true,
			"loudness_target": c.loudness,
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage, "create production", "encode payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/productions.json", bytes.NewReader(encoded))
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage, "create production", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var response struct {
		Data struct {
			UUID string `json:"uuid"`
		} `json:"data"`
	}
	if err := c.do(req, &response); err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage, "create production", "", err)
	}
	if response.Data.UUID == "" {
		return "", services.Wrap(services.ErrExternalTool, stage, "create production", "no production uuid in response", nil)
	}
	return response.Data.UUID, nil
}

func (c *Client) uploadInput(ctx context.Context, productionID, inputFile string) error {
	file, err := os.Open(inputFile)
	if err != nil {
		return services.Wrap(services.ErrValidation, stage, "upload", "open input file", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("input_file", filepath.Base(inputFile))
	if err != nil {
		return services.Wrap(services.ErrExternalTool, stage, "upload", "build multipart body", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return services.Wrap(services.ErrExternalTool, stage, "upload", "copy input file", err)
	}
	if err := writer.Close(); err != nil {
		return services.Wrap(services.ErrExternalTool, stage, "upload", "finalize multipart body", err)
	}

	url := fmt.Sprintf("%s/production/%s/upload.json", c.baseURL, productionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, stage, "upload", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	if err := c.do(req, nil); err != nil {
		return services.Wrap(services.ErrExternalTool, stage, "upload", "", err)
	}
	return nil
}

func (c *Client) startProduction(ctx context.Context, productionID string) error {
	url := fmt.Sprintf("%s/production/%s/start.json", c.baseURL, productionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, stage, "start production", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if err := c.do(req, nil); err != nil {
		return services.Wrap(services.ErrExternalTool, stage, "start production", "", err)
	}
	return nil
}

func (c *Client) pollProduction(ctx context.Context, productionID string) (string, error) {
	for attempt := 0; attempt < c.maxPolls; attempt++ {
		url := fmt.Sprintf("%s/production/%s.json", c.baseURL, productionID)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", services.Wrap(services.ErrExternalTool, stage, "poll", "build request", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		var response struct {
			Data struct {
				StatusString string `json:"status_string"`
				ErrorMessage string `json:"error_message"`
				OutputFiles  []struct {
					DownloadURL string `json:"download_url"`
				} `json:"output_files"`
			} `json:"data"`
		}
		if err := c.do(req, &response); err != nil {
			return "", services.Wrap(services.ErrExternalTool, stage, "poll", "", err)
		}

		switch response.Data.StatusString {
		case "Done":
			if len(response.Data.OutputFiles) == 0 || response.Data.OutputFiles[0].DownloadURL == "" {
				return "", services.Wrap(services.ErrExternalTool, stage, "poll", "production finished without output files", nil)
			}
			return response.Data.OutputFiles[0].DownloadURL, nil
		case "Error", "Incomplete":
			message := response.Data.ErrorMessage
			if message == "" {
				message = response.Data.StatusString
			}
			return "", services.Wrap(services.ErrExternalTool, stage, "poll", "production failed: "+message, nil)
		}

		c.logger.DebugContext(ctx, "production still processing",
			logging.String("production", productionID),
			logging.String("status", response.Data.StatusString))

		select {
		case <-time.After(c.pollInterval):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", services.Wrap(services.ErrTimeout, stage, "poll",
		fmt.Sprintf("production %s did not finish after %d polls", productionID, c.maxPolls), nil)
}

func (c *Client) download(ctx context.Context, url, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, stage, "download", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, stage, "download", "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return services.Wrap(services.ErrExternalTool, stage, "download",
			fmt.Sprintf("http %d", resp.StatusCode), nil)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return services.Wrap(services.ErrExternalTool, stage, "download", "create output directory", err)
	}
	out, err := os.Create(target)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, stage, "download", "create output file", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return services.Wrap(services.ErrExternalTool, stage, "download", "write output file", err)
	}
	return nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
