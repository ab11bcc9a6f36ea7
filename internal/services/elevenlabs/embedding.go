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

// EmbeddingClient computes voice fingerprints via a self-hosted embedding
// service. When no service is configured, ComputeEmbedding reports
// services.ErrUnavailable so callers can skip fingerprint matching.
type EmbeddingClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewEmbeddingClient builds an embedding client from configuration.
func NewEmbeddingClient(cfg *config.Config, logger *slog.Logger) *EmbeddingClient {
	timeout := time.Duration(cfg.Voice.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &EmbeddingClient{
		baseURL:    strings.TrimRight(cfg.Voice.EmbeddingURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(logger, "embedding"),
	}
}

// ComputeEmbedding uploads a speech sample and returns its fingerprint vector.
func (c *EmbeddingClient) ComputeEmbedding(ctx context.Context, sampleFile string) ([]float64, error) {
	if c.baseURL == "" {
		return nil, services.Wrap(services.ErrUnavailable, stage, "compute embedding", "embedding service not configured", nil)
	}

	file, err := os.Open(sampleFile)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, stage, "compute embedding", "open sample file", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(sampleFile))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stage, "compute embedding", "build multipart body", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stage, "compute embedding", "copy sample file", err)
	}
	if err := writer.Close(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stage, "compute embedding", "finalize multipart body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/embed", &body)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stage, "compute embedding", "build request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrUnavailable, stage, "compute embedding", "embedding service unreachable", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stage, "compute embedding", "read response", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, services.Wrap(services.ErrExternalTool, stage, "compute embedding",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}

	var response struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.Unmarshal(payload, &response); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stage, "compute embedding", "decode response", err)
	}
	if len(response.Embedding) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, stage, "compute embedding", "empty embedding in response", nil)
	}

	c.logger.DebugContext(ctx, "embedding computed",
		logging.String("sample", filepath.Base(sampleFile)),
		logging.Int("dimensions", len(response.Embedding)))
	return response.Embedding, nil
}
