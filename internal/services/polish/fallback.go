package polish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"revoice/internal/config"
)

// fallbackClient speaks the Anthropic messages API directly. Kept as plain
// HTTP so the fallback has no dependency that could fail alongside the
// primary SDK.
type fallbackClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func newFallbackClient(cfg *config.Config) *fallbackClient {
	timeout := time.Duration(cfg.Polish.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &fallbackClient{
		apiKey:     cfg.Polish.FallbackAPIKey,
		baseURL:    strings.TrimRight(cfg.Polish.FallbackURL, "/"),
		model:      cfg.Polish.FallbackModel,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type messagesRequest struct {
	Model     string           `json:"model"`
	MaxTokens int              `json:"max_tokens"`
	System    string           `json:"system"`
	Messages  []messagePayload `json:"messages"`
}

type messagePayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *fallbackClient) complete(ctx context.Context, userMessage string) (string, error) {
	payload := messagesRequest{
		Model:     c.model,
		MaxTokens: 1024,
		System:    systemPrompt,
		Messages:  []messagePayload{{Role: "user", Content: userMessage}},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var response messagesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if response.Error != nil {
		return "", fmt.Errorf("api error: %s", response.Error.Message)
	}
	if len(response.Content) == 0 || strings.TrimSpace(response.Content[0].Text) == "" {
		return "", errors.New("empty content in response")
	}
	return strings.TrimSpace(response.Content[0].Text), nil
}
