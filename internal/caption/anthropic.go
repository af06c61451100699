// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package caption

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pdiddy/docmark/internal/httputil"
)

// anthropicAPIURL is the Messages API endpoint. Package-level var for test substitution.
var anthropicAPIURL = "https://api.anthropic.com/v1/messages"

// AnthropicBackend captions images with the Claude Messages API.
type AnthropicBackend struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxRetries int
	Client     *http.Client
	Logger     *slog.Logger
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

type anthropicBlock struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicResponse struct {
	Content []anthropicBlock `json:"content"`
}

// Caption implements Captioner.
func (c *AnthropicBackend) Caption(ctx context.Context, img Image) (string, error) {
	prompt, err := renderPrompt(img.DocName)
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	reqBody := anthropicRequest{
		Model:     c.Model,
		MaxTokens: 256,
		Messages: []anthropicMessage{{
			Role: "user",
			Content: []anthropicBlock{
				{Type: "image", Source: &anthropicSource{
					Type:      "base64",
					MediaType: img.MediaType,
					Data:      base64.StdEncoding.EncodeToString(img.Data),
				}},
				{Type: "text", Text: prompt},
			},
		}},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := anthropicAPIURL
	if c.BaseURL != "" {
		url = strings.TrimRight(c.BaseURL, "/") + "/v1/messages"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, c.MaxRetries, c.Logger)
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(body))
	}

	var aResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&aResp); err != nil {
		return "", fmt.Errorf("decoding Claude response: %w", err)
	}
	for _, block := range aResp.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in Claude API response")
}
