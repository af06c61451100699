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

// openAIBaseURL is the default endpoint root. Any server speaking the chat
// completions protocol can be targeted through BaseURL.
var openAIBaseURL = "https://api.openai.com/v1"

// OpenAIBackend captions images through an OpenAI-compatible chat
// completions endpoint.
type OpenAIBackend struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxRetries int
	Client     *http.Client
	Logger     *slog.Logger
}

type chatRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string     `json:"role"`
	Content []chatPart `json:"content"`
}

type chatPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Caption implements Captioner.
func (c *OpenAIBackend) Caption(ctx context.Context, img Image) (string, error) {
	prompt, err := renderPrompt(img.DocName)
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	dataURL := "data:" + img.MediaType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
	bodyBytes, err := json.Marshal(chatRequest{
		Model:     c.Model,
		MaxTokens: 256,
		Messages: []chatMessage{{
			Role: "user",
			Content: []chatPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &chatImageURL{URL: dataURL}},
			},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	base := openAIBaseURL
	if c.BaseURL != "" {
		base = c.BaseURL
	}
	url := strings.TrimRight(base, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, c.MaxRetries, c.Logger)
	if err != nil {
		return "", fmt.Errorf("calling chat API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("chat API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	if len(cResp.Choices) == 0 || strings.TrimSpace(cResp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("chat API returned no content")
	}
	return cResp.Choices[0].Message.Content, nil
}
