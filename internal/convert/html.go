// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"os"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

// HTMLConverter converts HTML files in two stages: sanitize (scripts,
// event handlers and javascript: URLs are removed) then convert to
// Markdown. Inline data: images are kept for the reconciler.
type HTMLConverter struct {
	policy *bluemonday.Policy
	conv   *htmltomarkdown.Converter
}

// NewHTMLConverter creates the HTML strategy.
func NewHTMLConverter() *HTMLConverter {
	policy := bluemonday.UGCPolicy()
	policy.AllowDataURIImages()
	return &HTMLConverter{
		policy: policy,
		conv: htmltomarkdown.NewConverter(
			htmltomarkdown.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Name implements Converter.
func (h *HTMLConverter) Name() string { return "html" }

// Convert implements Converter.
func (h *HTMLConverter) Convert(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading html: %w", err)
	}
	sanitized := h.policy.SanitizeBytes(data)
	md, err := h.conv.ConvertString(string(sanitized))
	if err != nil {
		return "", fmt.Errorf("converting html to markdown: %w", err)
	}
	return md, nil
}
