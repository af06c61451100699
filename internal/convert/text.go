// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TextConverter passes plain text and Markdown through, renders CSV as a
// table, and fences JSON.
type TextConverter struct{}

// Name implements Converter.
func (TextConverter) Name() string { return "text" }

// Convert implements Converter.
func (TextConverter) Convert(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		if err != nil {
			return "", fmt.Errorf("parsing csv: %w", err)
		}
		return markdownTable(rows), nil
	case ".json":
		var out bytes.Buffer
		if err := json.Indent(&out, data, "", "  "); err != nil {
			return "", fmt.Errorf("parsing json: %w", err)
		}
		return "```json\n" + out.String() + "\n```\n", nil
	}
	return string(data), nil
}
