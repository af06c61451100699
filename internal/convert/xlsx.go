// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXConverter renders every non-empty worksheet as a Markdown table under
// a heading named after the sheet.
type XLSXConverter struct{}

// Name implements Converter.
func (XLSXConverter) Name() string { return "xlsx" }

// Convert implements Converter.
func (XLSXConverter) Convert(ctx context.Context, path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("opening xlsx: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", sheet)
		b.WriteString(markdownTable(rows))
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no data found in xlsx: %w", ErrEmptyOutput)
	}
	return b.String(), nil
}
