// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFTextConverter extracts the text layer of a PDF page by page. Scanned
// PDFs yield little or no text; the pipeline then lays out their images.
type PDFTextConverter struct{}

// Name implements Converter.
func (PDFTextConverter) Name() string { return "pdftext" }

// Convert implements Converter.
func (PDFTextConverter) Convert(ctx context.Context, path string) (text string, err error) {
	// The reader panics on some malformed files and content streams.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("reading pdf %s: %v", path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n\n")
	}
	// An empty text layer is a valid result for a scanned PDF.
	return b.String(), nil
}
