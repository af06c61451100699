// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// tool runs a local binary. *container.Tool implements it.
type tool interface {
	Name() string
	Run(ctx context.Context, stdout io.Writer, args ...string) error
}

// PandocConverter converts DOCX files with pandoc to GitHub-flavoured
// Markdown. Embedded images come out as media/imageN references.
type PandocConverter struct {
	pandoc tool
}

// NewPandocConverter wraps a pandoc tool.
func NewPandocConverter(pandoc tool) *PandocConverter {
	return &PandocConverter{pandoc: pandoc}
}

// Name implements Converter.
func (p *PandocConverter) Name() string { return "pandoc" }

// Convert implements Converter.
func (p *PandocConverter) Convert(ctx context.Context, path string) (string, error) {
	from := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	var out bytes.Buffer
	if err := p.pandoc.Run(ctx, &out, "-f", from, "-t", "gfm", "--wrap=none", path); err != nil {
		return "", err
	}
	return out.String(), nil
}

// LibreOfficeConverter renders an Office document to PDF with a headless
// LibreOffice and extracts the PDF's text.
type LibreOfficeConverter struct {
	soffice tool
	pdf     Converter
}

// NewLibreOfficeConverter wraps an soffice tool; pdf converts the rendered
// file.
func NewLibreOfficeConverter(soffice tool, pdf Converter) *LibreOfficeConverter {
	return &LibreOfficeConverter{soffice: soffice, pdf: pdf}
}

// Name implements Converter.
func (l *LibreOfficeConverter) Name() string { return "libreoffice" }

// Convert implements Converter.
func (l *LibreOfficeConverter) Convert(ctx context.Context, path string) (string, error) {
	tmp, err := os.MkdirTemp("", "docmark-soffice-")
	if err != nil {
		return "", fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	if err := l.soffice.Run(ctx, io.Discard, "--headless", "--convert-to", "pdf", "--outdir", tmp, path); err != nil {
		return "", err
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	rendered := filepath.Join(tmp, stem+".pdf")
	if _, err := os.Stat(rendered); err != nil {
		return "", fmt.Errorf("libreoffice produced no pdf: %w", err)
	}
	return l.pdf.Convert(ctx, rendered)
}
