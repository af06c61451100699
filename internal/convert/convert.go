// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns source documents into Markdown. Text conversion is
// delegated to pluggable strategies tried in order; the pipeline then
// extracts images, reconciles image placeholders, places PDF images, and
// writes the output file.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	// ErrNoStrategy is returned when no strategy is configured or available
	// for a document type.
	ErrNoStrategy = errors.New("no conversion strategy available")

	// ErrEmptyOutput is returned by strategies that produced no text.
	ErrEmptyOutput = errors.New("conversion produced empty output")

	// ErrSharedImageDir is returned for every document of a multi-document
	// batch whose layout puts all images in one directory. Their image_NNN
	// files would overwrite each other.
	ErrSharedImageDir = errors.New("layout shares one image directory between documents")
)

// Converter transforms a source file into Markdown text. Different backends
// (markitdown, pandoc, native parsers) implement this interface.
type Converter interface {
	// Name identifies the strategy in logs and results.
	Name() string

	// Convert reads the file at path and returns Markdown-ish text.
	Convert(ctx context.Context, path string) (string, error)
}

// Chain tries converters in order and returns the first non-empty result.
type Chain struct {
	converters []Converter
	logger     *slog.Logger
}

// NewChain creates a fallback chain.
func NewChain(logger *slog.Logger, converters ...Converter) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{converters: converters, logger: logger}
}

// Name lists the chain's strategies.
func (c *Chain) Name() string {
	names := make([]string, len(c.converters))
	for i, conv := range c.converters {
		names[i] = conv.Name()
	}
	return strings.Join(names, ">")
}

// Len is the number of strategies in the chain.
func (c *Chain) Len() int { return len(c.converters) }

// Convert implements Converter.
func (c *Chain) Convert(ctx context.Context, path string) (string, error) {
	text, _, err := c.ConvertWith(ctx, path)
	return text, err
}

// ConvertWith is Convert that also reports which strategy succeeded. When
// every strategy fails the errors are joined. If a strategy ran cleanly but
// produced no text, its name is still returned alongside an error wrapping
// ErrEmptyOutput, so callers that accept empty documents can proceed.
func (c *Chain) ConvertWith(ctx context.Context, path string) (string, string, error) {
	if len(c.converters) == 0 {
		return "", "", ErrNoStrategy
	}
	var errs []error
	var emptyFrom string
	for _, conv := range c.converters {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}
		text, err := conv.Convert(ctx, path)
		if err == nil && strings.TrimSpace(text) == "" {
			err = ErrEmptyOutput
			if emptyFrom == "" {
				emptyFrom = conv.Name()
			}
		}
		if err != nil {
			c.logger.Debug("convert: strategy failed", "strategy", conv.Name(), "path", path, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", conv.Name(), err))
			continue
		}
		return text, conv.Name(), nil
	}
	return "", emptyFrom, errors.Join(errs...)
}
