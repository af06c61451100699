// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pdiddy/docmark/internal/imageproc"
	"github.com/pdiddy/docmark/pkg/types"
)

// Image handles a standalone image file: the file itself is the single
// extracted image, copied as image_001 with its original extension.
type Image struct {
	images *imageproc.Processor
	logger *slog.Logger
}

// NewImage creates the standalone image extractor.
func NewImage(opts Options) *Image {
	opts = opts.withDefaults()
	return &Image{images: opts.Images, logger: opts.Logger}
}

// Extract implements Extractor.
func (e *Image) Extract(_ context.Context, src, imageDir string) ([]types.ExtractedImage, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("reading image %s: %w", src, err)
	}
	ext := filepath.Ext(src)
	if _, err := e.images.Validate(data, ext); err != nil {
		return nil, fmt.Errorf("validating image %s: %w", src, err)
	}
	img, err := persist(imageDir, 1, ext, filepath.Base(src), 0, data)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("extract: copied image", "source", src, "stored", img.StoredPath)
	return []types.ExtractedImage{img}, nil
}
