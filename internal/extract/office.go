// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/pdiddy/docmark/internal/imageproc"
	"github.com/pdiddy/docmark/pkg/types"
)

// Office extracts media from ZIP-based Office documents (docx, pptx, xlsx).
// Images are numbered in container listing order, which is the order the
// upstream converter emits its inline placeholders in.
type Office struct {
	mediaPrefix string
	images      *imageproc.Processor
	logger      *slog.Logger
}

// NewOffice creates an extractor for media entries under mediaPrefix
// (e.g. "word/media/").
func NewOffice(mediaPrefix string, opts Options) *Office {
	opts = opts.withDefaults()
	return &Office{mediaPrefix: mediaPrefix, images: opts.Images, logger: opts.Logger}
}

// Extract implements Extractor.
func (o *Office) Extract(ctx context.Context, src, imageDir string) ([]types.ExtractedImage, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("opening %s as zip container: %w", src, err)
	}
	defer r.Close()

	var out []types.ExtractedImage
	next := 1
	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if !strings.HasPrefix(f.Name, o.mediaPrefix) || f.FileInfo().IsDir() {
			continue
		}
		ext := strings.ToLower(path.Ext(f.Name))
		if !rasterExts[ext] {
			o.logger.Debug("extract: skipping non-raster media", "entry", f.Name)
			continue
		}

		data, err := readEntry(f)
		if err != nil {
			o.logger.Warn("extract: unreadable media entry", "entry", f.Name, "error", err)
			continue
		}
		if _, err := o.images.Validate(data, ext); err != nil {
			o.logger.Warn("extract: invalid media entry", "entry", f.Name, "error", err)
			continue
		}

		img, err := persist(imageDir, next, ext, f.Name, 0, data)
		if err != nil {
			o.logger.Warn("extract: writing media entry", "entry", f.Name, "error", err)
			continue
		}
		out = append(out, img)
		next++
	}

	o.logger.Debug("extract: office media", "source", src, "images", len(out))
	return out, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
