// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract pulls embedded images out of source documents and writes
// them under standardized names (image_001.png, ...) into the document's
// image directory.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/pdiddy/docmark/internal/imageproc"
	"github.com/pdiddy/docmark/pkg/types"
)

// ErrUnsupported is returned by ForPath for extensions with no extractor.
var ErrUnsupported = errors.New("unsupported document format")

// Extractor pulls images out of a source document into imageDir. The
// returned images are ordered by SequenceIndex, starting at 1 with no gaps.
// Per-image failures are logged and skipped; only a container that cannot
// be read at all yields an error.
type Extractor interface {
	Extract(ctx context.Context, src, imageDir string) ([]types.ExtractedImage, error)
}

// Options carries the collaborators every extractor needs.
type Options struct {
	Images *imageproc.Processor
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Images == nil {
		o.Images = imageproc.New(types.DefaultConfig().Images)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// ForPath selects the extractor for src by its extension.
func ForPath(src string, opts Options) (Extractor, error) {
	opts = opts.withDefaults()
	switch types.DocTypeFor(src) {
	case types.DocWord:
		return NewOffice("word/media/", opts), nil
	case types.DocPresentation:
		return NewOffice("ppt/media/", opts), nil
	case types.DocSpreadsheet:
		return NewOffice("xl/media/", opts), nil
	case types.DocPDF:
		return NewPDF(opts), nil
	case types.DocImage:
		return NewImage(opts), nil
	case types.DocHTML, types.DocText:
		return none{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, strings.ToLower(filepath.Ext(src)))
}

// none is the extractor for formats without embedded binary images.
type none struct{}

func (none) Extract(context.Context, string, string) ([]types.ExtractedImage, error) {
	return nil, nil
}

// rasterExts lists the media extensions kept from Office containers.
var rasterExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// persist writes one image and returns its entry. index is the next
// sequence number; the caller advances it only on success.
func persist(imageDir string, index int, ext, locator string, page int, data []byte) (types.ExtractedImage, error) {
	path, err := filepath.Abs(filepath.Join(imageDir, types.ImageFilename(index, ext)))
	if err != nil {
		return types.ExtractedImage{}, err
	}
	n, err := imageproc.Save(path, data)
	if err != nil {
		return types.ExtractedImage{}, err
	}
	return types.ExtractedImage{
		SequenceIndex: index,
		SourceLocator: locator,
		PageNumber:    page,
		StoredPath:    path,
		ByteSize:      n,
	}, nil
}
