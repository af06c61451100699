// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/pdiddy/docmark/internal/imageproc"
	"github.com/pdiddy/docmark/pkg/types"
)

// pageImage is one image stream found on a PDF page.
type pageImage struct {
	page    int
	objNr   int
	name    string
	fileTyp string
	data    []byte
}

// PDF extracts embedded raster images page by page. Every image is decoded
// and stored as PNG; images that cannot be decoded are skipped.
type PDF struct {
	logger *slog.Logger

	// scan lists the page images of src. Replaced in tests.
	scan func(src string) ([]pageImage, error)
}

// NewPDF creates the PDF image extractor.
func NewPDF(opts Options) *PDF {
	opts = opts.withDefaults()
	p := &PDF{logger: opts.Logger}
	p.scan = func(src string) ([]pageImage, error) { return scanPDF(src, p.logger) }
	return p
}

// Extract implements Extractor.
func (p *PDF) Extract(ctx context.Context, src, imageDir string) ([]types.ExtractedImage, error) {
	found, err := p.scan(src)
	if err != nil {
		return nil, err
	}

	var out []types.ExtractedImage
	next := 1
	for _, pi := range found {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		locator := fmt.Sprintf("page %d obj %d", pi.page, pi.objNr)
		img, _, err := image.Decode(bytes.NewReader(pi.data))
		if err != nil {
			p.logger.Warn("extract: undecodable pdf image", "locator", locator, "type", pi.fileTyp, "error", err)
			continue
		}
		data, err := imageproc.EncodePNG(img)
		if err != nil {
			p.logger.Warn("extract: encoding pdf image", "locator", locator, "error", err)
			continue
		}
		stored, err := persist(imageDir, next, ".png", locator, pi.page, data)
		if err != nil {
			p.logger.Warn("extract: writing pdf image", "locator", locator, "error", err)
			continue
		}
		out = append(out, stored)
		next++
	}

	p.logger.Debug("extract: pdf images", "source", src, "images", len(out))
	return out, nil
}

// scanPDF reads src with pdfcpu and collects every page's image streams,
// ordered by page then object number.
func scanPDF(src string, logger *slog.Logger) (found []pageImage, err error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("opening pdf %s: %w", src, err)
	}
	defer f.Close()

	// pdfcpu panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			found, err = nil, fmt.Errorf("reading pdf %s: %v", src, r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read %s: %w", src, err)
	}

	for pageNr := 1; pageNr <= pctx.PageCount; pageNr++ {
		imgs, err := pdfcpu.ExtractPageImages(pctx, pageNr, false)
		if err != nil {
			logger.Warn("extract: pdf page images", "page", pageNr, "error", err)
			continue
		}
		page := make([]pageImage, 0, len(imgs))
		for objNr, img := range imgs {
			if img.Reader == nil {
				continue
			}
			data, err := io.ReadAll(img)
			if err != nil || len(data) == 0 {
				continue
			}
			page = append(page, pageImage{
				page:    pageNr,
				objNr:   objNr,
				name:    img.Name,
				fileTyp: img.FileType,
				data:    data,
			})
		}
		sort.Slice(page, func(i, j int) bool { return page[i].objNr < page[j].objNr })
		found = append(found, page...)
	}
	return found, nil
}
