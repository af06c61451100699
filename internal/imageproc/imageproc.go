// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package imageproc validates, resizes and re-encodes image bytes before
// they are written to a document's image directory.
package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/pdiddy/docmark/pkg/types"
)

var (
	// ErrEmpty is returned for zero-length image data.
	ErrEmpty = errors.New("image data is empty")
	// ErrTooLarge is returned when image data exceeds the configured size.
	ErrTooLarge = errors.New("image exceeds maximum size")
	// ErrUnsupported is returned for formats outside the accepted list.
	ErrUnsupported = errors.New("unsupported image format")
)

// Info describes decoded image metadata.
type Info struct {
	Format     string
	Width      int
	Height     int
	ColorModel string
	Size       int64
}

// Processor applies the image limits from configuration.
type Processor struct {
	cfg types.ImageConfig
}

// New creates a Processor. Zero limits fall back to the defaults.
func New(cfg types.ImageConfig) *Processor {
	def := types.DefaultConfig().Images
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = def.MaxImageBytes
	}
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = def.MaxWidth
	}
	if cfg.MaxHeight <= 0 {
		cfg.MaxHeight = def.MaxHeight
	}
	if cfg.Quality <= 0 {
		cfg.Quality = def.Quality
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = def.OutputFormat
	}
	if len(cfg.Formats) == 0 {
		cfg.Formats = def.Formats
	}
	return &Processor{cfg: cfg}
}

// OutputFormat is the format re-encoded images are written in.
func (p *Processor) OutputFormat() string {
	return p.cfg.OutputFormat
}

// CanonicalFormat folds format aliases: jpg becomes jpeg, tif becomes tiff.
func CanonicalFormat(f string) string {
	f = strings.ToLower(strings.TrimPrefix(f, "."))
	switch f {
	case "jpg":
		return "jpeg"
	case "tif":
		return "tiff"
	}
	return f
}

// Ext returns the file extension, with dot, used to store a format.
func Ext(format string) string {
	switch CanonicalFormat(format) {
	case "jpeg":
		return ".jpg"
	case "":
		return ".png"
	default:
		return "." + CanonicalFormat(format)
	}
}

// Inspect decodes the image header.
func Inspect(data []byte) (Info, error) {
	if len(data) == 0 {
		return Info{}, ErrEmpty
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("decoding image header: %w", err)
	}
	return Info{
		Format:     format,
		Width:      cfg.Width,
		Height:     cfg.Height,
		ColorModel: colorModelName(cfg.ColorModel),
		Size:       int64(len(data)),
	}, nil
}

// Accepts reports whether format is in the accepted list.
func (p *Processor) Accepts(format string) bool {
	want := CanonicalFormat(format)
	return slices.ContainsFunc(p.cfg.Formats, func(f string) bool {
		return CanonicalFormat(f) == want
	})
}

// Validate checks size, declared format and decodability.
func (p *Processor) Validate(data []byte, declared string) (Info, error) {
	if len(data) == 0 {
		return Info{}, ErrEmpty
	}
	if int64(len(data)) > p.cfg.MaxImageBytes {
		return Info{}, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(data), p.cfg.MaxImageBytes)
	}
	if declared != "" && !p.Accepts(declared) {
		return Info{}, fmt.Errorf("%w: %s", ErrUnsupported, declared)
	}
	info, err := Inspect(data)
	if err != nil {
		return Info{}, err
	}
	if !p.Accepts(info.Format) {
		return Info{}, fmt.Errorf("%w: %s", ErrUnsupported, info.Format)
	}
	return info, nil
}

// NeedsProcessing reports whether an image must be resized or converted to
// the output format.
func (p *Processor) NeedsProcessing(info Info) bool {
	if info.Width > p.cfg.MaxWidth || info.Height > p.cfg.MaxHeight {
		return true
	}
	return CanonicalFormat(info.Format) != CanonicalFormat(p.cfg.OutputFormat)
}

// Prepare validates data and returns the bytes to store with their file
// extension. Images within limits and already in the output format pass
// through unchanged.
func (p *Processor) Prepare(data []byte, declared string) ([]byte, string, error) {
	info, err := p.Validate(data, declared)
	if err != nil {
		return nil, "", err
	}
	if !p.NeedsProcessing(info) {
		return data, Ext(info.Format), nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decoding %s image: %w", info.Format, err)
	}
	img = p.fit(img)

	out, err := p.Encode(img)
	if err != nil {
		return nil, "", err
	}
	return out, Ext(p.cfg.OutputFormat), nil
}

// Encode writes img in the configured output format.
func (p *Processor) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	switch CanonicalFormat(p.cfg.OutputFormat) {
	case "jpeg":
		if err := jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: p.cfg.Quality}); err != nil {
			return nil, fmt.Errorf("encoding jpeg: %w", err)
		}
	default:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encoding png: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// EncodePNG encodes img as PNG regardless of configuration.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// fit scales img down to the configured bounds, keeping the aspect ratio.
func (p *Processor) fit(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= p.cfg.MaxWidth && h <= p.cfg.MaxHeight {
		return img
	}
	scale := min(float64(p.cfg.MaxWidth)/float64(w), float64(p.cfg.MaxHeight)/float64(h))
	nw := max(1, int(float64(w)*scale))
	nh := max(1, int(float64(h)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// flatten composites img onto white, since JPEG has no alpha channel.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}

// Save writes data to path, creating parent directories. It returns the
// number of bytes written.
func Save(path string, data []byte) (int64, error) {
	if len(data) == 0 {
		return 0, ErrEmpty
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("creating image directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("writing image %s: %w", path, err)
	}
	return int64(len(data)), nil
}

func colorModelName(m color.Model) string {
	switch m {
	case color.RGBAModel, color.NRGBAModel:
		return "RGBA"
	case color.RGBA64Model, color.NRGBA64Model:
		return "RGBA64"
	case color.GrayModel:
		return "L"
	case color.Gray16Model:
		return "I;16"
	case color.CMYKModel:
		return "CMYK"
	case color.YCbCrModel:
		return "YCbCr"
	case color.AlphaModel, color.Alpha16Model:
		return "A"
	}
	if _, ok := m.(color.Palette); ok {
		return "P"
	}
	return "unknown"
}
