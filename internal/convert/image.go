// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/docmark/internal/imageproc"
	"github.com/pdiddy/docmark/internal/normalize"
)

// ImageConverter describes a standalone image file: a metadata section and
// a preview. The preview uses an elided data marker so the reconciler binds
// it to the copied image whatever its format.
type ImageConverter struct {
	names *normalize.Normalizer
}

// NewImageConverter creates the image strategy. Titles are normalized with
// names.
func NewImageConverter(names *normalize.Normalizer) *ImageConverter {
	if names == nil {
		names = normalize.Default
	}
	return &ImageConverter{names: names}
}

// Name implements Converter.
func (c *ImageConverter) Name() string { return "image" }

// Convert implements Converter.
func (c *ImageConverter) Convert(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}
	info, err := imageproc.Inspect(data)
	if err != nil {
		return "", err
	}

	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", c.names.Title(stem))
	b.WriteString("## 图片信息\n\n")
	fmt.Fprintf(&b, "- **文件名**: %s\n", base)
	fmt.Fprintf(&b, "- **尺寸**: %d x %d 像素\n", info.Width, info.Height)
	fmt.Fprintf(&b, "- **格式**: %s\n", strings.ToUpper(info.Format))
	fmt.Fprintf(&b, "- **颜色模式**: %s\n", info.ColorModel)
	fmt.Fprintf(&b, "- **文件大小**: %s\n\n", humanSize(info.Size))
	b.WriteString("## 图片预览\n\n")
	fmt.Fprintf(&b, "![%s](data:image/%s;base64...)\n", normalize.AltText(stem), imageproc.CanonicalFormat(info.Format))
	return b.String(), nil
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}
