// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/docmark/internal/container"
)

// MarkitdownConverter streams a document through the markitdown container
// image and reads Markdown back from its standard output.
type MarkitdownConverter struct {
	runtime container.Runtime
	image   string
	timeout time.Duration
}

// NewMarkitdownConverter fails unless image is already present in rt, so
// an unavailable image drops the strategy from its chain at build time
// instead of failing every document.
func NewMarkitdownConverter(ctx context.Context, rt container.Runtime, image string, timeout time.Duration) (*MarkitdownConverter, error) {
	if err := rt.ImageExists(ctx, image); err != nil {
		return nil, fmt.Errorf("markitdown image not available in %s: %w", rt.Name(), err)
	}
	return &MarkitdownConverter{runtime: rt, image: image, timeout: timeout}, nil
}

// Name implements Converter.
func (m *MarkitdownConverter) Name() string { return "markitdown" }

// Convert passes the lower-cased extension as the format hint since the
// container only sees a byte stream.
func (m *MarkitdownConverter) Convert(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	var out bytes.Buffer
	spec := container.RunSpec{
		Image:  m.image,
		Stdin:  f,
		Stdout: &out,
		Args:   []string{"-x", strings.ToLower(filepath.Ext(path))},
	}
	if err := m.runtime.Run(ctx, spec); err != nil {
		return "", fmt.Errorf("converting %s with markitdown: %w", path, err)
	}

	if strings.TrimSpace(out.String()) == "" {
		return "", fmt.Errorf("markitdown: %w for %s", ErrEmptyOutput, path)
	}

	return out.String(), nil
}
