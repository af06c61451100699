// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"fmt"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/docmark/pkg/types"
)

// frontmatter is the YAML header prepended to converted documents when
// output.frontmatter is enabled.
type frontmatter struct {
	Title       string        `yaml:"title"`
	Source      string        `yaml:"source"`
	DocType     types.DocType `yaml:"doc_type"`
	Converter   string        `yaml:"converter,omitempty"`
	Images      int           `yaml:"images"`
	ConvertedAt string        `yaml:"converted_at"`
}

// addFrontmatter prepends a YAML header describing the conversion.
func addFrontmatter(res types.Result, body string, now time.Time) (string, error) {
	fm := frontmatter{
		Title:       res.DocName,
		Source:      res.Source,
		DocType:     res.DocType,
		Converter:   res.Converter,
		Images:      res.Images,
		ConvertedAt: now.UTC().Format(time.RFC3339),
	}
	data, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("encoding frontmatter: %w", err)
	}
	var b strings.Builder
	b.WriteString("---\n")
	b.Write(data)
	b.WriteString("---\n\n")
	b.WriteString(body)
	return b.String(), nil
}
