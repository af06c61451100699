// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package layout resolves where a document's images live. The same
// resolver instance tells the extractor where to write and the matcher
// which relative path to emit, so both always agree.
package layout

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/docmark/internal/normalize"
	"github.com/pdiddy/docmark/pkg/types"
)

// Named directory templates.
var templates = map[string]string{
	"default":    "{base_dir}/{doc_name}",
	"type_based": "{base_dir}/{doc_type}/{doc_name}",
	"date_based": "{base_dir}/{year}/{month}/{doc_name}",
	"flat":       "{base_dir}",
	"nested":     "{base_dir}/{doc_type}/{doc_name}",
}

var templateVars = []string{"{base_dir}", "{doc_name}", "{doc_type}", "{year}", "{month}"}

// Resolver builds image directory paths from a document name and type.
type Resolver struct {
	template   string
	baseDir    string
	typePrefix bool
	prefixes   map[types.DocType]string
	names      *normalize.Normalizer

	// Now supplies {year} and {month}. Fix it to keep date templates
	// reproducible.
	Now func() time.Time
}

// New creates a Resolver. The template may be one of the named templates or
// a literal pattern; unknown variables are rejected.
func New(cfg types.LayoutConfig, names *normalize.Normalizer) (*Resolver, error) {
	tmpl := cfg.Template
	if tmpl == "" {
		tmpl = "default"
	}
	if named, ok := templates[tmpl]; ok {
		tmpl = named
	}
	if err := ValidateTemplate(tmpl); err != nil {
		return nil, err
	}

	baseDir := cfg.BaseDir
	if baseDir == "" {
		baseDir = "images"
	}
	if names == nil {
		names = normalize.Default
	}

	prefixes := make(map[types.DocType]string, len(cfg.Prefixes))
	for k, v := range cfg.Prefixes {
		prefixes[types.DocType(k)] = v
	}

	return &Resolver{
		template:   tmpl,
		baseDir:    baseDir,
		typePrefix: cfg.TypePrefix,
		prefixes:   prefixes,
		names:      names,
		Now:        time.Now,
	}, nil
}

// ValidateTemplate reports an error when tmpl contains a {variable} other
// than the supported ones.
func ValidateTemplate(tmpl string) error {
	rest := tmpl
	for _, v := range templateVars {
		rest = strings.ReplaceAll(rest, v, "")
	}
	if i := strings.IndexAny(rest, "{}"); i >= 0 {
		return fmt.Errorf("invalid layout template %q: unknown variable near %q", tmpl, rest[i:])
	}
	return nil
}

// DirName returns the directory name for a document: the title-mode
// normalized name, with the type prefix applied when enabled.
func (r *Resolver) DirName(docName string, docType types.DocType) string {
	name := r.names.Title(docName)
	if r.typePrefix {
		if p := r.prefixes[docType]; p != "" {
			name = p + "_" + name
		}
	}
	return name
}

// Shared reports whether every document resolves to the same image
// directory, as with the flat template.
func (r *Resolver) Shared() bool {
	return !strings.Contains(r.template, "{doc_name}")
}

// Resolve returns the image directory for a document under baseDir. An
// empty baseDir uses the configured base directory.
func (r *Resolver) Resolve(docName string, docType types.DocType, baseDir string) string {
	if baseDir == "" {
		baseDir = r.baseDir
	}
	now := r.Now()
	s := strings.NewReplacer(
		"{base_dir}", filepath.ToSlash(baseDir),
		"{doc_name}", r.DirName(docName, docType),
		"{doc_type}", string(docType),
		"{year}", fmt.Sprintf("%04d", now.Year()),
		"{month}", fmt.Sprintf("%02d", int(now.Month())),
	).Replace(r.template)
	return filepath.FromSlash(s)
}

// RelativeDir is the image directory relative to the output root, always
// with forward slashes. It is the prefix used in Markdown image links.
func (r *Resolver) RelativeDir(docName string, docType types.DocType) string {
	return filepath.ToSlash(r.Resolve(docName, docType, r.baseDir))
}

// AbsoluteDir joins the relative image directory onto the output root.
func (r *Resolver) AbsoluteDir(outputDir, docName string, docType types.DocType) string {
	return filepath.Join(outputDir, filepath.FromSlash(r.RelativeDir(docName, docType)))
}

// Link builds the Markdown link target for a stored image file.
func (r *Resolver) Link(docName string, docType types.DocType, filename string) string {
	return path.Join(r.RelativeDir(docName, docType), filename)
}
