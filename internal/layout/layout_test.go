// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package layout

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docmark/internal/normalize"
	"github.com/pdiddy/docmark/pkg/types"
)

func newResolver(t *testing.T, cfg types.LayoutConfig) *Resolver {
	t.Helper()
	r, err := New(cfg, normalize.Default)
	require.NoError(t, err)
	r.Now = func() time.Time { return time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC) }
	return r
}

func TestResolve(t *testing.T) {
	prefixes := map[string]string{"pdf": "PDF", "word": "Word"}
	tests := []struct {
		name    string
		cfg     types.LayoutConfig
		docName string
		docType types.DocType
		want    string
	}{
		{
			name:    "default template normalizes the name",
			cfg:     types.LayoutConfig{BaseDir: "images"},
			docName: "报告（最终版）",
			docType: types.DocWord,
			want:    "images/报告(最终版)",
		},
		{
			name:    "type prefix for pdf",
			cfg:     types.LayoutConfig{BaseDir: "images", TypePrefix: true, Prefixes: prefixes},
			docName: "scan",
			docType: types.DocPDF,
			want:    "images/PDF_scan",
		},
		{
			name:    "type prefix for word",
			cfg:     types.LayoutConfig{BaseDir: "images", TypePrefix: true, Prefixes: prefixes},
			docName: "memo",
			docType: types.DocWord,
			want:    "images/Word_memo",
		},
		{
			name:    "prefix ignored when disabled",
			cfg:     types.LayoutConfig{BaseDir: "images", Prefixes: prefixes},
			docName: "scan",
			docType: types.DocPDF,
			want:    "images/scan",
		},
		{
			name:    "type based template",
			cfg:     types.LayoutConfig{BaseDir: "images", Template: "type_based"},
			docName: "a b",
			docType: types.DocPDF,
			want:    "images/pdf/a_b",
		},
		{
			name:    "date based template",
			cfg:     types.LayoutConfig{BaseDir: "images", Template: "date_based"},
			docName: "doc",
			docType: types.DocPDF,
			want:    "images/2026/03/doc",
		},
		{
			name:    "flat template",
			cfg:     types.LayoutConfig{BaseDir: "assets", Template: "flat"},
			docName: "doc",
			docType: types.DocPDF,
			want:    "assets",
		},
		{
			name:    "literal template",
			cfg:     types.LayoutConfig{BaseDir: "img", Template: "{base_dir}/docs/{doc_name}"},
			docName: "doc",
			docType: types.DocPDF,
			want:    "img/docs/doc",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newResolver(t, tt.cfg)
			assert.Equal(t, filepath.FromSlash(tt.want), r.Resolve(tt.docName, tt.docType, ""))
			assert.Equal(t, tt.want, r.RelativeDir(tt.docName, tt.docType))
		})
	}
}

func TestResolve_Reproducible(t *testing.T) {
	r := newResolver(t, types.LayoutConfig{BaseDir: "images"})
	first := r.Resolve("报告（最终版）", types.DocWord, "out/images")
	second := r.Resolve("报告（最终版）", types.DocWord, "out/images")
	assert.Equal(t, first, second)
	assert.Equal(t, filepath.FromSlash("out/images/报告(最终版)"), first)
}

func TestResolve_MatchesMarkdownName(t *testing.T) {
	r := newResolver(t, types.LayoutConfig{BaseDir: "images"})
	stem := "季度 报告：终稿"
	assert.Equal(t, "images/"+normalize.Default.Title(stem), r.RelativeDir(stem, types.DocPDF))
}

func TestLink(t *testing.T) {
	r := newResolver(t, types.LayoutConfig{BaseDir: "images"})
	assert.Equal(t, "images/doc/image_001.png", r.Link("doc", types.DocPDF, "image_001.png"))
}

func TestAbsoluteDir(t *testing.T) {
	r := newResolver(t, types.LayoutConfig{BaseDir: "images"})
	assert.Equal(t, filepath.Join("/out", "images", "doc"), r.AbsoluteDir("/out", "doc", types.DocPDF))
}

func TestShared(t *testing.T) {
	tests := []struct {
		template string
		want     bool
	}{
		{"", false},
		{"default", false},
		{"type_based", false},
		{"date_based", false},
		{"nested", false},
		{"flat", true},
		{"{base_dir}/{doc_type}", true},
		{"{base_dir}/all/{doc_name}", false},
	}
	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			r := newResolver(t, types.LayoutConfig{BaseDir: "images", Template: tt.template})
			assert.Equal(t, tt.want, r.Shared())
		})
	}
}

func TestValidateTemplate(t *testing.T) {
	assert.NoError(t, ValidateTemplate("{base_dir}/{doc_type}/{doc_name}"))
	assert.Error(t, ValidateTemplate("{base_dir}/{author}"))
	assert.Error(t, ValidateTemplate("{base_dir}/{doc_name"))

	_, err := New(types.LayoutConfig{Template: "{nope}"}, nil)
	assert.Error(t, err)
}
