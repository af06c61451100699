// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/docmark/pkg/types"
)

func TestNormalize_Title(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"full-width parentheses", "报告（最终版）", "报告(最终版)"},
		{"spaces become underscores", "annual report 2025", "annual_report_2025"},
		{"full-width space", "季度　总结", "季度_总结"},
		{"colons and commas", "会议：纪要，第一版", "会议_纪要_第一版"},
		{"deleted punctuation", "《标题》？！", "标题"},
		{"brackets", "【草稿】方案", "[草稿]方案"},
		{"path separators", `a/b\c`, "a_b_c"},
		{"collapses runs", "a___b...c", "a_b.c"},
		{"strips edges", "__.name._", "name"},
		{"keeps dots inside title", "v1.2 notes", "v1.2_notes"},
		{"control characters dropped", "tab\x07bell", "tabbell"},
		{"empty input", "", Unnamed},
		{"degenerate input", "?<>《》", Unnamed},
		{"only separators", "___...", Unnamed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Default.Normalize(tt.raw, true))
		})
	}
}

func TestNormalize_TitleNeverTruncates(t *testing.T) {
	n := New(types.NamingConfig{MaxFilenameLength: 20})
	long := strings.Repeat("文", 100)
	assert.Equal(t, long, n.Normalize(long, true))
}

func TestNormalize_FilenameTruncation(t *testing.T) {
	tests := []struct {
		name   string
		maxLen int
		raw    string
		want   string
	}{
		{"fits", 20, "short.png", "short.png"},
		{"truncates stem keeping extension", 10, "abcdefghijkl.png", "abcdef.png"},
		{"counts runes not bytes", 6, "图片图片图片.md", "图片图.md"},
		{"extension longer than limit keeps minimum stem", 8, "abcdefghijklmnop.verylongext", "abcd.verylongext"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New(types.NamingConfig{MaxFilenameLength: tt.maxLen})
			assert.Equal(t, tt.want, n.Normalize(tt.raw, false))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"报告（最终版）",
		"  spaced  out  ",
		"a。_b",
		"mixed: Ünïcödé / 名字",
		"..hidden..",
	}
	for _, in := range inputs {
		once := Default.Normalize(in, true)
		assert.Equal(t, once, Default.Normalize(once, true), "input %q", in)
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	a := Default.Normalize("报告（最终版）", true)
	b := Default.Normalize("报告（最终版）", true)
	assert.Equal(t, a, b)
}

func TestNormalize_NFC(t *testing.T) {
	// e followed by a combining acute accent composes to a single rune.
	assert.Equal(t, "caf\u00e9", Default.Normalize("cafe\u0301", true))
}

func TestNormalize_Transliterate(t *testing.T) {
	n := New(types.NamingConfig{MaxFilenameLength: 200, Transliterate: true})

	assert.Equal(t, "zhongwen_doc", n.Normalize("中文 doc", true))
	assert.Equal(t, "baogao.png", n.Normalize("报告.png", false))
	assert.Equal(t, "报告.md", n.Normalize("报告.md", false), "markdown names keep their characters")
}

func TestAltText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Figure 1: overview", "Figure1overview"},
		{"图 2-1 流程", "图21流程"},
		{"", "image"},
		{"!!!", "image"},
		{strings.Repeat("a", 40), strings.Repeat("a", 30)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, AltText(tt.in))
		})
	}
}
