// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize turns arbitrary document and image names into safe,
// deterministic file and directory names. The Markdown output filename and
// the document's image directory are both derived from Normalize in title
// mode, so the two always agree.
package normalize

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"
	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/docmark/pkg/types"
)

// Unnamed is returned for input that normalizes to nothing.
const Unnamed = "unnamed"

const (
	defaultMaxLength = 200
	maxAltTextLength = 30
	defaultAltText   = "image"
)

// replacer applies the fixed substitution table for unsafe and full-width
// characters.
var replacer = strings.NewReplacer(
	"（", "(",
	"）", ")",
	"：", "_",
	"；", "_",
	"，", "_",
	"。", ".",
	"？", "",
	"！", "",
	"【", "[",
	"】", "]",
	"《", "",
	"》", "",
	`"`, "",
	"'", "",
	`\`, "_",
	"/", "_",
	"*", "_",
	"?", "",
	"<", "",
	">", "",
	"|", "_",
	":", "_",
	" ", "_",
	"　", "_",
	"\t", "_",
	"\n", "_",
	"\r", "_",
)

var (
	underscoreRun = regexp.MustCompile(`_+`)
	dotRun        = regexp.MustCompile(`\.+`)
)

// Normalizer holds the naming settings. The zero value is usable and uses
// the default length limit with transliteration off.
type Normalizer struct {
	maxLength     int
	transliterate bool
	args          pinyin.Args
}

// New creates a Normalizer from configuration.
func New(cfg types.NamingConfig) *Normalizer {
	n := &Normalizer{
		maxLength:     cfg.MaxFilenameLength,
		transliterate: cfg.Transliterate,
	}
	if n.transliterate {
		n.args = pinyin.NewArgs()
	}
	return n
}

// Default is a Normalizer with default settings.
var Default = New(types.NamingConfig{MaxFilenameLength: defaultMaxLength})

// Normalize maps raw to a safe name. In title mode the whole string is
// treated as a stem and never truncated; otherwise the extension is split
// off, kept, and the stem is truncated so that stem+ext fits the limit.
// Normalize never returns an empty string.
func (n *Normalizer) Normalize(raw string, isTitle bool) string {
	if raw == "" {
		return Unnamed
	}
	raw = norm.NFC.String(raw)

	name, ext := raw, ""
	if !isTitle {
		ext = filepath.Ext(raw)
		name = strings.TrimSuffix(raw, ext)
	}

	name = replacer.Replace(name)
	name = strings.Map(dropControl, name)

	if n.transliterate && !strings.EqualFold(ext, ".md") {
		name = n.toPinyin(name)
	}

	name = underscoreRun.ReplaceAllString(name, "_")
	name = dotRun.ReplaceAllString(name, ".")
	name = strings.Trim(name, "_.")

	if !isTitle {
		name = n.truncate(name, ext)
	}

	if name == "" {
		name = Unnamed
	}
	return name + ext
}

// Title is shorthand for Normalize(raw, true).
func (n *Normalizer) Title(raw string) string {
	return n.Normalize(raw, true)
}

// truncate caps the stem, counted in runes, leaving room for ext.
func (n *Normalizer) truncate(name, ext string) string {
	maxLen := n.maxLength
	if maxLen <= 0 {
		maxLen = defaultMaxLength
	}
	runes := []rune(name)
	available := maxLen - len([]rune(ext))
	switch {
	case available > 0 && len(runes) > available:
		return strings.TrimRight(string(runes[:available]), "_.")
	case available <= 0:
		keep := min(10, maxLen/2)
		if len(runes) > keep {
			return string(runes[:keep])
		}
	}
	return name
}

// toPinyin replaces each Han character with its toneless romanization and
// leaves everything else in place.
func (n *Normalizer) toPinyin(s string) string {
	var b strings.Builder
	for _, r := range s {
		if !unicode.Is(unicode.Han, r) {
			b.WriteRune(r)
			continue
		}
		py := pinyin.LazyPinyin(string(r), n.args)
		if len(py) == 0 {
			b.WriteRune(r)
			continue
		}
		b.WriteString(py[0])
	}
	return b.String()
}

func dropControl(r rune) rune {
	if unicode.IsControl(r) {
		return -1
	}
	return r
}

var altUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_\p{Han}]`)

// AltText reduces text to letters, digits, underscores and Han characters,
// capped at 30 runes. Empty results become "image".
func AltText(text string) string {
	s := altUnsafe.ReplaceAllString(text, "")
	if r := []rune(s); len(r) > maxAltTextLength {
		s = string(r[:maxAltTextLength])
	}
	if s == "" {
		return defaultAltText
	}
	return s
}
