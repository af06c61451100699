// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	multiSpaceRe = regexp.MustCompile(` {2,}`)
	emptyCellRe  = regexp.MustCompile(`\|\s*\|`)
	pipeRe       = regexp.MustCompile(`\s*\|\s*`)
	orderedRe    = regexp.MustCompile(`^\d+\.`)
	headingRe    = regexp.MustCompile(`^#{1,6}\s`)
	listItemRe   = regexp.MustCompile(`^[*-]\s`)
)

// minPDFLine is the shortest non-blank line kept from PDF text; shorter
// lines are usually page numbers or running headers.
const minPDFLine = 5

// CleanPDFText repairs artifacts of PDF text extraction: lines wrapped
// mid-sentence are joined, runs of spaces collapse, page numbers and other
// fragments are dropped, and table pipes are normalized.
func CleanPDFText(text string) string {
	if text == "" {
		return text
	}
	text = joinSoftWraps(text)
	text = multiSpaceRe.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" && (utf8.RuneCountInString(line) < minPDFLine || isDigits(line)) {
			continue
		}
		if strings.Contains(line, "|") {
			line = emptyCellRe.ReplaceAllString(line, "|")
			line = strings.TrimSpace(pipeRe.ReplaceAllString(line, " | "))
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// joinSoftWraps replaces a single line break with a space unless the next
// line starts a block (heading, list item, numbered item, bullet).
func joinSoftWraps(text string) string {
	lines := strings.Split(text, "\n")
	var b strings.Builder
	b.Grow(len(text))
	for i, line := range lines {
		b.WriteString(line)
		if i == len(lines)-1 {
			break
		}
		next := lines[i+1]
		if line != "" && next != "" && !startsBlock(next) {
			b.WriteByte(' ')
		} else {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func startsBlock(line string) bool {
	if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "*") || strings.HasPrefix(line, "-") {
		return true
	}
	if orderedRe.MatchString(line) {
		return true
	}
	trimmed := strings.TrimLeft(line, " \t")
	return strings.HasPrefix(trimmed, "•") || strings.HasPrefix(trimmed, "·")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// CleanMarkdown normalizes spacing: trailing spaces are stripped, headings
// and list blocks are set off by blank lines, and runs of blank lines
// collapse to one. Fenced code blocks are left alone.
func CleanMarkdown(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	inFence := false
	prevList := false

	blank := func() {
		if len(out) > 0 && out[len(out)-1] != "" {
			out = append(out, "")
		}
	}

	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if !inFence {
				blank()
			}
			out = append(out, line)
			inFence = !inFence
			if !inFence {
				out = append(out, "")
			}
			prevList = false
			continue
		}
		if inFence {
			out = append(out, line)
			continue
		}

		switch {
		case line == "":
			blank()
			prevList = false
		case headingRe.MatchString(line):
			blank()
			out = append(out, line, "")
			prevList = false
		case listItemRe.MatchString(line):
			if !prevList {
				blank()
			}
			out = append(out, line)
			prevList = true
		default:
			out = append(out, line)
			prevList = false
		}
	}
	return strings.TrimSpace(strings.Join(out, "\n")) + "\n"
}
