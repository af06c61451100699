// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package placement positions extracted PDF images in converted text that
// carries no inline image placeholders. Images are anchored below caption
// lines such as "图 2-1" when possible, spread by page ratio otherwise, and
// laid out page by page when the PDF has no text at all.
package placement

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/docmark/internal/reconcile"
	"github.com/pdiddy/docmark/pkg/types"
)

const (
	// anchorLookahead bounds the scan below a caption line.
	anchorLookahead = 10

	// searchWindow bounds the page-ratio search around the target line.
	searchWindow = 10

	// linesPerPage estimates page count from line count.
	linesPerPage = 50
	minPages     = 10
)

// Job is the per-document input to Place.
type Job struct {
	DocName string
	LinkDir string
	Images  []types.ExtractedImage

	// Preceding is the number of image references already in the text.
	// Placed references continue the document's alt text numbering after
	// them, and text that has any is never replaced by a synthesized
	// layout.
	Preceding int
}

// Outcome reports what Place did.
type Outcome struct {
	Mode types.PlacementMode

	// Placed is the number of image references inserted.
	Placed int

	// Skipped counts images whose file no longer exists.
	Skipped int
}

// Placer inserts image references into text.
type Placer struct {
	table     *Table
	threshold float64
	minText   int
	logger    *slog.Logger
}

// New creates a Placer from configuration, loading the caption table from
// cfg.CaptionsFile when set.
func New(cfg types.PlacementConfig, logger *slog.Logger) (*Placer, error) {
	table, err := LoadTable(cfg.CaptionsFile)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Placer{table: table, threshold: cfg.Threshold, minText: cfg.MinTextLength, logger: logger}, nil
}

// Place inserts references for job.Images into text.
func (p *Placer) Place(text string, job Job) (string, Outcome) {
	images, skipped := p.available(job.Images)
	out := Outcome{Skipped: skipped}

	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < p.minText && job.Preceding == 0 {
		if len(images) == 0 && trimmed != "" {
			return text, out
		}
		out.Mode = types.PlacementSynthesis
		out.Placed = len(images)
		p.logger.Info("placement: image-only pdf, synthesizing pages", "doc", job.DocName, "images", len(images))
		return synthesize(job, images), out
	}
	if len(images) == 0 {
		return text, out
	}

	lines := strings.Split(text, "\n")
	if ins := p.byCaption(lines, job, images); len(ins) > 0 {
		out.Mode = types.PlacementCaption
		out.Placed = ins.count()
		return ins.apply(lines), out
	}

	ins := p.byPageRatio(lines, job, images)
	out.Mode = types.PlacementPageRatio
	out.Placed = ins.count()
	p.logger.Debug("placement: no caption anchors, using page ratio", "doc", job.DocName)
	return ins.apply(lines), out
}

// insertions maps an original line index to the references inserted before
// it, in insertion order. Offsets refer to the unmodified lines, so earlier
// insertions never shift later anchors.
type insertions map[int][]string

func (ins insertions) add(at int, ref string) {
	ins[at] = append(ins[at], ref)
}

func (ins insertions) count() int {
	n := 0
	for _, refs := range ins {
		n += len(refs)
	}
	return n
}

// apply inserts a blank line and the reference at each anchor.
func (ins insertions) apply(lines []string) string {
	out := make([]string, 0, len(lines)+2*ins.count())
	for i := 0; i <= len(lines); i++ {
		for _, ref := range ins[i] {
			out = append(out, "", ref)
		}
		if i < len(lines) {
			out = append(out, lines[i])
		}
	}
	return strings.Join(out, "\n")
}

// byCaption anchors each image below the earliest unused caption line
// scoring above the threshold.
func (p *Placer) byCaption(lines []string, job Job, images []types.ExtractedImage) insertions {
	refs := p.table.Scan(lines)
	used := make(map[int]bool, len(refs))
	ins := insertions{}
	n := job.Preceding
	for _, img := range images {
		var best *types.CaptionReference
		for i := range refs {
			if !used[refs[i].LineIndex] && refs[i].Score > p.threshold {
				best = &refs[i]
				break
			}
		}
		if best == nil {
			continue
		}
		used[best.LineIndex] = true
		at := anchorAfter(lines, best.LineIndex)
		n++
		ins.add(at, reference(job, img, n))
		p.logger.Debug("placement: caption anchor", "image", img.Filename(), "line", at,
			"pattern", best.Pattern, "score", best.Score)
	}
	return ins
}

// byPageRatio places each image at its page's share of the text.
func (p *Placer) byPageRatio(lines []string, job Job, images []types.ExtractedImage) insertions {
	total := len(lines)
	pages := max(minPages, total/linesPerPage)
	ins := insertions{}
	for i, img := range images {
		page := max(img.PageNumber, 1)
		target := int(float64(page) / float64(pages) * float64(total))
		target = max(0, min(target, total-1))
		ins.add(nearestBreak(lines, target), reference(job, img, job.Preceding+i+1))
	}
	return ins
}

// anchorAfter finds where to insert below a caption at ref: the next blank
// or heading line, or the line after a sentence end that closes a paragraph.
func anchorAfter(lines []string, ref int) int {
	end := min(ref+anchorLookahead, len(lines))
	for i := ref + 1; i < end; i++ {
		line := strings.TrimSpace(lines[i])
		if isBreak(line) {
			return i
		}
		if endsSentence(line) && i+1 < len(lines) && isBreak(strings.TrimSpace(lines[i+1])) {
			return i + 1
		}
	}
	return ref + 1
}

// nearestBreak searches forward, then backward, from target for a blank or
// heading line.
func nearestBreak(lines []string, target int) int {
	end := min(len(lines), target+searchWindow)
	for i := target; i < end; i++ {
		if isBreak(strings.TrimSpace(lines[i])) {
			return i
		}
	}
	start := max(0, target-searchWindow)
	for i := target - 1; i >= start; i-- {
		if isBreak(strings.TrimSpace(lines[i])) {
			return i + 1
		}
	}
	return target
}

func isBreak(line string) bool {
	return line == "" || strings.HasPrefix(line, "#")
}

func endsSentence(line string) bool {
	for _, s := range []string{"。", ".", "：", ":"} {
		if strings.HasSuffix(line, s) {
			return true
		}
	}
	return false
}

// synthesize builds a page-per-heading document for an image-only PDF.
func synthesize(job Job, images []types.ExtractedImage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", job.DocName)
	if len(images) == 0 {
		b.WriteString("**注意**: 这是一个图片型PDF文档，未能提取到文本内容或图片。\n")
		return b.String()
	}
	b.WriteString("**注意**: 这是一个图片型PDF文档，无法提取文本内容。以下是提取的图片：\n\n")

	byPage := make([]types.ExtractedImage, len(images))
	copy(byPage, images)
	sort.SliceStable(byPage, func(i, j int) bool {
		return max(byPage[i].PageNumber, 1) < max(byPage[j].PageNumber, 1)
	})

	page := 0
	for _, img := range byPage {
		if p := max(img.PageNumber, 1); p != page {
			page = p
			fmt.Fprintf(&b, "## 第%d页\n\n", page)
		}
		fmt.Fprintf(&b, "%s\n\n", reconcile.Reference(fmt.Sprintf("图片%d", img.SequenceIndex), path.Join(job.LinkDir, img.Filename())))
	}
	return b.String()
}

// reference formats the nth image reference of the document.
func reference(job Job, img types.ExtractedImage, n int) string {
	return reconcile.Reference(reconcile.AltText(job.DocName, n), path.Join(job.LinkDir, img.Filename()))
}

// available orders images by sequence index and drops missing files.
func (p *Placer) available(images []types.ExtractedImage) ([]types.ExtractedImage, int) {
	out := make([]types.ExtractedImage, 0, len(images))
	skipped := 0
	for _, img := range images {
		if _, err := os.Stat(img.StoredPath); err != nil {
			p.logger.Warn("placement: image file missing", "path", img.StoredPath)
			skipped++
			continue
		}
		out = append(out, img)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SequenceIndex < out[j].SequenceIndex })
	return out, skipped
}
