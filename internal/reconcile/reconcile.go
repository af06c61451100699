// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reconcile rewrites the image placeholders a converter leaves in
// its Markdown output so that each points at a file in the document's image
// directory.
package reconcile

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/docmark/internal/imageproc"
	"github.com/pdiddy/docmark/pkg/types"
)

// Placeholder patterns, applied in this order.
var (
	truncatedRe = regexp.MustCompile(`(?i)!\[([^\]]*)\]\(data:image/([^;]+);base64\.\.\.\)`)
	base64Re    = regexp.MustCompile(`(?i)!\[([^\]]*)\]\(data:image/([^;]+);base64,([A-Za-z0-9+/=]+)\)`)
	pathRe      = regexp.MustCompile(`(?i)!\[([^\]]*)\]\(([^)]*(?:media|images|image)/[^)]+\.(png|jpg|jpeg|gif|bmp|svg|webp))\)`)
	urlRe       = regexp.MustCompile(`(?i)!\[([^\]]*)\]\(([^)]+\.(png|jpg|jpeg|gif|bmp|webp|tiff))\)`)

	ordinalRe = regexp.MustCompile(`\d+`)
)

// AltText is the alt text of the nth image reference in a document.
func AltText(docName string, n int) string {
	return fmt.Sprintf("%s%s_%03d", types.ImagePrefix, docName, n)
}

// Reference formats a Markdown image reference.
func Reference(alt, link string) string {
	return "![" + alt + "](" + link + ")"
}

// Job is the per-document input to a reconciliation pass. Nothing in it
// outlives the call.
type Job struct {
	// DocName is the normalized document name used in alt text.
	DocName string

	// LinkDir is the slash-separated directory written into links, for
	// example "images/report".
	LinkDir string

	// ImageDir is the directory new images are written to.
	ImageDir string

	// SourceDir resolves relative local image references.
	SourceDir string

	// Images are the extractor's results.
	Images []types.ExtractedImage
}

// Report summarizes one pass.
type Report struct {
	// Substituted is the number of references rewritten. It is the
	// document's image count.
	Substituted int

	// Unresolved counts placeholders left unchanged because they could
	// not be bound to an image. Network URLs are not counted.
	Unresolved int

	// Created lists images written during the pass from inline data or
	// local files.
	Created []types.ExtractedImage

	// Unused lists extracted images no placeholder bound to.
	Unused []types.ExtractedImage
}

// Reconciler binds placeholders to images.
type Reconciler struct {
	images *imageproc.Processor
	logger *slog.Logger
}

// New creates a Reconciler. A nil logger uses slog.Default.
func New(images *imageproc.Processor, logger *slog.Logger) *Reconciler {
	if images == nil {
		images = imageproc.New(types.DefaultConfig().Images)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{images: images, logger: logger}
}

// state is the mutable per-call context threaded through the passes.
type state struct {
	*Reconciler
	job       Job
	pool      []types.ExtractedImage
	used      []bool
	nextIndex int
	report    Report
}

// Reconcile applies the four substitution passes to text and returns the
// rewritten text with a report.
func (r *Reconciler) Reconcile(text string, job Job) (string, Report) {
	s := &state{Reconciler: r, job: job}
	s.pool = s.available(job.Images)
	s.used = make([]bool, len(s.pool))
	s.nextIndex = 1
	for _, img := range job.Images {
		if img.SequenceIndex >= s.nextIndex {
			s.nextIndex = img.SequenceIndex + 1
		}
	}

	text = truncatedRe.ReplaceAllStringFunc(text, s.replaceTruncated)
	text = base64Re.ReplaceAllStringFunc(text, s.replaceBase64)
	text = pathRe.ReplaceAllStringFunc(text, s.replacePath)
	text = urlRe.ReplaceAllStringFunc(text, s.replaceURL)

	for i, img := range s.pool {
		if !s.used[i] {
			s.report.Unused = append(s.report.Unused, img)
		}
	}
	r.logger.Debug("reconcile: done", "doc", job.DocName,
		"substituted", s.report.Substituted, "unresolved", s.report.Unresolved,
		"created", len(s.report.Created), "unused", len(s.report.Unused))
	return text, s.report
}

// available orders images by sequence index and drops those whose file is
// gone.
func (s *state) available(images []types.ExtractedImage) []types.ExtractedImage {
	out := make([]types.ExtractedImage, 0, len(images))
	for _, img := range images {
		if _, err := os.Stat(img.StoredPath); err != nil {
			s.logger.Warn("reconcile: extracted image missing", "path", img.StoredPath, "error", err)
			continue
		}
		out = append(out, img)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SequenceIndex < out[j].SequenceIndex })
	return out
}

// emit writes the canonical reference for filename and counts it.
func (s *state) emit(filename string) string {
	s.report.Substituted++
	return Reference(AltText(s.job.DocName, s.report.Substituted), path.Join(s.job.LinkDir, filename))
}

// unresolved leaves match unchanged and counts it.
func (s *state) unresolved(match, reason string) string {
	s.report.Unresolved++
	s.logger.Warn("reconcile: unresolved placeholder", "doc", s.job.DocName, "reason", reason, "placeholder", abbreviate(match))
	return match
}

// nextUnused consumes the lowest-sequence unused extracted image.
func (s *state) nextUnused() (types.ExtractedImage, bool) {
	for i := range s.pool {
		if !s.used[i] {
			s.used[i] = true
			return s.pool[i], true
		}
	}
	return types.ExtractedImage{}, false
}

func (s *state) replaceTruncated(match string) string {
	img, ok := s.nextUnused()
	if !ok {
		return s.unresolved(match, "no extracted image left for truncated data")
	}
	return s.emit(img.Filename())
}

// replaceBase64 binds a valid inline image to the next extracted image, or
// stores it when none is left. A payload that does not decode to an
// acceptable image stays in the text.
func (s *state) replaceBase64(match string) string {
	m := base64Re.FindStringSubmatch(match)
	data, err := decodeBase64(m[3])
	if err != nil {
		return s.unresolved(match, "corrupt base64: "+err.Error())
	}
	if _, err := s.images.Validate(data, m[2]); err != nil {
		return s.unresolved(match, "invalid inline image: "+err.Error())
	}

	if img, ok := s.nextUnused(); ok {
		return s.emit(img.Filename())
	}
	filename, err := s.store(data, m[2], "inline base64")
	if err != nil {
		return s.unresolved(match, err.Error())
	}
	return s.emit(filename)
}

func (s *state) replacePath(match string) string {
	m := pathRe.FindStringSubmatch(match)
	if s.canonical(m[1], m[2]) {
		return match
	}
	if img, ok := s.bindPath(path.Base(m[2])); ok {
		return s.emit(img.Filename())
	}
	return s.unresolved(match, "no extracted image for "+m[2])
}

func (s *state) replaceURL(match string) string {
	m := urlRe.FindStringSubmatch(match)
	if s.canonical(m[1], m[2]) || pathRe.MatchString(match) {
		return match
	}

	local, ok := localPath(m[2], s.job.SourceDir)
	if !ok {
		s.logger.Debug("reconcile: keeping network image", "url", m[2])
		return match
	}
	data, err := os.ReadFile(local)
	if err != nil {
		return s.unresolved(match, "local image unreadable: "+err.Error())
	}
	filename, err := s.store(data, m[3], local)
	if err != nil {
		return s.unresolved(match, err.Error())
	}
	return s.emit(filename)
}

// bindPath resolves a container media name: exact filename, then numeric
// ordinal, then position.
func (s *state) bindPath(name string) (types.ExtractedImage, bool) {
	for i, img := range s.pool {
		if s.used[i] {
			continue
		}
		if strings.EqualFold(img.Filename(), name) || strings.EqualFold(path.Base(img.SourceLocator), name) {
			s.used[i] = true
			return img, true
		}
	}

	if want, err := strconv.Atoi(ordinalRe.FindString(name)); err == nil {
		for i, img := range s.pool {
			if !s.used[i] && img.SequenceIndex == want {
				s.used[i] = true
				return img, true
			}
		}
	}

	return s.nextUnused()
}

// canonical reports whether a reference was produced by an earlier pass.
func (s *state) canonical(alt, target string) bool {
	prefix := types.ImagePrefix + s.job.DocName + "_"
	return strings.HasPrefix(alt, prefix) && path.Dir(target) == path.Clean(s.job.LinkDir)
}

// store validates and writes a new image after the extracted ones.
func (s *state) store(data []byte, format, locator string) (string, error) {
	out, ext, err := s.images.Prepare(data, format)
	if err != nil {
		return "", fmt.Errorf("invalid image: %w", err)
	}
	name := types.ImageFilename(s.nextIndex, ext)
	stored := filepath.Join(s.job.ImageDir, name)
	n, err := imageproc.Save(stored, out)
	if err != nil {
		return "", err
	}
	s.report.Created = append(s.report.Created, types.ExtractedImage{
		SequenceIndex: s.nextIndex,
		SourceLocator: locator,
		StoredPath:    stored,
		ByteSize:      n,
	})
	s.nextIndex++
	return name, nil
}

// localPath resolves target to a local file. Targets with a scheme other
// than file are network references.
func localPath(target, sourceDir string) (string, bool) {
	if u, err := url.Parse(target); err == nil && u.Scheme != "" {
		// Windows drive letters parse as a one-letter scheme.
		switch {
		case u.Scheme == "file":
			target = u.Path
		case len(u.Scheme) == 1:
		default:
			return "", false
		}
	}
	if !filepath.IsAbs(target) && sourceDir != "" {
		target = filepath.Join(sourceDir, filepath.FromSlash(target))
	}
	return target, true
}

func decodeBase64(payload string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, imageproc.ErrEmpty
	}
	return data, nil
}

func abbreviate(s string) string {
	if len(s) <= 80 {
		return s
	}
	return s[:77] + "..."
}
