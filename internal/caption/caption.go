// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package caption adds short LLM-generated descriptions below image
// references in converted Markdown. Captioning is best effort: a failed
// request leaves the reference without a caption.
package caption

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/pdiddy/docmark/internal/imageproc"
	"github.com/pdiddy/docmark/pkg/types"
)

// Captioner describes one image.
type Captioner interface {
	Caption(ctx context.Context, img Image) (string, error)
}

// Image is the input to a caption request.
type Image struct {
	// DocName is the document the image belongs to, used as prompt context.
	DocName string

	// MediaType is the MIME type, e.g. "image/png".
	MediaType string

	Data []byte
}

// captionPromptTmpl is sent alongside each image.
var captionPromptTmpl = template.Must(template.New("caption").Parse(`This image was extracted from the document "{{.DocName}}".
Describe what it shows in one short sentence suitable as a figure caption.
Answer in the language of the document title. Reply with the caption only, without quotes or a leading label.`))

func renderPrompt(docName string) (string, error) {
	var buf bytes.Buffer
	if err := captionPromptTmpl.Execute(&buf, struct{ DocName string }{DocName: docName}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// New returns the backend named by cfg.Provider.
func New(cfg types.CaptionConfig, apiKey string, logger *slog.Logger) (Captioner, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("no API key for caption provider %q", cfg.Provider)
	}
	client := &http.Client{Timeout: cfg.Timeout}
	switch cfg.Provider {
	case types.ProviderAnthropic, "":
		return &AnthropicBackend{
			APIKey: apiKey, Model: cfg.Model, BaseURL: cfg.BaseURL,
			MaxRetries: cfg.MaxRetries, Client: client, Logger: logger,
		}, nil
	case types.ProviderOpenAI:
		return &OpenAIBackend{
			APIKey: apiKey, Model: cfg.Model, BaseURL: cfg.BaseURL,
			MaxRetries: cfg.MaxRetries, Client: client, Logger: logger,
		}, nil
	}
	return nil, fmt.Errorf("unknown caption provider %q", cfg.Provider)
}

// refLine matches a line holding exactly one image reference.
var refLine = regexp.MustCompile(`^!\[[^\]]*\]\(([^)\s]+)\)\s*$`)

// Annotator inserts "> caption" lines below image references.
type Annotator struct {
	captioner Captioner
	timeout   time.Duration
	logger    *slog.Logger
}

// NewAnnotator wraps c. Each request is bounded by timeout when positive.
func NewAnnotator(c Captioner, timeout time.Duration, logger *slog.Logger) *Annotator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Annotator{captioner: c, timeout: timeout, logger: logger}
}

// Job identifies the document being annotated.
type Job struct {
	DocName string

	// LinkDir is the link prefix of the document's images.
	LinkDir string

	// ImageDir holds the image files.
	ImageDir string
}

// Annotate captions every reference into job.LinkDir that is not already
// followed by a quote line. It returns the new text and the number of
// captions added.
func (a *Annotator) Annotate(ctx context.Context, text string, job Job) (string, int) {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	added := 0
	linkDir := path.Clean(job.LinkDir)

	for i, line := range lines {
		out = append(out, line)
		m := refLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil || path.Dir(m[1]) != linkDir || captioned(lines, i) {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		caption, err := a.caption(ctx, job, path.Base(m[1]))
		if err != nil {
			a.logger.Warn("caption: failed", "doc", job.DocName, "image", m[1], "error", err)
			continue
		}
		out = append(out, "", "> "+caption)
		added++
	}
	return strings.Join(out, "\n"), added
}

func (a *Annotator) caption(ctx context.Context, job Job, filename string) (string, error) {
	data, err := os.ReadFile(filepath.Join(job.ImageDir, filename))
	if err != nil {
		return "", err
	}
	info, err := imageproc.Inspect(data)
	if err != nil {
		return "", err
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	text, err := a.captioner.Caption(ctx, Image{
		DocName:   job.DocName,
		MediaType: "image/" + imageproc.CanonicalFormat(info.Format),
		Data:      data,
	})
	if err != nil {
		return "", err
	}
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "", fmt.Errorf("empty caption")
	}
	return text, nil
}

// captioned reports whether the reference at i is already followed by a
// quote line.
func captioned(lines []string, i int) bool {
	for _, next := range lines[i+1:] {
		next = strings.TrimSpace(next)
		if next == "" {
			continue
		}
		return strings.HasPrefix(next, ">")
	}
	return false
}
