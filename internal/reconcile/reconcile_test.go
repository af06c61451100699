// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docmark/internal/imageproc"
	"github.com/pdiddy/docmark/pkg/types"
)

func newTestReconciler() *Reconciler {
	return New(imageproc.New(types.DefaultConfig().Images), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(1, 1, color.RGBA{B: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// extracted writes n images into dir the way an extractor would.
func extracted(t *testing.T, dir string, locators ...string) []types.ExtractedImage {
	t.Helper()
	data := pngBytes(t)
	var out []types.ExtractedImage
	for i, loc := range locators {
		p := filepath.Join(dir, types.ImageFilename(i+1, ".png"))
		n, err := imageproc.Save(p, data)
		require.NoError(t, err)
		out = append(out, types.ExtractedImage{SequenceIndex: i + 1, SourceLocator: loc, StoredPath: p, ByteSize: n})
	}
	return out
}

func newJob(t *testing.T, docName string, images []types.ExtractedImage, imageDir string) Job {
	t.Helper()
	return Job{
		DocName:   docName,
		LinkDir:   "images/" + docName,
		ImageDir:  imageDir,
		SourceDir: t.TempDir(),
		Images:    images,
	}
}

func TestAltTextAndReference(t *testing.T) {
	assert.Equal(t, "image_report_007", AltText("report", 7))
	assert.Equal(t, "![a](images/x/image_001.png)", Reference("a", "images/x/image_001.png"))
}

func TestReconcileBase64BindsExtractedInOrder(t *testing.T) {
	dir := t.TempDir()
	images := extracted(t, dir, "word/media/image1.png", "word/media/image2.png", "word/media/image3.png")
	payload := base64.StdEncoding.EncodeToString(pngBytes(t))

	var text strings.Builder
	for i := 0; i < 3; i++ {
		text.WriteString("Para\n\n![](data:image/png;base64," + payload + ")\n\n")
	}

	out, rep := newTestReconciler().Reconcile(text.String(), newJob(t, "报告(最终版)", images, dir))

	assert.Equal(t, 3, rep.Substituted)
	assert.Zero(t, rep.Unresolved)
	assert.Empty(t, rep.Created)
	assert.Empty(t, rep.Unused)
	assert.NotContains(t, out, "base64")
	for i := 1; i <= 3; i++ {
		ref := Reference(AltText("报告(最终版)", i), "images/报告(最终版)/"+types.ImageFilename(i, "png"))
		assert.Contains(t, out, ref)
	}
	assert.Less(t, strings.Index(out, "image_001.png"), strings.Index(out, "image_002.png"))
	assert.Less(t, strings.Index(out, "image_002.png"), strings.Index(out, "image_003.png"))
}

func TestReconcileBase64CreatesFiles(t *testing.T) {
	dir := t.TempDir()
	images := extracted(t, dir, "word/media/image1.png")
	payload := base64.StdEncoding.EncodeToString(pngBytes(t))
	text := "![a](data:image/png;base64," + payload + ")\n![b](data:image/png;base64," + payload + ")"

	out, rep := newTestReconciler().Reconcile(text, newJob(t, "doc", images, dir))

	assert.Equal(t, 2, rep.Substituted)
	require.Len(t, rep.Created, 1)
	assert.Equal(t, 2, rep.Created[0].SequenceIndex)
	assert.FileExists(t, filepath.Join(dir, "image_002.png"))
	assert.Equal(t, "![image_doc_001](images/doc/image_001.png)\n![image_doc_002](images/doc/image_002.png)", out)
}

func TestReconcileBase64Corrupt(t *testing.T) {
	dir := t.TempDir()
	text := "before ![x](data:image/png;base64,bm90LWFuLWltYWdl) after"

	out, rep := newTestReconciler().Reconcile(text, newJob(t, "doc", nil, dir))

	assert.Equal(t, text, out)
	assert.Zero(t, rep.Substituted)
	assert.Equal(t, 1, rep.Unresolved)
}

func TestReconcileBase64CorruptKeepsExtractedImages(t *testing.T) {
	dir := t.TempDir()
	images := extracted(t, dir, "word/media/image1.png", "word/media/image3.png")
	valid := "![](data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t)) + ")"
	corrupt := "![x](data:image/png;base64,bm90LWFuLWltYWdl)"
	text := valid + "\n" + corrupt + "\n" + valid

	out, rep := newTestReconciler().Reconcile(text, newJob(t, "doc", images, dir))

	assert.Equal(t, "![image_doc_001](images/doc/image_001.png)\n"+corrupt+"\n![image_doc_002](images/doc/image_002.png)", out)
	assert.Equal(t, 2, rep.Substituted)
	assert.Equal(t, 1, rep.Unresolved)
	assert.Empty(t, rep.Unused)
	assert.Empty(t, rep.Created)
}

func TestReconcileBase64UnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	images := extracted(t, dir, "word/media/image1.png")
	text := "![](data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(pngBytes(t)) + ")"

	out, rep := newTestReconciler().Reconcile(text, newJob(t, "doc", images, dir))

	assert.Equal(t, text, out)
	assert.Equal(t, 1, rep.Unresolved)
	assert.Len(t, rep.Unused, 1)
}

func TestReconcileTruncated(t *testing.T) {
	tests := []struct {
		name           string
		markers        int
		images         int
		wantSubs       int
		wantUnresolved int
		wantUnused     int
	}{
		{name: "fewer markers than images", markers: 2, images: 3, wantSubs: 2, wantUnused: 1},
		{name: "equal", markers: 3, images: 3, wantSubs: 3},
		{name: "no images", markers: 2, images: 0, wantUnresolved: 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			locators := make([]string, tc.images)
			for i := range locators {
				locators[i] = "word/media/x.png"
			}
			images := extracted(t, dir, locators...)
			text := strings.Repeat("![](data:image/png;base64...)\n", tc.markers)

			out, rep := newTestReconciler().Reconcile(text, newJob(t, "doc", images, dir))

			assert.Equal(t, tc.wantSubs, rep.Substituted)
			assert.Equal(t, tc.wantUnresolved, rep.Unresolved)
			assert.Len(t, rep.Unused, tc.wantUnused)
			assert.Equal(t, tc.wantUnresolved, strings.Count(out, "base64..."))
		})
	}
}

func TestReconcilePathReferences(t *testing.T) {
	tests := []struct {
		name     string
		locators []string
		text     string
		want     string
	}{
		{
			name:     "exact container name",
			locators: []string{"word/media/image1.png", "word/media/image2.png"},
			text:     "![](media/image2.png)\n![](media/image1.png)",
			want:     "![image_doc_001](images/doc/image_002.png)\n![image_doc_002](images/doc/image_001.png)",
		},
		{
			name:     "numeric ordinal",
			locators: []string{"a", "b", "c"},
			text:     "![fig](./media/picture3.jpeg)",
			want:     "![image_doc_001](images/doc/image_003.png)",
		},
		{
			name:     "positional fallback",
			locators: []string{"a", "b"},
			text:     "![](images/chart.png)\n![](images/logo.png)",
			want:     "![image_doc_001](images/doc/image_001.png)\n![image_doc_002](images/doc/image_002.png)",
		},
		{
			name:     "ordinal already used falls back to position",
			locators: []string{"a", "b"},
			text:     "![](media/image1.png)\n![](media/other1.png)",
			want:     "![image_doc_001](images/doc/image_001.png)\n![image_doc_002](images/doc/image_002.png)",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			images := extracted(t, dir, tc.locators...)
			out, rep := newTestReconciler().Reconcile(tc.text, newJob(t, "doc", images, dir))
			assert.Equal(t, tc.want, out)
			assert.Zero(t, rep.Unresolved)
		})
	}
}

func TestReconcilePathReferenceUnmatched(t *testing.T) {
	dir := t.TempDir()
	text := "![](media/image1.png)"
	out, rep := newTestReconciler().Reconcile(text, newJob(t, "doc", nil, dir))
	assert.Equal(t, text, out)
	assert.Equal(t, 1, rep.Unresolved)
}

func TestReconcileLocalAndNetworkURLs(t *testing.T) {
	dir := t.TempDir()
	job := newJob(t, "doc", nil, dir)
	require.NoError(t, os.WriteFile(filepath.Join(job.SourceDir, "diagram.png"), pngBytes(t), 0o644))

	text := strings.Join([]string{
		"![d](diagram.png)",
		"![n](https://example.com/pic.png)",
		"![m](missing.png)",
	}, "\n")

	out, rep := newTestReconciler().Reconcile(text, job)

	lines := strings.Split(out, "\n")
	assert.Equal(t, "![image_doc_001](images/doc/image_001.png)", lines[0])
	assert.Equal(t, "![n](https://example.com/pic.png)", lines[1])
	assert.Equal(t, "![m](missing.png)", lines[2])
	assert.Equal(t, 1, rep.Substituted)
	assert.Equal(t, 1, rep.Unresolved)
	assert.FileExists(t, filepath.Join(dir, "image_001.png"))
}

func TestReconcileFileURL(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, os.WriteFile(src, pngBytes(t), 0o644))

	out, rep := newTestReconciler().Reconcile("![s](file://"+filepath.ToSlash(src)+")", newJob(t, "doc", nil, dir))

	assert.Equal(t, "![image_doc_001](images/doc/image_001.png)", out)
	assert.Equal(t, 1, rep.Substituted)
}

func TestReconcileSkipsMissingExtractedFile(t *testing.T) {
	dir := t.TempDir()
	images := extracted(t, dir, "a", "b")
	require.NoError(t, os.Remove(images[0].StoredPath))

	out, rep := newTestReconciler().Reconcile("![](data:image/png;base64...)\n![](data:image/png;base64...)", newJob(t, "doc", images, dir))

	assert.Equal(t, 1, rep.Substituted)
	assert.Equal(t, 1, rep.Unresolved)
	assert.Contains(t, out, "images/doc/image_002.png")
	assert.NotContains(t, out, "image_001.png")
}

func TestReconcileIsStableOnCanonicalOutput(t *testing.T) {
	dir := t.TempDir()
	images := extracted(t, dir, "word/media/image1.png")
	r := newTestReconciler()

	first, _ := r.Reconcile("![](media/image1.png)", newJob(t, "doc", images, dir))
	second, rep := r.Reconcile(first, newJob(t, "doc", nil, dir))

	assert.Equal(t, first, second)
	assert.Zero(t, rep.Substituted)
	assert.Zero(t, rep.Unresolved)
}

func TestLocalPath(t *testing.T) {
	tests := []struct {
		target string
		want   string
		local  bool
	}{
		{target: "http://x/a.png", local: false},
		{target: "https://x/a.png", local: false},
		{target: "rel/a.png", want: filepath.Join("/src", "rel", "a.png"), local: true},
		{target: "/abs/a.png", want: "/abs/a.png", local: true},
		{target: "file:///abs/b.png", want: "/abs/b.png", local: true},
	}
	for _, tc := range tests {
		t.Run(tc.target, func(t *testing.T) {
			got, ok := localPath(tc.target, "/src")
			assert.Equal(t, tc.local, ok)
			if ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}
