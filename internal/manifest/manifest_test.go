// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pdiddy/docmark/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(DefaultPath(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleResult(name string, status types.ConversionStatus, images int) types.Result {
	res := types.Result{
		Source:    "/in/" + name + ".docx",
		Output:    "/out/" + name + ".md",
		DocName:   name,
		DocType:   types.DocWord,
		Status:    status,
		Converter: "docx",
		Images:    images,
		Duration:  1500 * time.Millisecond,
	}
	for i := 1; i <= images; i++ {
		res.Extracted = append(res.Extracted, types.ExtractedImage{
			SequenceIndex: i,
			SourceLocator: "word/media/image" + string(rune('0'+i)) + ".png",
			StoredPath:    "/out/images/" + name + "/" + types.ImageFilename(i, "png"),
			ByteSize:      int64(100 * i),
		})
	}
	return res
}

// --- schema tests ---

func TestOpenCreatesSchema(t *testing.T) {
	store := testStore(t)

	for _, table := range []string{"jobs", "documents", "images"} {
		var count int
		err := store.db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("checking table %s: %v", table, err)
		}
		if count == 0 {
			t.Errorf("table %s does not exist", table)
		}
	}
}

func TestOpenCreatesDBFile(t *testing.T) {
	out := t.TempDir()
	store, err := Open(DefaultPath(out))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	want := filepath.Join(out, ".docmark", "manifest.db")
	if store.Path() != want {
		t.Errorf("Path() = %q, want %q", store.Path(), want)
	}
	if _, err := os.Stat(want); os.IsNotExist(err) {
		t.Errorf("database file not created at %s", want)
	}
}

func TestOpenIsReentrant(t *testing.T) {
	path := DefaultPath(t.TempDir())
	for i := 0; i < 2; i++ {
		store, err := Open(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		store.Close()
	}
}

// --- recording tests ---

func TestRecordJob(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	if err := store.StartJob(ctx, "job-1", started); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordDocument(ctx, "job-1", sampleResult("报告", types.ConversionDone, 2)); err != nil {
		t.Fatal(err)
	}
	failed := types.Result{Source: "/in/bad.pdf", DocName: "bad", DocType: types.DocPDF,
		Status: types.ConversionFailed, Error: "file is empty"}
	if err := store.RecordDocument(ctx, "job-1", failed); err != nil {
		t.Fatal(err)
	}

	stats := types.BatchStats{Total: 2, Converted: 1, Failed: 1, Images: 2, Duration: 3 * time.Second}
	if err := store.FinishJob(ctx, "job-1", stats, started.Add(3*time.Second)); err != nil {
		t.Fatal(err)
	}

	jobs, err := store.Jobs(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Fatalf("got %d jobs, want 1", len(jobs))
	}
	j := jobs[0]
	if j.ID != "job-1" || j.Stats.Converted != 1 || j.Stats.Failed != 1 || j.Stats.Images != 2 {
		t.Errorf("unexpected job %+v", j)
	}
	if !j.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", j.StartedAt, started)
	}
	if j.Stats.Duration != 3*time.Second {
		t.Errorf("Duration = %v", j.Stats.Duration)
	}

	docs, err := store.Documents(ctx, DocumentQuery{JobID: "job", WithImages: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	// Newest first.
	if docs[0].Result.Error != "file is empty" || docs[0].Result.Status != types.ConversionFailed {
		t.Errorf("unexpected first document %+v", docs[0].Result)
	}
	good := docs[1].Result
	if good.DocName != "报告" || good.Converter != "docx" || good.Duration != 1500*time.Millisecond {
		t.Errorf("unexpected second document %+v", good)
	}
	if len(good.Extracted) != 2 || good.Extracted[1].SequenceIndex != 2 || good.Extracted[1].ByteSize != 200 {
		t.Errorf("unexpected images %+v", good.Extracted)
	}
}

func TestDocumentsFilters(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	now := time.Now()

	for _, job := range []string{"aaa", "bbb"} {
		if err := store.StartJob(ctx, job, now); err != nil {
			t.Fatal(err)
		}
	}
	store.RecordDocument(ctx, "aaa", sampleResult("alpha", types.ConversionDone, 0))
	store.RecordDocument(ctx, "aaa", sampleResult("beta", types.ConversionPartial, 1))
	store.RecordDocument(ctx, "bbb", sampleResult("alphabet", types.ConversionDone, 0))

	tests := []struct {
		name string
		q    DocumentQuery
		want int
	}{
		{"all", DocumentQuery{}, 3},
		{"by job", DocumentQuery{JobID: "aaa"}, 2},
		{"by name", DocumentQuery{Name: "alpha"}, 2},
		{"by status", DocumentQuery{Status: types.ConversionPartial}, 1},
		{"limit", DocumentQuery{Limit: 1}, 1},
		{"no match", DocumentQuery{Name: "gamma"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := store.Documents(ctx, tt.q)
			if err != nil {
				t.Fatal(err)
			}
			if len(docs) != tt.want {
				t.Errorf("got %d documents, want %d", len(docs), tt.want)
			}
		})
	}
}

func TestFinishUnknownJob(t *testing.T) {
	store := testStore(t)
	if err := store.FinishJob(context.Background(), "missing", types.BatchStats{}, time.Now()); err == nil {
		t.Error("expected error for unknown job")
	}
}

func TestRecordDocumentRequiresJob(t *testing.T) {
	store := testStore(t)
	err := store.RecordDocument(context.Background(), "missing", sampleResult("x", types.ConversionDone, 0))
	if err == nil {
		t.Error("expected foreign key error for unknown job")
	}
}
