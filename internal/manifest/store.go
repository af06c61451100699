// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package manifest records conversion jobs, their documents, and the images
// each document produced in a SQLite database under the output directory.
package manifest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/docmark/pkg/types"
)

const (
	stateDir = ".docmark"
	dbFile   = "manifest.db"
)

// DefaultPath is the manifest location for an output directory.
func DefaultPath(outputDir string) string {
	return filepath.Join(outputDir, stateDir, dbFile)
}

// Store manages the manifest database.
type Store struct {
	db   *sql.DB
	path string

	// mu serializes writers; batch workers record concurrently.
	mu sync.Mutex
}

// Open opens or creates the manifest at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating manifest directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Path is the database file.
func (s *Store) Path() string { return s.path }

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			total INTEGER NOT NULL DEFAULT 0,
			converted INTEGER NOT NULL DEFAULT 0,
			partial INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			images INTEGER NOT NULL DEFAULT 0,
			captions INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			source TEXT NOT NULL,
			output TEXT,
			doc_name TEXT,
			doc_type TEXT,
			status TEXT NOT NULL,
			converter TEXT,
			placement TEXT,
			images INTEGER NOT NULL DEFAULT 0,
			unresolved INTEGER NOT NULL DEFAULT 0,
			captions INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			recorded_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_job_id ON documents(job_id)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_doc_name ON documents(doc_name)`,
		`CREATE TABLE IF NOT EXISTS images (
			document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			sequence_index INTEGER NOT NULL,
			source_locator TEXT,
			page_number INTEGER,
			stored_path TEXT NOT NULL,
			byte_size INTEGER NOT NULL,
			PRIMARY KEY (document_id, sequence_index)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// StartJob inserts a job row.
func (s *Store) StartJob(ctx context.Context, jobID string, started time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, started_at) VALUES (?, ?)`,
		jobID, started.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting job %s: %w", jobID, err)
	}
	return nil
}

// RecordDocument stores one document result and its images.
func (s *Store) RecordDocument(ctx context.Context, jobID string, res types.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	r, err := tx.ExecContext(ctx,
		`INSERT INTO documents (job_id, source, output, doc_name, doc_type, status, converter,
			placement, images, unresolved, captions, duration_ms, error, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		jobID, res.Source, res.Output, res.DocName, string(res.DocType), string(res.Status), res.Converter,
		string(res.Placement), res.Images, res.Unresolved, res.Captions, res.Duration.Milliseconds(), res.Error,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting document %s: %w", res.Source, err)
	}
	docID, err := r.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading document id: %w", err)
	}

	if len(res.Extracted) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO images (document_id, sequence_index, source_locator, page_number, stored_path, byte_size)
			 VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for _, img := range res.Extracted {
			if _, err := stmt.ExecContext(ctx, docID, img.SequenceIndex, img.SourceLocator,
				img.PageNumber, img.StoredPath, img.ByteSize); err != nil {
				return fmt.Errorf("inserting image %d: %w", img.SequenceIndex, err)
			}
		}
	}

	return tx.Commit()
}

// FinishJob stores the batch summary on the job row.
func (s *Store) FinishJob(ctx context.Context, jobID string, stats types.BatchStats, finished time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET finished_at = ?, total = ?, converted = ?, partial = ?, skipped = ?,
			failed = ?, images = ?, captions = ?, duration_ms = ?
		 WHERE id = ?`,
		finished.UTC().Format(time.RFC3339Nano), stats.Total, stats.Converted, stats.Partial,
		stats.Skipped, stats.Failed, stats.Images, stats.Captions, stats.Duration.Milliseconds(), jobID,
	)
	if err != nil {
		return fmt.Errorf("updating job %s: %w", jobID, err)
	}
	if n, _ := r.RowsAffected(); n == 0 {
		return fmt.Errorf("job %s not found", jobID)
	}
	return nil
}
