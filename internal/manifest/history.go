// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package manifest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/docmark/pkg/types"
)

// JobRecord is a stored batch run.
type JobRecord struct {
	ID         string           `json:"id" yaml:"id"`
	StartedAt  time.Time        `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time        `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Stats      types.BatchStats `json:"stats" yaml:"stats"`
}

// DocumentRecord is a stored document result.
type DocumentRecord struct {
	ID         int64        `json:"id" yaml:"id"`
	JobID      string       `json:"job_id" yaml:"job_id"`
	RecordedAt time.Time    `json:"recorded_at" yaml:"recorded_at"`
	Result     types.Result `json:"result" yaml:"result"`
}

const defaultLimit = 20

// Jobs returns the most recent jobs, newest first.
func (s *Store) Jobs(ctx context.Context, limit int) ([]JobRecord, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, total, converted, partial, skipped, failed,
			images, captions, duration_ms
		 FROM jobs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}
	defer rows.Close()

	var jobs []JobRecord
	for rows.Next() {
		var (
			j        JobRecord
			started  string
			finished sql.NullString
			ms       int64
		)
		if err := rows.Scan(&j.ID, &started, &finished, &j.Stats.Total, &j.Stats.Converted,
			&j.Stats.Partial, &j.Stats.Skipped, &j.Stats.Failed, &j.Stats.Images,
			&j.Stats.Captions, &ms); err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		j.Stats.JobID = j.ID
		j.Stats.Duration = time.Duration(ms) * time.Millisecond
		j.StartedAt = parseTime(started)
		if finished.Valid {
			j.FinishedAt = parseTime(finished.String)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// DocumentQuery filters Documents.
type DocumentQuery struct {
	// JobID restricts results to one job. A unique prefix is accepted.
	JobID string

	// Name matches a substring of the document name.
	Name string

	Status types.ConversionStatus

	// WithImages loads each document's image list.
	WithImages bool

	// Limit caps the result count. Zero uses the default.
	Limit int
}

// Documents returns stored document results, newest first.
func (s *Store) Documents(ctx context.Context, q DocumentQuery) ([]DocumentRecord, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT id, job_id, source, output, doc_name, doc_type, status, converter, placement,
			images, unresolved, captions, duration_ms, error, recorded_at
		 FROM documents WHERE 1=1`)
	if q.JobID != "" {
		qb.WriteString(` AND job_id LIKE ? || '%'`)
		args = append(args, q.JobID)
	}
	if q.Name != "" {
		qb.WriteString(` AND doc_name LIKE '%' || ? || '%'`)
		args = append(args, q.Name)
	}
	if q.Status != "" {
		qb.WriteString(` AND status = ?`)
		args = append(args, string(q.Status))
	}
	qb.WriteString(` ORDER BY id DESC LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []DocumentRecord
	for rows.Next() {
		var (
			d                                     DocumentRecord
			output, converter, placement, errText sql.NullString
			docType, status, recorded             string
			ms                                    int64
		)
		if err := rows.Scan(&d.ID, &d.JobID, &d.Result.Source, &output, &d.Result.DocName, &docType,
			&status, &converter, &placement, &d.Result.Images, &d.Result.Unresolved,
			&d.Result.Captions, &ms, &errText, &recorded); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		d.Result.Output = output.String
		d.Result.DocType = types.DocType(docType)
		d.Result.Status = types.ConversionStatus(status)
		d.Result.Converter = converter.String
		d.Result.Placement = types.PlacementMode(placement.String)
		d.Result.Error = errText.String
		d.Result.Duration = time.Duration(ms) * time.Millisecond
		d.RecordedAt = parseTime(recorded)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if q.WithImages {
		for i := range docs {
			imgs, err := s.images(ctx, docs[i].ID)
			if err != nil {
				return nil, err
			}
			docs[i].Result.Extracted = imgs
		}
	}
	return docs, nil
}

func (s *Store) images(ctx context.Context, documentID int64) ([]types.ExtractedImage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sequence_index, source_locator, page_number, stored_path, byte_size
		 FROM images WHERE document_id = ? ORDER BY sequence_index`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying images: %w", err)
	}
	defer rows.Close()

	var imgs []types.ExtractedImage
	for rows.Next() {
		var (
			img     types.ExtractedImage
			locator sql.NullString
			page    sql.NullInt64
		)
		if err := rows.Scan(&img.SequenceIndex, &locator, &page, &img.StoredPath, &img.ByteSize); err != nil {
			return nil, fmt.Errorf("scanning image: %w", err)
		}
		img.SourceLocator = locator.String
		img.PageNumber = int(page.Int64)
		imgs = append(imgs, img)
	}
	return imgs, rows.Err()
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
