// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the docmark pipeline:
// extracted images, placeholders, caption anchors, conversion results,
// and configuration.
package types

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ImagePrefix is the filename prefix for every stored image.
const ImagePrefix = "image_"

// ExtractedImage is one image pulled from a source container and written
// to the document's image directory. It is immutable once created.
type ExtractedImage struct {
	// SequenceIndex is the 1-based assignment order within the document.
	SequenceIndex int `json:"sequence_index" yaml:"sequence_index"`

	// SourceLocator identifies the image inside its container, e.g.
	// "word/media/image1.png" or "page 3 image 2 (obj 17)".
	SourceLocator string `json:"source_locator" yaml:"source_locator"`

	// PageNumber is the 1-based PDF page. Zero means the container has no pages.
	PageNumber int `json:"page_number,omitempty" yaml:"page_number,omitempty"`

	// StoredPath is the absolute path of the written file.
	StoredPath string `json:"stored_path" yaml:"stored_path"`

	// ByteSize is the size of the written file.
	ByteSize int64 `json:"byte_size" yaml:"byte_size"`
}

// Filename returns the base name of the stored file.
func (e ExtractedImage) Filename() string {
	return filepath.Base(e.StoredPath)
}

// Valid reports whether the entry points at a non-empty stored file.
func (e ExtractedImage) Valid() bool {
	return e.SequenceIndex > 0 && e.StoredPath != "" && e.ByteSize > 0
}

// ImageFilename builds the standardized name image_NNN.ext. The extension
// may be given with or without its leading dot.
func ImageFilename(index int, ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	return fmt.Sprintf("%s%03d.%s", ImagePrefix, index, ext)
}

// PlaceholderKind classifies an image placeholder found in converted text.
type PlaceholderKind string

const (
	PlaceholderBase64       PlaceholderKind = "inline-base64"
	PlaceholderTruncated    PlaceholderKind = "truncated-base64"
	PlaceholderRelativePath PlaceholderKind = "relative-path-reference"
	PlaceholderURL          PlaceholderKind = "generic-url-reference"
	PlaceholderCaption      PlaceholderKind = "caption-reference"
)

// ImagePlaceholder is a textual marker in converted content that stands in
// for an image. It lives only for the duration of one reconciliation pass.
type ImagePlaceholder struct {
	Kind PlaceholderKind

	// Start and End are byte offsets of the full match in the scanned text.
	Start, End int

	AltText string

	// Format is the declared image subtype ("png", "jpeg") for data URIs,
	// or the file extension for path references.
	Format string

	// Payload holds the decoded bytes of an inline base64 image.
	Payload []byte

	// Target is the referenced path or URL for path and URL placeholders.
	Target string
}

// CaptionReference is a candidate anchor line for placing an image in a
// PDF that has no inline placeholders.
type CaptionReference struct {
	LineIndex int

	// Primary and Secondary are the numbers parsed from the caption, for
	// example 2 and 1 from "图 2-1". Zero means absent.
	Primary   int
	Secondary int

	// Score is in [0,1] and reflects pattern specificity plus keyword bonuses.
	Score float64

	// Pattern names the caption table entry that produced the match.
	Pattern string
}
