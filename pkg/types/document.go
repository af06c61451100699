// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"path/filepath"
	"strings"
	"time"
)

// DocType identifies the family of a source document. It selects the image
// extractor, the conversion strategy chain, and the directory prefix.
type DocType string

const (
	DocPDF          DocType = "pdf"
	DocWord         DocType = "word"
	DocPresentation DocType = "presentation"
	DocSpreadsheet  DocType = "spreadsheet"
	DocHTML         DocType = "html"
	DocText         DocType = "text"
	DocImage        DocType = "image"
	DocUnknown      DocType = ""
)

// extDocTypes maps lower-case file extensions to document types.
var extDocTypes = map[string]DocType{
	".pdf":  DocPDF,
	".docx": DocWord,
	".pptx": DocPresentation,
	".xlsx": DocSpreadsheet,
	".html": DocHTML,
	".htm":  DocHTML,
	".txt":  DocText,
	".md":   DocText,
	".csv":  DocText,
	".json": DocText,
	".png":  DocImage,
	".jpg":  DocImage,
	".jpeg": DocImage,
	".gif":  DocImage,
	".bmp":  DocImage,
	".tiff": DocImage,
	".tif":  DocImage,
	".webp": DocImage,
}

// DocTypeFor returns the document type for path based on its extension,
// or DocUnknown when the extension is not supported.
func DocTypeFor(path string) DocType {
	return extDocTypes[strings.ToLower(filepath.Ext(path))]
}

// SupportedExtensions returns every accepted extension grouped by type.
func SupportedExtensions() map[DocType][]string {
	out := make(map[DocType][]string)
	for ext, dt := range extDocTypes {
		out[dt] = append(out[dt], ext)
	}
	return out
}

// ConversionStatus indicates the outcome of converting one document.
type ConversionStatus string

const (
	ConversionNone    ConversionStatus = "none"
	ConversionDone    ConversionStatus = "converted"
	ConversionPartial ConversionStatus = "partial"
	ConversionFailed  ConversionStatus = "failed"
)

// PlacementMode records how images were positioned in the output.
type PlacementMode string

const (
	PlacementNone      PlacementMode = ""
	PlacementInline    PlacementMode = "inline"
	PlacementCaption   PlacementMode = "caption"
	PlacementPageRatio PlacementMode = "page-ratio"
	PlacementSynthesis PlacementMode = "synthesized"
)

// Result describes the conversion of one source document.
type Result struct {
	// Source is the input path.
	Source string `json:"source" yaml:"source"`

	// Output is the written Markdown path. Empty on failure.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`

	// DocName is the normalized document name shared by the Markdown file
	// and its image directory.
	DocName string `json:"doc_name" yaml:"doc_name"`

	DocType DocType `json:"doc_type" yaml:"doc_type"`

	Status ConversionStatus `json:"status" yaml:"status"`

	// Converter names the strategy that produced the text.
	Converter string `json:"converter,omitempty" yaml:"converter,omitempty"`

	// Images is the number of image references written into the output.
	Images int `json:"images" yaml:"images"`

	// Unresolved counts placeholders left unchanged.
	Unresolved int `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`

	// Captions counts images that received a generated caption.
	Captions int `json:"captions,omitempty" yaml:"captions,omitempty"`

	Placement PlacementMode `json:"placement,omitempty" yaml:"placement,omitempty"`

	// Extracted lists the images pulled from the source container.
	Extracted []ExtractedImage `json:"extracted,omitempty" yaml:"extracted,omitempty"`

	Duration time.Duration `json:"duration" yaml:"duration"`

	// Error is the failure reason for failed documents.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Succeeded reports whether an output file was produced.
func (r Result) Succeeded() bool {
	return r.Status == ConversionDone || r.Status == ConversionPartial
}

// BatchStats summarizes a batch run.
type BatchStats struct {
	JobID     string        `json:"job_id" yaml:"job_id"`
	Total     int           `json:"total" yaml:"total"`
	Converted int           `json:"converted" yaml:"converted"`
	Partial   int           `json:"partial" yaml:"partial"`
	Skipped   int           `json:"skipped" yaml:"skipped"`
	Failed    int           `json:"failed" yaml:"failed"`
	Images    int           `json:"images" yaml:"images"`
	Captions  int           `json:"captions" yaml:"captions"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// Add folds one document result into the summary.
func (s *BatchStats) Add(r Result) {
	s.Total++
	switch r.Status {
	case ConversionDone:
		s.Converted++
	case ConversionPartial:
		s.Partial++
	case ConversionNone:
		s.Skipped++
	case ConversionFailed:
		s.Failed++
	}
	s.Images += r.Images
	s.Captions += r.Captions
}

// HasFailures reports whether any document failed.
func (s BatchStats) HasFailures() bool {
	return s.Failed > 0
}

// SuccessRate is the share of attempted documents that produced output,
// as a percentage. Skipped documents are not attempts.
func (s BatchStats) SuccessRate() float64 {
	attempted := s.Total - s.Skipped
	if attempted <= 0 {
		return 0
	}
	return float64(s.Converted+s.Partial) / float64(attempted) * 100
}
