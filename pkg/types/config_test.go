// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty output dir", func(c *Config) { c.Output.Dir = "" }, "dir"},
		{"filename too short", func(c *Config) { c.Naming.MaxFilenameLength = 4 }, "max_filename_length"},
		{"quality above 100", func(c *Config) { c.Images.Quality = 101 }, "quality"},
		{"gif output format", func(c *Config) { c.Images.OutputFormat = "gif" }, "output_format"},
		{"no workers", func(c *Config) { c.Conversion.MaxWorkers = 0 }, "max_workers"},
		{"threshold above 1", func(c *Config) { c.Placement.Threshold = 1.5 }, "threshold"},
		{"unknown provider", func(c *Config) {
			c.Caption.Enabled = true
			c.Caption.Provider = "gemini"
		}, "provider"},
		{"bad base url", func(c *Config) { c.Caption.BaseURL = "not a url" }, "base_url"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "level"},
		{"log file required", func(c *Config) {
			c.Log.ToFile = true
			c.Log.File = ""
		}, "file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestUnknownProviderAllowedWhenDisabled(t *testing.T) {
	c := DefaultConfig()
	c.Caption.Provider = "gemini"
	assert.NoError(t, c.Validate())
}

func TestDocTypeFor(t *testing.T) {
	tests := map[string]DocType{
		"report.DOCX":  DocWord,
		"slides.pptx":  DocPresentation,
		"a/b/scan.pdf": DocPDF,
		"page.htm":     DocHTML,
		"data.csv":     DocText,
		"photo.JPEG":   DocImage,
		"legacy.doc":   DocUnknown,
		"no-extension": DocUnknown,
	}
	for path, want := range tests {
		assert.Equal(t, want, DocTypeFor(path), path)
	}
}

func TestBatchStats(t *testing.T) {
	var s BatchStats
	s.Add(Result{Status: ConversionDone, Images: 3, Captions: 2})
	s.Add(Result{Status: ConversionPartial, Images: 1})
	s.Add(Result{Status: ConversionNone})
	s.Add(Result{Status: ConversionFailed})

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.Converted)
	assert.Equal(t, 1, s.Partial)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 4, s.Images)
	assert.Equal(t, 2, s.Captions)
	assert.True(t, s.HasFailures())
	assert.InDelta(t, 66.67, s.SuccessRate(), 0.01)

	assert.Zero(t, BatchStats{}.SuccessRate())
}
