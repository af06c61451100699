// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"
)

// DocxConverter reads word/document.xml directly. Headings, list items,
// tables and embedded pictures survive; pictures become media/ references
// that the reconciler binds to extracted images.
type DocxConverter struct {
	logger *slog.Logger
}

// NewDocxConverter creates the native DOCX strategy.
func NewDocxConverter(logger *slog.Logger) *DocxConverter {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocxConverter{logger: logger}
}

// Name implements Converter.
func (d *DocxConverter) Name() string { return "docx" }

// Convert implements Converter.
func (d *DocxConverter) Convert(_ context.Context, p string) (string, error) {
	r, err := zip.OpenReader(p)
	if err != nil {
		return "", fmt.Errorf("opening docx: %w", err)
	}
	defer r.Close()

	fileIndex := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileIndex[f.Name] = f
	}

	docFile := fileIndex["word/document.xml"]
	if docFile == nil {
		return "", fmt.Errorf("word/document.xml not found in docx")
	}
	data, err := readZipFile(docFile)
	if err != nil {
		return "", fmt.Errorf("reading document.xml: %w", err)
	}

	return d.render(data, d.parseRels(fileIndex))
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// docxRelationships represents the .rels XML structure.
type docxRelationships struct {
	XMLName xml.Name           `xml:"Relationships"`
	Rels    []docxRelationship `xml:"Relationship"`
}

type docxRelationship struct {
	ID     string `xml:"Id,attr"`
	Target string `xml:"Target,attr"`
}

// parseRels reads word/_rels/document.xml.rels and returns rId -> target.
func (d *DocxConverter) parseRels(fileIndex map[string]*zip.File) map[string]string {
	relsFile := fileIndex["word/_rels/document.xml.rels"]
	if relsFile == nil {
		return nil
	}
	data, err := readZipFile(relsFile)
	if err != nil {
		return nil
	}
	var rels docxRelationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		d.logger.Debug("docx: unreadable relationships", "error", err)
		return nil
	}
	out := make(map[string]string, len(rels.Rels))
	for _, rel := range rels.Rels {
		out[rel.ID] = rel.Target
	}
	return out
}

// docxState accumulates output while walking document.xml tokens.
type docxState struct {
	out strings.Builder

	para    strings.Builder
	inPara  bool
	inPPr   bool
	inText  bool
	heading int
	list    bool

	tableDepth int
	rows       [][]string
	row        []string
	cell       []string
}

func (d *DocxConverter) render(data []byte, rels map[string]string) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	s := &docxState{}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parsing document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				s.inPara = true
				s.heading = 0
				s.list = false
				s.para.Reset()
			case "pPr":
				s.inPPr = s.inPara
			case "pStyle":
				if s.inPPr {
					s.heading = headingLevel(attr(t, "val"))
				}
			case "numPr":
				if s.inPPr {
					s.list = true
				}
			case "t":
				s.inText = s.inPara
			case "tab":
				if s.inPara && !s.inPPr {
					s.para.WriteByte(' ')
				}
			case "br":
				if s.inPara {
					s.para.WriteByte(' ')
				}
			case "blip":
				id := attr(t, "embed")
				target, ok := rels[id]
				if !ok {
					d.logger.Debug("docx: picture without relationship", "rId", id)
					continue
				}
				fmt.Fprintf(&s.para, "![](media/%s)", path.Base(target))
			case "tbl":
				s.tableDepth++
				if s.tableDepth == 1 {
					s.rows = nil
				}
			case "tr":
				s.row = nil
			case "tc":
				s.cell = nil
			}
		case xml.CharData:
			if s.inText {
				s.para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				s.inText = false
			case "pPr":
				s.inPPr = false
			case "p":
				s.flushPara()
			case "tc":
				s.row = append(s.row, strings.Join(s.cell, " "))
			case "tr":
				if s.tableDepth == 1 {
					s.rows = append(s.rows, s.row)
				}
			case "tbl":
				s.tableDepth--
				if s.tableDepth == 0 && len(s.rows) > 0 {
					s.out.WriteString(markdownTable(s.rows))
					s.out.WriteString("\n")
				}
			}
		}
	}
	return s.out.String(), nil
}

func (s *docxState) flushPara() {
	s.inPara = false
	text := strings.TrimSpace(s.para.String())
	if text == "" {
		return
	}
	if s.tableDepth > 0 {
		s.cell = append(s.cell, text)
		return
	}
	switch {
	case s.heading > 0:
		s.out.WriteString(strings.Repeat("#", s.heading) + " ")
	case s.list:
		s.out.WriteString("- ")
	}
	s.out.WriteString(text)
	s.out.WriteString("\n\n")
}

// headingLevel maps a paragraph style id to a heading level: Title is 1,
// HeadingN is N (capped at 6), anything else 0.
func headingLevel(style string) int {
	lower := strings.ToLower(style)
	switch {
	case lower == "title":
		return 1
	case strings.HasPrefix(lower, "heading"):
		n, err := strconv.Atoi(strings.TrimPrefix(lower, "heading"))
		if err != nil || n < 1 {
			return 0
		}
		return min(n, 6)
	}
	return 0
}

func attr(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
