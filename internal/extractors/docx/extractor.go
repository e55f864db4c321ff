// Package docx extracts text from Word documents (OOXML).
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
	"github.com/terasky-int/sow-dataset/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles DOCX documents.
type Extractor struct{}

// New creates a DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the handled file extensions.
func (e *Extractor) Extensions() []string {
	return []string{".docx"}
}

// Extract opens the document as a ZIP archive and parses
// word/document.xml.
func (e *Extractor) Extract(_ context.Context, path string) (string, map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("%w: read %s: %w", domain.ErrExtraction, path, err)
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, fmt.Errorf("%w: open %s as archive: %w", domain.ErrExtraction, path, err)
	}

	text, err := extractDocumentText(reader)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s: %w", domain.ErrExtraction, path, err)
	}

	native := map[string]string{
		"file_size": strconv.Itoa(len(data)),
	}
	if title := extractTitle(reader); title != "" {
		native["title"] = title
	}
	return text, native, nil
}

// documentXML mirrors the structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

// extractDocumentText parses word/document.xml into paragraph text.
func extractDocumentText(reader *zip.Reader) (string, error) {
	content, err := readArchiveFile(reader, "word/document.xml")
	if err != nil {
		return "", err
	}
	if content == nil {
		return "", nil
	}

	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("parse document.xml: %w", err)
	}

	var result strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			result.WriteString("\n")
		}
		for _, r := range para.Runs {
			for _, t := range r.Text {
				result.WriteString(t.Content)
			}
		}
	}
	return strings.TrimSpace(result.String()), nil
}

// coreXML mirrors docProps/core.xml.
type coreXML struct {
	Title string `xml:"title"`
}

// extractTitle reads the document title from docProps/core.xml.
func extractTitle(reader *zip.Reader) string {
	content, err := readArchiveFile(reader, "docProps/core.xml")
	if err != nil || content == nil {
		return ""
	}

	var core coreXML
	if err := xml.Unmarshal(content, &core); err != nil {
		return ""
	}
	return strings.TrimSpace(core.Title)
}

// readArchiveFile returns the named archive member's content, or nil
// when the member is absent.
func readArchiveFile(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		content, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return content, nil
	}
	return nil, nil
}
