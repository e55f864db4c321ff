// Package pptx extracts slide text from PowerPoint presentations (OOXML).
package pptx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
	"github.com/terasky-int/sow-dataset/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles PPTX presentations.
type Extractor struct{}

// New creates a PPTX extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the handled file extensions.
func (e *Extractor) Extensions() []string {
	return []string{".pptx"}
}

var slidePattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// Extract reads every ppt/slides/slideN.xml in slide order, one
// paragraph per text run group.
func (e *Extractor) Extract(_ context.Context, path string) (string, map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("%w: read %s: %w", domain.ErrExtraction, path, err)
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, fmt.Errorf("%w: open %s as archive: %w", domain.ErrExtraction, path, err)
	}

	type slide struct {
		number int
		name   string
	}
	var slides []slide
	for _, file := range reader.File {
		m := slidePattern.FindStringSubmatch(file.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{number: n, name: file.Name})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].number < slides[j].number })

	var result strings.Builder
	for _, s := range slides {
		text, err := readSlideText(reader, s.name)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %s: %w", domain.ErrExtraction, path, err)
		}
		if text != "" {
			if result.Len() > 0 {
				result.WriteString("\n\n")
			}
			result.WriteString(text)
		}
	}

	native := map[string]string{
		"slides":    strconv.Itoa(len(slides)),
		"file_size": strconv.Itoa(len(data)),
	}
	return result.String(), native, nil
}

// readSlideText extracts the text runs from one slide. DrawingML nests
// text in <a:p><a:r><a:t> runs; a streaming decoder keyed on the "t"
// local name keeps this independent of the surrounding shape tree.
func readSlideText(reader *zip.Reader, name string) (string, error) {
	var content []byte
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", name, err)
		}
		content, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read %s: %w", name, err)
		}
		break
	}
	if content == nil {
		return "", nil
	}

	decoder := xml.NewDecoder(bytes.NewReader(content))
	var parts []string
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", name, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "t" {
			continue
		}
		var text string
		if err := decoder.DecodeElement(&text, &start); err != nil {
			return "", fmt.Errorf("parse %s: %w", name, err)
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n"), nil
}
