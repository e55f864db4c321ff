// Package pdf extracts embedded text from PDF documents.
// Scanned PDFs with no text layer legitimately yield empty text; OCR is
// out of scope.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ledongthuc/pdf"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
	"github.com/terasky-int/sow-dataset/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles PDF documents.
type Extractor struct{}

// New creates a PDF extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the handled file extensions.
func (e *Extractor) Extensions() []string {
	return []string{".pdf"}
}

// Extract reads the PDF's embedded text layer.
func (e *Extractor) Extract(_ context.Context, path string) (string, map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("%w: read %s: %w", domain.ErrExtraction, path, err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, fmt.Errorf("%w: parse %s: %w", domain.ErrExtraction, path, err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", nil, fmt.Errorf("%w: text layer of %s: %w", domain.ErrExtraction, path, err)
	}

	text, err := io.ReadAll(plain)
	if err != nil {
		return "", nil, fmt.Errorf("%w: read text of %s: %w", domain.ErrExtraction, path, err)
	}

	native := map[string]string{
		"pages":     strconv.Itoa(reader.NumPage()),
		"file_size": strconv.Itoa(len(data)),
	}
	return string(text), native, nil
}
