// Package plaintext extracts text from plain text formats.
package plaintext

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
	"github.com/terasky-int/sow-dataset/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles plain text files.
type Extractor struct{}

// New creates a plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the handled file extensions.
func (e *Extractor) Extensions() []string {
	return []string{".txt", ".md", ".csv", ".log"}
}

// Extract reads the file verbatim.
func (e *Extractor) Extract(_ context.Context, path string) (string, map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("%w: read %s: %w", domain.ErrExtraction, path, err)
	}

	native := map[string]string{
		"file_size": strconv.Itoa(len(data)),
	}
	return string(data), native, nil
}
