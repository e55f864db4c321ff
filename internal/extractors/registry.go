// Package extractors selects a format-specific extraction capability by
// file extension and normalises its output to (text, native metadata).
package extractors

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
	"github.com/terasky-int/sow-dataset/internal/core/ports/driven"
	"github.com/terasky-int/sow-dataset/internal/extractors/docx"
	"github.com/terasky-int/sow-dataset/internal/extractors/pdf"
	"github.com/terasky-int/sow-dataset/internal/extractors/plaintext"
	"github.com/terasky-int/sow-dataset/internal/extractors/pptx"
	"github.com/terasky-int/sow-dataset/internal/extractors/xlsx"
)

// Registry dispatches extraction by file extension.
type Registry struct {
	byExt map[string]driven.Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]driven.Extractor)}
}

// Defaults returns a registry with every built-in extractor registered.
func Defaults() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(pdf.New())
	r.Register(docx.New())
	r.Register(xlsx.New())
	r.Register(pptx.New())
	return r
}

// Register adds an extractor for all its extensions. Later registrations
// win, allowing callers to replace a built-in.
func (r *Registry) Register(e driven.Extractor) {
	for _, ext := range e.Extensions() {
		r.byExt[strings.ToLower(ext)] = e
	}
}

// Supported reports whether the path's extension has an extractor.
func (r *Registry) Supported(path string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extract dispatches to the extractor for the path's extension.
// Unknown extensions fail with domain.ErrUnsupportedFormat.
func (r *Registry) Extract(ctx context.Context, path string) (string, map[string]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := r.byExt[ext]
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, ext)
	}
	return e.Extract(ctx, path)
}
