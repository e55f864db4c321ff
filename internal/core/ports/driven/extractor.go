// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// Extractor converts one file format into plain text plus native metadata.
// Each extractor handles a set of file extensions.
//
// An empty text with a nil error is a legitimate result (a scanned page
// with no embedded text); callers must not treat it as a failure.
type Extractor interface {
	// Extensions returns the lower-cased file extensions this extractor
	// handles, including the leading dot (".pdf", ".docx").
	Extensions() []string

	// Extract reads the file and returns its plain text and any
	// format-native metadata (page count, sheet names, ...).
	// Corrupt or unreadable files wrap domain.ErrExtraction.
	Extract(ctx context.Context, path string) (text string, native map[string]string, err error)
}
