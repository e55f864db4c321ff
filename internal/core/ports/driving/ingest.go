// Package driving provides interfaces for user-facing adapters (primary/inbound ports).
package driving

import "context"

// FileStatus reports the outcome of ingesting one file.
type FileStatus string

const (
	// StatusIngested means the file was chunked and upserted.
	StatusIngested FileStatus = "ingested"

	// StatusUnchanged means the fingerprint matched the prior record;
	// nothing was re-embedded.
	StatusUnchanged FileStatus = "unchanged"

	// StatusUnsupported means no extractor handles the extension.
	StatusUnsupported FileStatus = "unsupported"

	// StatusEmpty means extraction succeeded but produced no text
	// (distinct from a failure).
	StatusEmpty FileStatus = "empty"

	// StatusFailed means the file could not be ingested.
	StatusFailed FileStatus = "failed"
)

// FileResult describes one file's ingestion outcome.
type FileResult struct {
	Path       string
	Status     FileStatus
	Collection string
	Chunks     int
	Err        error
}

// Report summarises a batch ingestion.
type Report struct {
	Results []FileResult
}

// Counts returns (ingested, skipped, failed) totals.
func (r *Report) Counts() (ingested, skipped, failed int) {
	for _, res := range r.Results {
		switch res.Status {
		case StatusIngested:
			ingested++
		case StatusFailed:
			failed++
		default:
			skipped++
		}
	}
	return ingested, skipped, failed
}

// FolderOptions configures batch ingestion.
type FolderOptions struct {
	// Recursive descends into subfolders.
	Recursive bool

	// NameFilter, when set, only processes files whose name contains
	// the filter (case-insensitive).
	NameFilter string

	// Force re-ingests files even when the fingerprint is unchanged.
	Force bool

	// Overrides are caller-supplied metadata fields that win over
	// derived and native values for every file in the batch.
	Overrides map[string]string
}

// Ingestor drives the ingestion pipeline.
type Ingestor interface {
	// IngestFile processes a single file end to end.
	IngestFile(ctx context.Context, path string, opts FolderOptions) (FileResult, error)

	// IngestFolder processes every supported file under root,
	// best-effort per document.
	IngestFolder(ctx context.Context, root string, opts FolderOptions) (*Report, error)
}
