package domain

import "errors"

// Domain errors represent pipeline failures.
// Batch ingestion treats most of these as per-document: the affected
// path is skipped and reported, the rest of the batch continues.
var (
	// ErrUnsupportedFormat indicates a file extension with no registered extractor.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrExtraction indicates a malformed or unreadable source document.
	// The underlying extractor failure is wrapped, never swallowed.
	ErrExtraction = errors.New("extraction failed")

	// ErrTrackerCorrupt indicates an unreadable ingestion record.
	// Ingestion of the affected path halts; other paths are unaffected.
	ErrTrackerCorrupt = errors.New("ingestion record corrupt")

	// ErrDimensionMismatch indicates a collection already exists with a
	// different embedding dimension. One embedding space per installation.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrCollectionNotFound indicates a query or upsert against a
	// collection that does not exist. Queries never create collections.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrEmbedding indicates the embedding capability rejected the input
	// (oversized text, backend failure). The affected document is skipped.
	ErrEmbedding = errors.New("embedding failed")

	// ErrStoreUnavailable indicates the vector store is unreachable.
	// Calls are retried with bounded backoff before this surfaces.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrGeneration indicates the language model failed after retries.
	ErrGeneration = errors.New("generation failed")

	// ErrTimeout indicates a deadline expired mid-call. Writes already
	// committed to the vector store are not rolled back; the tracker
	// record is absent so the next run retries the path.
	ErrTimeout = errors.New("operation timed out")

	// ErrNoRelevantContent indicates retrieval produced no chunk above
	// the relevance threshold. The language model is never invoked in
	// this case.
	ErrNoRelevantContent = errors.New("no relevant content found")

	// ErrNotFound indicates a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")
)
