package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Metadata is the resolved metadata record for a document after merging
// extracted, derived, and override sources. Precedence when merging:
// caller overrides > values derived from the folder convention > values
// extracted from the file itself.
type Metadata struct {
	// Category is the document category (SOW, POC, Legal, ...).
	// Empty means not yet classified; CategoryUncategorized means
	// classification ran and matched nothing.
	Category string

	// Client is the client name derived from the folder convention.
	Client string

	// Year is the four-digit year folder, kept as a string.
	Year string

	// Project is the project folder name.
	Project string

	// Fields holds format-native and caller-supplied extra fields
	// (page count, file size, custom tags).
	Fields map[string]string
}

// CategoryUncategorized is assigned when no classification rule matches.
const CategoryUncategorized = "Uncategorized"

// Clone returns a deep copy so chunk metadata can diverge safely.
func (m Metadata) Clone() Metadata {
	out := m
	if m.Fields != nil {
		out.Fields = make(map[string]string, len(m.Fields))
		for k, v := range m.Fields {
			out.Fields[k] = v
		}
	}
	return out
}

// Document is a transient representation of a source file during one
// ingestion call. Identity is the absolute source path. Only the derived
// chunks and resolved metadata outlive the call.
type Document struct {
	// Path is the absolute source path (identity).
	Path string

	// Text is the extracted text, produced once per ingestion.
	Text string

	// Native holds format-specific metadata from extraction.
	Native map[string]string

	// Resolved is the merged metadata record.
	Resolved Metadata

	// Fingerprint is the hash of the raw file bytes.
	Fingerprint string
}

// Chunk is a bounded text segment derived from a document, the unit of
// embedding and retrieval. Identity is (document path, index).
type Chunk struct {
	// ID is a deterministic UUID derived from (path, index), so
	// re-ingesting identical content overwrites in place.
	ID string

	// DocumentPath is the owning document's source path.
	DocumentPath string

	// Index is the ordinal position within the document.
	Index int

	// Text is the chunk's text segment.
	Text string

	// Start and End are rune offsets into the extracted text.
	// Consecutive chunks overlap by the configured overlap.
	Start int
	End   int

	// Metadata is inherited from the document's resolved metadata.
	Metadata Metadata

	// Embedding is the vector representation. Owned by the vector
	// store gateway once upserted; text and vector travel together.
	Embedding []float32
}

// ChunkID derives the deterministic chunk identity for a document path
// and sequence index. The same (path, index) always yields the same ID.
func ChunkID(path string, index int) string {
	name := fmt.Sprintf("file://%s#%d", path, index)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// Fingerprint hashes raw file bytes for change detection.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// IngestionRecord tracks a previously processed file. A record is only
// written after a successful upsert, so a crash mid-ingestion is safely
// retried on the next run.
type IngestionRecord struct {
	// Path is the document's absolute source path (identity).
	Path string

	// Fingerprint is the content hash at last ingestion.
	Fingerprint string

	// Collection is the vector store collection holding the chunks.
	Collection string

	// ChunkIDs are the identities of the persisted chunks, surfaced on
	// eviction so stale chunks can be deleted before re-insertion.
	ChunkIDs []string

	// IngestedAt is when the document was last ingested.
	IngestedAt time.Time
}

// CollectionInfo describes a named vector store collection.
type CollectionInfo struct {
	// Name is the collection identity.
	Name string

	// Dimension is the embedding dimensionality. All collections in an
	// installation must agree.
	Dimension int

	// Chunks is the number of stored chunks.
	Chunks int
}
