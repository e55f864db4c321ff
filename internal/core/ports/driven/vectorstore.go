package driven

import (
	"context"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
)

// VectorStore persists chunk embeddings in named collections and answers
// similarity queries. Implementations must be safe for concurrent use;
// the client is shared across ingestion and query calls.
//
// Unreachable backends wrap domain.ErrStoreUnavailable so the gateway
// can retry with bounded backoff.
type VectorStore interface {
	// EnsureCollection creates the collection if missing. An existing
	// collection with a different dimension fails with
	// domain.ErrDimensionMismatch.
	EnsureCollection(ctx context.Context, name string, dimension int) error

	// Collections lists existing collections with chunk counts.
	Collections(ctx context.Context) ([]domain.CollectionInfo, error)

	// Upsert writes chunks with their embeddings already attached.
	// Text and vector are stored together, never separately.
	Upsert(ctx context.Context, collection string, chunks []domain.Chunk) error

	// Delete removes chunks by ID. Missing IDs are not an error.
	Delete(ctx context.Context, collection string, chunkIDs []string) error

	// Query runs a similarity search in one collection. Results are
	// ranked by score. Filter keys match payload metadata for equality
	// (category, client, year). A missing collection fails with
	// domain.ErrCollectionNotFound; queries never create collections.
	Query(ctx context.Context, collection string, vector []float32, topK int, filter map[string]string) ([]domain.RetrievedChunk, error)

	// DocumentPaths returns the distinct source paths stored in a
	// collection. Used to rebuild tracker records.
	DocumentPaths(ctx context.Context, collection string) ([]string, error)

	// UpdateMetadata rewrites the stored metadata for every chunk of
	// one document path and returns the number of chunks touched.
	UpdateMetadata(ctx context.Context, collection, path string, meta domain.Metadata) (int, error)

	// Close releases resources.
	Close() error
}
