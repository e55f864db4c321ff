package driving

import (
	"context"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
)

// CollectionAdmin exposes maintenance operations over the vector store
// and the ingestion tracker.
type CollectionAdmin interface {
	// ListCollections returns the known collections with chunk counts.
	ListCollections(ctx context.Context) ([]domain.CollectionInfo, error)

	// UpdateMetadata re-resolves metadata for an already-ingested path
	// and rewrites it on the stored chunks. Overrides win over derived
	// values. Returns the number of chunks touched.
	UpdateMetadata(ctx context.Context, path string, overrides map[string]string) (int, error)

	// SyncTracker rebuilds ingestion records from the document paths a
	// collection already holds. Used when tracker state was lost.
	SyncTracker(ctx context.Context, collection string) (int, error)
}
