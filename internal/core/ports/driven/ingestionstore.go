package driven

import (
	"context"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
)

// IngestionStore persists ingestion records keyed by document path.
// Records survive process restart and support lookup by exact path.
type IngestionStore interface {
	// Get retrieves the record for a path.
	// Returns domain.ErrNotFound when no record exists and
	// domain.ErrTrackerCorrupt when the record cannot be decoded.
	Get(ctx context.Context, path string) (*domain.IngestionRecord, error)

	// Save stores or replaces the record for a path.
	Save(ctx context.Context, rec domain.IngestionRecord) error

	// Delete removes the record for a path. Deleting a missing record
	// is not an error.
	Delete(ctx context.Context, path string) error

	// List returns all records.
	List(ctx context.Context) ([]domain.IngestionRecord, error)
}
