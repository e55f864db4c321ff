package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
	"github.com/terasky-int/sow-dataset/internal/core/ports/driven"
	"github.com/terasky-int/sow-dataset/internal/core/ports/driving"
	"github.com/terasky-int/sow-dataset/internal/logger"
	"github.com/terasky-int/sow-dataset/internal/metadata"
)

// Ensure AdminService implements the interface.
var _ driving.CollectionAdmin = (*AdminService)(nil)

// AdminService implements collection and tracker maintenance.
type AdminService struct {
	gateway  *VectorGateway
	resolver *metadata.Resolver
	router   *Router
	tracker  driven.IngestionStore
}

// NewAdminService creates an admin service.
func NewAdminService(gateway *VectorGateway, resolver *metadata.Resolver, router *Router, tracker driven.IngestionStore) *AdminService {
	return &AdminService{gateway: gateway, resolver: resolver, router: router, tracker: tracker}
}

// ListCollections returns the known collections with chunk counts.
func (s *AdminService) ListCollections(ctx context.Context) ([]domain.CollectionInfo, error) {
	return s.gateway.Collections(ctx)
}

// UpdateMetadata re-resolves metadata for an already-ingested path and
// rewrites it on the stored chunks without re-embedding anything.
func (s *AdminService) UpdateMetadata(ctx context.Context, path string, overrides map[string]string) (int, error) {
	rec, err := s.tracker.Get(ctx, path)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, fmt.Errorf("%w: %s was never ingested", domain.ErrNotFound, path)
		}
		return 0, err
	}

	meta, err := s.resolver.Resolve(ctx, path, nil, overrides)
	if err != nil {
		return 0, fmt.Errorf("resolve metadata for %s: %w", path, err)
	}

	// The chunks stay in the collection they were ingested into, so a
	// re-run of the classifier must not drift the stored category away
	// from it. An explicit override still wins.
	if _, ok := overrides["category"]; !ok {
		if category, ok := s.router.CategoryFor(rec.Collection); ok {
			meta.Category = category
		}
	}

	n, err := s.gateway.UpdateMetadata(ctx, rec.Collection, path, meta)
	if err != nil {
		return 0, err
	}
	logger.Info("updated metadata on %d chunks of %s in %s", n, path, rec.Collection)
	return n, nil
}

// SyncTracker rebuilds ingestion records from the document paths a
// collection already holds. Existing records are left alone. Rebuilt
// records carry the current file fingerprint when the file is still
// readable, so unchanged files skip re-ingestion afterwards; chunk IDs
// are unknown until the next real ingestion.
func (s *AdminService) SyncTracker(ctx context.Context, collection string) (int, error) {
	collection = NormalizeCollection(collection)
	paths, err := s.gateway.DocumentPaths(ctx, collection)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, path := range paths {
		_, err := s.tracker.Get(ctx, path)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrTrackerCorrupt) {
			return created, err
		}

		rec := domain.IngestionRecord{
			Path:       path,
			Collection: collection,
			IngestedAt: time.Now().UTC(),
		}
		if data, err := os.ReadFile(path); err == nil {
			rec.Fingerprint = domain.Fingerprint(data)
		}
		if err := s.tracker.Save(ctx, rec); err != nil {
			return created, fmt.Errorf("rebuild record for %s: %w", path, err)
		}
		created++
	}

	logger.Info("rebuilt %d tracker records from %s", created, collection)
	return created, nil
}
