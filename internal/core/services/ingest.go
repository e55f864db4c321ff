package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/terasky-int/sow-dataset/internal/chunker"
	"github.com/terasky-int/sow-dataset/internal/core/domain"
	"github.com/terasky-int/sow-dataset/internal/core/ports/driven"
	"github.com/terasky-int/sow-dataset/internal/core/ports/driving"
	"github.com/terasky-int/sow-dataset/internal/extractors"
	"github.com/terasky-int/sow-dataset/internal/logger"
	"github.com/terasky-int/sow-dataset/internal/metadata"
)

// Ensure IngestService implements the interface.
var _ driving.Ingestor = (*IngestService)(nil)

// DefaultParallelism bounds concurrent file ingestion in folder mode.
const DefaultParallelism = 4

// IngestService runs the ingestion pipeline: extract, chunk, resolve
// metadata, route, embed, upsert, record. Repeated ingestion of an
// unchanged file is a no-op; a changed file replaces its previous
// chunks before the new ones are recorded.
type IngestService struct {
	registry    *extractors.Registry
	chunker     *chunker.Chunker
	resolver    *metadata.Resolver
	router      *Router
	gateway     *VectorGateway
	tracker     driven.IngestionStore
	parallelism int

	// pathLocks serialises concurrent ingestion of the same path.
	mu        sync.Mutex
	pathLocks map[string]*sync.Mutex
}

// NewIngestService creates an ingest service. parallelism <= 0 uses the
// default.
func NewIngestService(
	registry *extractors.Registry,
	chk *chunker.Chunker,
	resolver *metadata.Resolver,
	router *Router,
	gateway *VectorGateway,
	tracker driven.IngestionStore,
	parallelism int,
) *IngestService {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	return &IngestService{
		registry:    registry,
		chunker:     chk,
		resolver:    resolver,
		router:      router,
		gateway:     gateway,
		tracker:     tracker,
		parallelism: parallelism,
		pathLocks:   make(map[string]*sync.Mutex),
	}
}

// IngestFile processes a single file end to end. The returned result is
// always populated; err is non-nil exactly when the result status is
// failed or unsupported, so batch callers can keep going while single
// file callers surface the cause.
func (s *IngestService) IngestFile(ctx context.Context, path string, opts driving.FolderOptions) (driving.FileResult, error) {
	path = filepath.Clean(path)
	unlock := s.lockPath(path)
	defer unlock()

	result := driving.FileResult{Path: path}

	if !s.registry.Supported(path) {
		result.Status = driving.StatusUnsupported
		result.Err = fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filepath.Ext(path))
		return result, result.Err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Status = driving.StatusFailed
		result.Err = fmt.Errorf("read %s: %w", path, err)
		return result, result.Err
	}

	fingerprint := domain.Fingerprint(data)

	prev, err := s.tracker.Get(ctx, path)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		prev = nil
	default:
		// Corrupt tracker state must surface, not silently re-ingest.
		result.Status = driving.StatusFailed
		result.Err = err
		return result, result.Err
	}

	if prev != nil && prev.Fingerprint == fingerprint && !opts.Force {
		logger.Debug("unchanged: %s", path)
		result.Status = driving.StatusUnchanged
		result.Collection = prev.Collection
		result.Chunks = len(prev.ChunkIDs)
		return result, nil
	}

	text, native, err := s.registry.Extract(ctx, path)
	if err != nil {
		result.Status = driving.StatusFailed
		result.Err = err
		return result, result.Err
	}

	// The extractor reads the file on its own. If the bytes changed in
	// between, the fingerprint would cover content that was never
	// ingested; fail now and let a later run pick up the new content.
	again, readErr := os.ReadFile(path)
	if readErr != nil || domain.Fingerprint(again) != fingerprint {
		result.Status = driving.StatusFailed
		result.Err = fmt.Errorf("%w: %s changed during extraction", domain.ErrExtraction, path)
		return result, result.Err
	}

	if strings.TrimSpace(text) == "" {
		logger.Info("no text extracted from %s", path)
		if prev != nil {
			// The document became empty; its stale chunks go away.
			if err := s.evict(ctx, prev); err != nil {
				result.Status = driving.StatusFailed
				result.Err = err
				return result, result.Err
			}
		}
		result.Status = driving.StatusEmpty
		return result, nil
	}

	meta, err := s.resolver.ResolveDocument(ctx, path, text, native, opts.Overrides)
	if err != nil {
		result.Status = driving.StatusFailed
		result.Err = fmt.Errorf("resolve metadata for %s: %w", path, err)
		return result, result.Err
	}

	collection := s.router.Route(meta)
	logger.Debug("routing %s (category %s) to collection %s", path, meta.Category, collection)

	if err := s.gateway.EnsureCollection(ctx, collection); err != nil {
		result.Status = driving.StatusFailed
		result.Err = err
		return result, result.Err
	}

	chunks := s.chunker.Split(path, text)
	for i := range chunks {
		chunks[i].Metadata = meta.Clone()
	}

	// Evict the previous chunks first so a routing change never leaves
	// orphans in the old collection.
	if prev != nil {
		if err := s.evict(ctx, prev); err != nil {
			result.Status = driving.StatusFailed
			result.Err = err
			return result, result.Err
		}
	}

	if err := s.gateway.Store(ctx, collection, chunks); err != nil {
		result.Status = driving.StatusFailed
		result.Err = err
		return result, result.Err
	}

	chunkIDs := make([]string, len(chunks))
	for i, ch := range chunks {
		chunkIDs[i] = ch.ID
	}
	rec := domain.IngestionRecord{
		Path:        path,
		Fingerprint: fingerprint,
		Collection:  collection,
		ChunkIDs:    chunkIDs,
		IngestedAt:  time.Now().UTC(),
	}
	if err := s.tracker.Save(ctx, rec); err != nil {
		result.Status = driving.StatusFailed
		result.Err = fmt.Errorf("record ingestion of %s: %w", path, err)
		return result, result.Err
	}

	logger.Info("ingested %s: %d chunks into %s", path, len(chunks), collection)
	result.Status = driving.StatusIngested
	result.Collection = collection
	result.Chunks = len(chunks)
	return result, nil
}

// IngestFolder walks root and ingests every supported file, best-effort
// per document. A failed file is reported in the result set and does
// not stop the batch.
func (s *IngestService) IngestFolder(ctx context.Context, root string, opts driving.FolderOptions) (*driving.Report, error) {
	root = filepath.Clean(root)
	paths, err := s.collect(root, opts)
	if err != nil {
		return nil, err
	}
	logger.Info("found %d candidate files under %s", len(paths), root)

	results := make([]driving.FileResult, len(paths))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(s.parallelism)
	for i, path := range paths {
		group.Go(func() error {
			res, err := s.IngestFile(gctx, path, opts)
			if err != nil {
				logger.Warn("skipping %s: %v", path, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &driving.Report{Results: results}, nil
}

// collect gathers candidate file paths under root, honouring the
// recursion and name filter options. Hidden files and folders are
// skipped.
func (s *IngestService) collect(root string, opts driving.FolderOptions) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, root)
	}

	filter := strings.ToLower(opts.NameFilter)
	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if strings.HasPrefix(name, ".") || !opts.Recursive {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if filter != "" && !strings.Contains(strings.ToLower(name), filter) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// evict removes a document's previous chunks and its tracker record.
func (s *IngestService) evict(ctx context.Context, rec *domain.IngestionRecord) error {
	if err := s.gateway.DeleteChunks(ctx, rec.Collection, rec.ChunkIDs); err != nil {
		return fmt.Errorf("evict previous chunks of %s: %w", rec.Path, err)
	}
	if err := s.tracker.Delete(ctx, rec.Path); err != nil {
		return fmt.Errorf("drop record of %s: %w", rec.Path, err)
	}
	return nil
}

// lockPath acquires the per-path mutex and returns its unlock func.
func (s *IngestService) lockPath(path string) func() {
	s.mu.Lock()
	lock, ok := s.pathLocks[path]
	if !ok {
		lock = &sync.Mutex{}
		s.pathLocks[path] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
