package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
	"github.com/terasky-int/sow-dataset/internal/core/ports/driven"
	"github.com/terasky-int/sow-dataset/internal/logger"
)

// Retry policy for transient store failures.
const (
	defaultMaxRetries   = 3
	defaultRetryBackoff = 200 * time.Millisecond
)

// VectorGateway pairs the embedding service with the vector store so
// chunk text and vectors always travel together. It is the only
// component that talks to the store, which keeps the retry policy in
// one place.
type VectorGateway struct {
	store      driven.VectorStore
	embedder   driven.EmbeddingService
	maxRetries int
	backoff    time.Duration
}

// NewVectorGateway creates a gateway. maxRetries <= 0 uses the default.
func NewVectorGateway(store driven.VectorStore, embedder driven.EmbeddingService, maxRetries int) *VectorGateway {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &VectorGateway{
		store:      store,
		embedder:   embedder,
		maxRetries: maxRetries,
		backoff:    defaultRetryBackoff,
	}
}

// Dimensions returns the embedding space size shared by ingestion and
// retrieval.
func (g *VectorGateway) Dimensions() int {
	return g.embedder.Dimensions()
}

// EnsureCollection creates the collection sized to the embedding model.
func (g *VectorGateway) EnsureCollection(ctx context.Context, name string) error {
	return g.withRetry(ctx, fmt.Sprintf("ensure collection %s", name), func() error {
		return g.store.EnsureCollection(ctx, name, g.embedder.Dimensions())
	})
}

// Collections lists existing collections with chunk counts.
func (g *VectorGateway) Collections(ctx context.Context) ([]domain.CollectionInfo, error) {
	var infos []domain.CollectionInfo
	err := g.withRetry(ctx, "list collections", func() error {
		var err error
		infos, err = g.store.Collections(ctx)
		return err
	})
	return infos, err
}

// Store embeds chunk texts and upserts text and vector in one write.
func (g *VectorGateway) Store(ctx context.Context, collection string, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	vectors, err := g.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %d chunks: %w", len(chunks), err)
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	logger.Debug("upserting %d chunks into %s", len(chunks), collection)
	return g.withRetry(ctx, fmt.Sprintf("upsert into %s", collection), func() error {
		return g.store.Upsert(ctx, collection, chunks)
	})
}

// DeleteChunks removes chunks by ID.
func (g *VectorGateway) DeleteChunks(ctx context.Context, collection string, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	return g.withRetry(ctx, fmt.Sprintf("delete from %s", collection), func() error {
		return g.store.Delete(ctx, collection, chunkIDs)
	})
}

// DocumentPaths returns the distinct source paths in a collection.
func (g *VectorGateway) DocumentPaths(ctx context.Context, collection string) ([]string, error) {
	var paths []string
	err := g.withRetry(ctx, fmt.Sprintf("scan %s", collection), func() error {
		var err error
		paths, err = g.store.DocumentPaths(ctx, collection)
		return err
	})
	return paths, err
}

// UpdateMetadata rewrites metadata on the stored chunks of one path.
func (g *VectorGateway) UpdateMetadata(ctx context.Context, collection, path string, meta domain.Metadata) (int, error) {
	var n int
	err := g.withRetry(ctx, fmt.Sprintf("update metadata in %s", collection), func() error {
		var err error
		n, err = g.store.UpdateMetadata(ctx, collection, path, meta)
		return err
	})
	return n, err
}

// Search embeds the query once and runs it against every scoped
// collection, merging results by descending score. Ties break on chunk
// index so ordering is stable across runs.
func (g *VectorGateway) Search(ctx context.Context, collections []string, query string, topK int, filter map[string]string) ([]domain.RetrievedChunk, error) {
	vector, err := g.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var merged []domain.RetrievedChunk
	for _, collection := range collections {
		var hits []domain.RetrievedChunk
		err := g.withRetry(ctx, fmt.Sprintf("search %s", collection), func() error {
			var err error
			hits, err = g.store.Query(ctx, collection, vector, topK, filter)
			return err
		})
		if err != nil {
			return nil, err
		}
		logger.Debug("collection %s returned %d hits", collection, len(hits))
		merged = append(merged, hits...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].Index < merged[j].Index
	})
	if topK > 0 && len(merged) > topK {
		merged = merged[:topK]
	}
	return merged, nil
}

// withRetry re-runs op on ErrStoreUnavailable with exponential backoff.
// Other errors fail immediately.
func (g *VectorGateway) withRetry(ctx context.Context, what string, op func() error) error {
	backoff := g.backoff
	var err error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		err = op()
		if err == nil || !errors.Is(err, domain.ErrStoreUnavailable) {
			return err
		}
		if attempt == g.maxRetries {
			break
		}
		logger.Warn("%s: store unavailable (attempt %d/%d), retrying in %s",
			what, attempt, g.maxRetries, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}
