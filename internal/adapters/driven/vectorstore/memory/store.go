// Package memory provides an in-process vector store for tests and
// local development. Scoring uses cosine similarity, matching the
// production backend.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
	"github.com/terasky-int/sow-dataset/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

type collection struct {
	dimension int
	chunks    map[string]domain.Chunk
}

// Store is an in-memory vector store keyed by collection name.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{collections: make(map[string]*collection)}
}

// EnsureCollection creates the collection if missing and enforces a
// consistent dimension.
func (s *Store) EnsureCollection(_ context.Context, name string, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if col, ok := s.collections[name]; ok {
		if col.dimension != dimension {
			return fmt.Errorf("%w: collection %s has dimension %d, requested %d",
				domain.ErrDimensionMismatch, name, col.dimension, dimension)
		}
		return nil
	}
	s.collections[name] = &collection{dimension: dimension, chunks: make(map[string]domain.Chunk)}
	return nil
}

// Collections lists existing collections.
func (s *Store) Collections(_ context.Context) ([]domain.CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]domain.CollectionInfo, 0, len(s.collections))
	for name, col := range s.collections {
		infos = append(infos, domain.CollectionInfo{
			Name:      name,
			Dimension: col.dimension,
			Chunks:    len(col.chunks),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Upsert stores chunks with their embeddings.
func (s *Store) Upsert(_ context.Context, name string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	for _, ch := range chunks {
		if len(ch.Embedding) != col.dimension {
			return fmt.Errorf("%w: chunk %s has %d dims, collection %s wants %d",
				domain.ErrDimensionMismatch, ch.ID, len(ch.Embedding), name, col.dimension)
		}
		col.chunks[ch.ID] = ch
	}
	return nil
}

// Delete removes chunks by ID.
func (s *Store) Delete(_ context.Context, name string, chunkIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	for _, id := range chunkIDs {
		delete(col.chunks, id)
	}
	return nil
}

// Query ranks chunks by cosine similarity against the query vector.
func (s *Store) Query(_ context.Context, name string, vector []float32, topK int, filter map[string]string) ([]domain.RetrievedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}

	var hits []domain.RetrievedChunk
	for _, ch := range col.chunks {
		if !matches(ch.Metadata, filter) {
			continue
		}
		hits = append(hits, domain.RetrievedChunk{
			ChunkID:      ch.ID,
			DocumentPath: ch.DocumentPath,
			Index:        ch.Index,
			Text:         ch.Text,
			Metadata:     ch.Metadata,
			Score:        cosine(vector, ch.Embedding),
		})
	}

	// Ties break on sequence index: earlier chunk wins.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Index < hits[j].Index
	})

	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// DocumentPaths returns the distinct source paths in a collection.
func (s *Store) DocumentPaths(_ context.Context, name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}

	seen := make(map[string]struct{})
	for _, ch := range col.chunks {
		seen[ch.DocumentPath] = struct{}{}
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// UpdateMetadata rewrites metadata on every chunk of one path.
func (s *Store) UpdateMetadata(_ context.Context, name, path string, meta domain.Metadata) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}

	updated := 0
	for id, ch := range col.chunks {
		if ch.DocumentPath != path {
			continue
		}
		ch.Metadata = meta.Clone()
		col.chunks[id] = ch
		updated++
	}
	return updated, nil
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

// Count returns the chunk count of a collection. Test helper.
func (s *Store) Count(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[name]
	if !ok {
		return 0
	}
	return len(col.chunks)
}

func matches(m domain.Metadata, filter map[string]string) bool {
	for k, want := range filter {
		var got string
		switch k {
		case "category":
			got = m.Category
		case "client":
			got = m.Client
		case "year":
			got = m.Year
		case "project":
			got = m.Project
		case "path":
			// Path filters are matched by the caller via DocumentPath;
			// metadata carries no path field.
			continue
		default:
			got = m.Fields[k]
		}
		if got != want {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
