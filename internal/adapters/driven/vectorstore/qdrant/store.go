// Package qdrant provides a vector store adapter using the Qdrant REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
	"github.com/terasky-int/sow-dataset/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:6333"
	DefaultTimeout = 30 * time.Second

	// scrollPageSize bounds one page of a payload scroll.
	scrollPageSize = 256
)

// Config holds connection details for a Qdrant instance.
type Config struct {
	// BaseURL is the Qdrant REST endpoint (default: http://localhost:6333).
	BaseURL string

	// APIKey is sent as the api-key header when non-empty.
	APIKey string

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration
}

// Store is a REST client to Qdrant. Collections use cosine distance,
// matching the embedding model's trained metric. The embedded
// http.Client is safe for concurrent use.
type Store struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewStore creates a Qdrant store client.
func NewStore(cfg Config) *Store {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Store{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// collectionInfo mirrors the relevant part of GET /collections/{name}.
type collectionInfo struct {
	Result struct {
		PointsCount int `json:"points_count"`
		Config      struct {
			Params struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

// EnsureCollection creates the collection if missing. An existing
// collection with a different dimension fails with ErrDimensionMismatch.
func (s *Store) EnsureCollection(ctx context.Context, name string, dimension int) error {
	var info collectionInfo
	status, err := s.do(ctx, http.MethodGet, "/collections/"+name, nil, &info)
	if err != nil {
		return err
	}

	switch status {
	case http.StatusOK:
		if got := info.Result.Config.Params.Vectors.Size; got != dimension {
			return fmt.Errorf("%w: collection %s has dimension %d, requested %d",
				domain.ErrDimensionMismatch, name, got, dimension)
		}
		return nil
	case http.StatusNotFound:
		body := map[string]any{
			"vectors": map[string]any{
				"size":     dimension,
				"distance": "Cosine",
			},
		}
		status, err := s.do(ctx, http.MethodPut, "/collections/"+name, body, nil)
		if err != nil {
			return err
		}
		if status >= 300 {
			return fmt.Errorf("qdrant create collection %s: status %d", name, status)
		}
		return nil
	default:
		return fmt.Errorf("qdrant get collection %s: status %d", name, status)
	}
}

// Collections lists existing collections with chunk counts.
func (s *Store) Collections(ctx context.Context) ([]domain.CollectionInfo, error) {
	var listing struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	status, err := s.do(ctx, http.MethodGet, "/collections", nil, &listing)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("qdrant list collections: status %d", status)
	}

	infos := make([]domain.CollectionInfo, 0, len(listing.Result.Collections))
	for _, col := range listing.Result.Collections {
		var info collectionInfo
		status, err := s.do(ctx, http.MethodGet, "/collections/"+col.Name, nil, &info)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			continue
		}
		infos = append(infos, domain.CollectionInfo{
			Name:      col.Name,
			Dimension: info.Result.Config.Params.Vectors.Size,
			Chunks:    info.Result.PointsCount,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Upsert writes chunks with their embeddings attached. Text and vector
// always travel in one point.
func (s *Store) Upsert(ctx context.Context, collection string, chunks []domain.Chunk) error {
	points := make([]map[string]any, len(chunks))
	for i, ch := range chunks {
		points[i] = map[string]any{
			"id":      ch.ID,
			"vector":  ch.Embedding,
			"payload": payloadFromChunk(ch),
		}
	}

	status, err := s.do(ctx, http.MethodPut, "/collections/"+collection+"/points?wait=true",
		map[string]any{"points": points}, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collection)
	}
	if status >= 300 {
		return fmt.Errorf("qdrant upsert into %s: status %d", collection, status)
	}
	return nil
}

// Delete removes chunks by ID.
func (s *Store) Delete(ctx context.Context, collection string, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	status, err := s.do(ctx, http.MethodPost, "/collections/"+collection+"/points/delete?wait=true",
		map[string]any{"points": chunkIDs}, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collection)
	}
	if status >= 300 {
		return fmt.Errorf("qdrant delete from %s: status %d", collection, status)
	}
	return nil
}

// Query runs a similarity search over one collection.
func (s *Store) Query(ctx context.Context, collection string, vector []float32, topK int, filter map[string]string) ([]domain.RetrievedChunk, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if f := qdrantFilter(filter); f != nil {
		req["filter"] = f
	}

	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	status, err := s.do(ctx, http.MethodPost, "/collections/"+collection+"/points/search", req, &resp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collection)
	}
	if status >= 300 {
		return nil, fmt.Errorf("qdrant search %s: status %d", collection, status)
	}

	hits := make([]domain.RetrievedChunk, 0, len(resp.Result))
	for _, r := range resp.Result {
		hit := chunkFromPayload(r.Payload)
		hit.Score = r.Score
		hits = append(hits, hit)
	}
	return hits, nil
}

// DocumentPaths scrolls the collection and returns distinct source paths.
func (s *Store) DocumentPaths(ctx context.Context, collection string) ([]string, error) {
	seen := make(map[string]struct{})
	var offset any

	for {
		req := map[string]any{
			"limit":        scrollPageSize,
			"with_payload": []string{"path"},
		}
		if offset != nil {
			req["offset"] = offset
		}

		var resp struct {
			Result struct {
				Points []struct {
					Payload map[string]any `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		status, err := s.do(ctx, http.MethodPost, "/collections/"+collection+"/points/scroll", req, &resp)
		if err != nil {
			return nil, err
		}
		if status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collection)
		}
		if status >= 300 {
			return nil, fmt.Errorf("qdrant scroll %s: status %d", collection, status)
		}

		for _, p := range resp.Result.Points {
			if path, ok := p.Payload["path"].(string); ok {
				seen[path] = struct{}{}
			}
		}
		if resp.Result.NextPageOffset == nil {
			break
		}
		offset = resp.Result.NextPageOffset
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// UpdateMetadata rewrites the metadata payload for every chunk of one
// path and returns the number of chunks touched.
func (s *Store) UpdateMetadata(ctx context.Context, collection, path string, meta domain.Metadata) (int, error) {
	pathFilter := map[string]any{
		"must": []map[string]any{
			{"key": "path", "match": map[string]any{"value": path}},
		},
	}

	var countResp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	status, err := s.do(ctx, http.MethodPost, "/collections/"+collection+"/points/count",
		map[string]any{"filter": pathFilter, "exact": true}, &countResp)
	if err != nil {
		return 0, err
	}
	if status == http.StatusNotFound {
		return 0, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collection)
	}
	if status >= 300 {
		return 0, fmt.Errorf("qdrant count %s: status %d", collection, status)
	}
	if countResp.Result.Count == 0 {
		return 0, nil
	}

	payload := metadataPayload(meta)
	status, err = s.do(ctx, http.MethodPost, "/collections/"+collection+"/points/payload?wait=true",
		map[string]any{"payload": payload, "filter": pathFilter}, nil)
	if err != nil {
		return 0, err
	}
	if status >= 300 {
		return 0, fmt.Errorf("qdrant set payload in %s: status %d", collection, status)
	}
	return countResp.Result.Count, nil
}

// Close releases resources.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// do issues one JSON request and decodes the response into out when
// non-nil. Transport failures wrap ErrStoreUnavailable so callers can
// retry with backoff; deadline expiry wraps ErrTimeout.
func (s *Store) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, fmt.Errorf("%w: qdrant %s %s: %w", domain.ErrTimeout, method, path, err)
		}
		return 0, fmt.Errorf("%w: qdrant %s %s: %w", domain.ErrStoreUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	} else if out != nil && resp.StatusCode == http.StatusNotFound {
		// 404 bodies carry an error envelope; callers only need the status.
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
	}

	return resp.StatusCode, nil
}

// payloadFromChunk flattens a chunk into the stored payload. Metadata
// keys are stored top-level so they support equality filtering.
func payloadFromChunk(ch domain.Chunk) map[string]any {
	payload := metadataPayload(ch.Metadata)
	payload["path"] = ch.DocumentPath
	payload["chunk_index"] = ch.Index
	payload["start"] = ch.Start
	payload["end"] = ch.End
	payload["text"] = ch.Text
	return payload
}

func metadataPayload(meta domain.Metadata) map[string]any {
	payload := map[string]any{
		"category": meta.Category,
		"client":   meta.Client,
		"year":     meta.Year,
		"project":  meta.Project,
	}
	for k, v := range meta.Fields {
		payload["field_"+k] = v
	}
	return payload
}

// chunkFromPayload rebuilds a retrieval hit from a stored payload.
func chunkFromPayload(payload map[string]any) domain.RetrievedChunk {
	hit := domain.RetrievedChunk{}
	if v, ok := payload["path"].(string); ok {
		hit.DocumentPath = v
	}
	if v, ok := payload["chunk_index"].(float64); ok {
		hit.Index = int(v)
	}
	if v, ok := payload["text"].(string); ok {
		hit.Text = v
	}
	if v, ok := payload["category"].(string); ok {
		hit.Metadata.Category = v
	}
	if v, ok := payload["client"].(string); ok {
		hit.Metadata.Client = v
	}
	if v, ok := payload["year"].(string); ok {
		hit.Metadata.Year = v
	}
	if v, ok := payload["project"].(string); ok {
		hit.Metadata.Project = v
	}
	for k, v := range payload {
		if len(k) > 6 && k[:6] == "field_" {
			if s, ok := v.(string); ok {
				if hit.Metadata.Fields == nil {
					hit.Metadata.Fields = make(map[string]string)
				}
				hit.Metadata.Fields[k[6:]] = s
			}
		}
	}
	hit.ChunkID = domain.ChunkID(hit.DocumentPath, hit.Index)
	return hit
}

func qdrantFilter(filter map[string]string) map[string]any {
	if len(filter) == 0 {
		return nil
	}
	must := make([]map[string]any, 0, len(filter))
	for k, v := range filter {
		must = append(must, map[string]any{
			"key":   k,
			"match": map[string]any{"value": v},
		})
	}
	return map[string]any{"must": must}
}
