package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
)

func newTestServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embeddings", r.URL.Path)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Prompt)

		vec := make([]float64, dims)
		for i := range vec {
			vec[i] = float64(i) * 0.1
		}
		json.NewEncoder(w).Encode(embedResponse{Embedding: vec}) //nolint:errcheck
	}))
}

func TestEmbed(t *testing.T) {
	srv := newTestServer(t, 384)
	defer srv.Close()

	svc := NewEmbeddingService(Config{BaseURL: srv.URL})

	vec, err := svc.Embed(context.Background(), "statement of work")
	require.NoError(t, err)
	assert.Len(t, vec, 384)
	assert.InDelta(t, 0.1, vec[1], 1e-6)
}

func TestEmbedDimensionGuard(t *testing.T) {
	srv := newTestServer(t, 768)
	defer srv.Close()

	svc := NewEmbeddingService(Config{BaseURL: srv.URL, Dimensions: 384})

	_, err := svc.Embed(context.Background(), "statement of work")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEmbedding))
}

func TestEmbedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	svc := NewEmbeddingService(Config{BaseURL: srv.URL})

	_, err := svc.Embed(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEmbedding))
	assert.Contains(t, err.Error(), "404")
}

func TestEmbedBatch(t *testing.T) {
	srv := newTestServer(t, 384)
	defer srv.Close()

	svc := NewEmbeddingService(Config{BaseURL: srv.URL})

	vecs, err := svc.EmbedBatch(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Len(t, v, 384)
	}
}

func TestDefaults(t *testing.T) {
	svc := NewEmbeddingService(Config{})
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, DefaultDimensions, svc.Dimensions())
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		w.Write([]byte(`{"models":[]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	svc := NewEmbeddingService(Config{BaseURL: srv.URL})
	assert.NoError(t, svc.Ping(context.Background()))
}

func TestPingUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	svc := NewEmbeddingService(Config{BaseURL: srv.URL})
	assert.Error(t, svc.Ping(context.Background()))
}
