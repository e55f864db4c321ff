package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terasky-int/sow-dataset/internal/adapters/driven/vectorstore/memory"
	"github.com/terasky-int/sow-dataset/internal/chunker"
	"github.com/terasky-int/sow-dataset/internal/core/domain"
	"github.com/terasky-int/sow-dataset/internal/core/ports/driving"
	"github.com/terasky-int/sow-dataset/internal/extractors"
	"github.com/terasky-int/sow-dataset/internal/metadata"
)

// ingestFixture wires a full pipeline over the in-memory vector store.
type ingestFixture struct {
	svc      *IngestService
	store    *memory.Store
	embedder *mockEmbedding
	tracker  *mockTracker
	root     string
}

func newIngestFixture(t *testing.T) *ingestFixture {
	t.Helper()
	root := t.TempDir()
	store := memory.NewStore()
	embedder := newMockEmbedding(3)
	tracker := newMockTracker()

	resolver := metadata.NewResolver(root, nil,
		metadata.NewKeywordClassifier(metadata.DefaultKeywordRules()))
	router := NewRouter(map[string]string{
		"SOW":   "sows",
		"Legal": "legal",
	}, "misc")
	gateway := NewVectorGateway(store, embedder, 1)

	svc := NewIngestService(extractors.Defaults(), chunker.New(), resolver, router, gateway, tracker, 2)
	return &ingestFixture{svc: svc, store: store, embedder: embedder, tracker: tracker, root: root}
}

func (f *ingestFixture) writeFile(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(f.root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIngestFile(t *testing.T) {
	f := newIngestFixture(t)
	path := f.writeFile(t, "Acme/2023/Migration/project_sow.txt", "Phase one covers discovery.")

	res, err := f.svc.IngestFile(context.Background(), path, driving.FolderOptions{})
	require.NoError(t, err)

	assert.Equal(t, driving.StatusIngested, res.Status)
	assert.Equal(t, "sows", res.Collection)
	assert.Equal(t, 1, res.Chunks)
	assert.Equal(t, 1, f.store.Count("sows"))

	rec, err := f.tracker.Get(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "sows", rec.Collection)
	assert.Equal(t, []string{domain.ChunkID(path, 0)}, rec.ChunkIDs)
	assert.NotEmpty(t, rec.Fingerprint)
}

func TestIngestFileUnchangedSkipsEmbedding(t *testing.T) {
	f := newIngestFixture(t)
	path := f.writeFile(t, "Acme/2023/Migration/project_sow.txt", "Phase one covers discovery.")
	ctx := context.Background()

	_, err := f.svc.IngestFile(ctx, path, driving.FolderOptions{})
	require.NoError(t, err)
	embeds := f.embedder.callCount()

	res, err := f.svc.IngestFile(ctx, path, driving.FolderOptions{})
	require.NoError(t, err)
	assert.Equal(t, driving.StatusUnchanged, res.Status)
	assert.Equal(t, embeds, f.embedder.callCount())
	assert.Equal(t, 1, f.store.Count("sows"))
}

func TestIngestFileForceReingests(t *testing.T) {
	f := newIngestFixture(t)
	path := f.writeFile(t, "Acme/2023/Migration/project_sow.txt", "Phase one covers discovery.")
	ctx := context.Background()

	_, err := f.svc.IngestFile(ctx, path, driving.FolderOptions{})
	require.NoError(t, err)

	res, err := f.svc.IngestFile(ctx, path, driving.FolderOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, driving.StatusIngested, res.Status)
	assert.Equal(t, 1, f.store.Count("sows"))
}

func TestIngestFileChangedContentReplacesChunks(t *testing.T) {
	f := newIngestFixture(t)
	path := f.writeFile(t, "Acme/2023/Migration/project_sow.txt", "Phase one covers discovery.")
	ctx := context.Background()

	_, err := f.svc.IngestFile(ctx, path, driving.FolderOptions{})
	require.NoError(t, err)

	f.writeFile(t, "Acme/2023/Migration/project_sow.txt", "Phase two covers delivery.")
	res, err := f.svc.IngestFile(ctx, path, driving.FolderOptions{})
	require.NoError(t, err)
	assert.Equal(t, driving.StatusIngested, res.Status)

	// Still one chunk; the old one was evicted before the new upsert.
	assert.Equal(t, 1, f.store.Count("sows"))
	hits, err := f.store.Query(ctx, "sows", []float32{1, 0, 0}, 5, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Contains(t, hits[0].Text, "Phase two")
}

func TestIngestFileCategoryChangeMovesCollections(t *testing.T) {
	f := newIngestFixture(t)
	path := f.writeFile(t, "Acme/2023/Migration/project_sow.txt", "Phase one covers discovery.")
	ctx := context.Background()

	_, err := f.svc.IngestFile(ctx, path, driving.FolderOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, f.store.Count("sows"))

	f.writeFile(t, "Acme/2023/Migration/project_sow.txt", "Amended terms.")
	res, err := f.svc.IngestFile(ctx, path, driving.FolderOptions{
		Overrides: map[string]string{"category": "Legal"},
	})
	require.NoError(t, err)
	assert.Equal(t, "legal", res.Collection)
	assert.Equal(t, 0, f.store.Count("sows"))
	assert.Equal(t, 1, f.store.Count("legal"))
}

func TestIngestFileUnsupportedExtension(t *testing.T) {
	f := newIngestFixture(t)
	path := f.writeFile(t, "Acme/archive.zip", "binary")

	res, err := f.svc.IngestFile(context.Background(), path, driving.FolderOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedFormat))
	assert.Equal(t, driving.StatusUnsupported, res.Status)
}

func TestIngestFileEmptyDocument(t *testing.T) {
	f := newIngestFixture(t)
	path := f.writeFile(t, "Acme/empty_sow.txt", "   \n\n  ")

	res, err := f.svc.IngestFile(context.Background(), path, driving.FolderOptions{})
	require.NoError(t, err)
	assert.Equal(t, driving.StatusEmpty, res.Status)
	assert.Zero(t, res.Chunks)
}

func TestIngestFileEmptiedDocumentEvictsChunks(t *testing.T) {
	f := newIngestFixture(t)
	path := f.writeFile(t, "Acme/2023/Migration/project_sow.txt", "Phase one covers discovery.")
	ctx := context.Background()

	_, err := f.svc.IngestFile(ctx, path, driving.FolderOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, f.store.Count("sows"))

	f.writeFile(t, "Acme/2023/Migration/project_sow.txt", "")
	res, err := f.svc.IngestFile(ctx, path, driving.FolderOptions{})
	require.NoError(t, err)
	assert.Equal(t, driving.StatusEmpty, res.Status)
	assert.Equal(t, 0, f.store.Count("sows"))

	_, err = f.tracker.Get(ctx, path)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestIngestFolderBestEffort(t *testing.T) {
	f := newIngestFixture(t)
	f.writeFile(t, "Acme/2023/Migration/project_sow.txt", "Scope of work.")
	f.writeFile(t, "Acme/2023/Migration/contract_legal.md", "Terms and conditions.")
	f.writeFile(t, "Acme/2023/Migration/archive.zip", "binary")

	report, err := f.svc.IngestFolder(context.Background(), f.root, driving.FolderOptions{Recursive: true})
	require.NoError(t, err)
	require.Len(t, report.Results, 3)

	ingested, skipped, failed := report.Counts()
	assert.Equal(t, 2, ingested)
	assert.Equal(t, 1, skipped)
	assert.Zero(t, failed)

	assert.Equal(t, 1, f.store.Count("sows"))
	assert.Equal(t, 1, f.store.Count("legal"))
}

func TestIngestFolderNonRecursive(t *testing.T) {
	f := newIngestFixture(t)
	f.writeFile(t, "top_sow.txt", "Top level scope.")
	f.writeFile(t, "Acme/nested_sow.txt", "Nested scope.")

	report, err := f.svc.IngestFolder(context.Background(), f.root, driving.FolderOptions{})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, driving.StatusIngested, report.Results[0].Status)
}

func TestIngestFolderNameFilter(t *testing.T) {
	f := newIngestFixture(t)
	f.writeFile(t, "Acme/project_sow.txt", "Scope of work.")
	f.writeFile(t, "Acme/notes.txt", "Meeting notes.")

	report, err := f.svc.IngestFolder(context.Background(), f.root, driving.FolderOptions{
		Recursive:  true,
		NameFilter: "SOW",
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Contains(t, report.Results[0].Path, "project_sow.txt")
}

func TestIngestFolderSkipsHiddenFiles(t *testing.T) {
	f := newIngestFixture(t)
	f.writeFile(t, "Acme/.hidden_sow.txt", "Secret scope.")
	f.writeFile(t, ".git/config.txt", "not a document")
	f.writeFile(t, "Acme/visible_sow.txt", "Scope of work.")

	report, err := f.svc.IngestFolder(context.Background(), f.root, driving.FolderOptions{Recursive: true})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Contains(t, report.Results[0].Path, "visible_sow.txt")
}

func TestIngestFolderNotADirectory(t *testing.T) {
	f := newIngestFixture(t)
	path := f.writeFile(t, "Acme/project_sow.txt", "Scope of work.")

	_, err := f.svc.IngestFolder(context.Background(), path, driving.FolderOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestIngestFolderMetadataFromFolderLayout(t *testing.T) {
	f := newIngestFixture(t)
	f.writeFile(t, "Globex/2024/Rollout/plan_sow.txt", "Rollout plan.")

	_, err := f.svc.IngestFolder(context.Background(), f.root, driving.FolderOptions{Recursive: true})
	require.NoError(t, err)

	hits, err := f.store.Query(context.Background(), "sows", []float32{1, 0, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Globex", hits[0].Metadata.Client)
	assert.Equal(t, "2024", hits[0].Metadata.Year)
	assert.Equal(t, "Rollout", hits[0].Metadata.Project)
	assert.Equal(t, "SOW", hits[0].Metadata.Category)
}

func TestIngestFileConcurrentSamePath(t *testing.T) {
	f := newIngestFixture(t)
	path := f.writeFile(t, "Acme/project_sow.txt", "Scope of work.")
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			f.svc.IngestFile(ctx, path, driving.FolderOptions{}) //nolint:errcheck
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}

	// Serialised ingestion leaves exactly one copy of the chunk.
	assert.Equal(t, 1, f.store.Count("sows"))
}

// mutatingExtractor rewrites the file while extracting it, standing in
// for a writer that sneaks in between the fingerprint read and the
// extraction read.
type mutatingExtractor struct{}

func (mutatingExtractor) Extensions() []string { return []string{".txt"} }

func (mutatingExtractor) Extract(_ context.Context, path string) (string, map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	if err := os.WriteFile(path, []byte("rewritten mid-flight"), 0o644); err != nil {
		return "", nil, err
	}
	return string(data), nil, nil
}

func TestIngestFileFailsWhenFileChangesDuringExtraction(t *testing.T) {
	f := newIngestFixture(t)
	registry := extractors.NewRegistry()
	registry.Register(mutatingExtractor{})
	f.svc.registry = registry

	path := f.writeFile(t, "Acme/2023/Migration/project_sow.txt", "Phase one covers discovery.")

	res, err := f.svc.IngestFile(context.Background(), path, driving.FolderOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExtraction))
	assert.Equal(t, driving.StatusFailed, res.Status)

	// Nothing recorded and nothing stored for the torn read.
	_, err = f.tracker.Get(context.Background(), path)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Zero(t, f.store.Count("sows"))
}
