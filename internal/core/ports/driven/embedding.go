package driven

import "context"

// EmbeddingService generates vector embeddings from text.
// Query and corpus must share one embedding space, so the same service
// instance is used for ingestion and retrieval.
//
// Implementations may include:
//   - Ollama (all-minilm, nomic-embed-text)
//   - OpenAI-compatible inference servers
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	// Deterministic for identical input.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size. Fixed at 384 for
	// this installation; must match the vector store configuration.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}
