package domain

// RetrievedChunk is a ranked retrieval hit.
type RetrievedChunk struct {
	// ChunkID is the matched chunk identity.
	ChunkID string

	// DocumentPath is the source file the chunk came from.
	DocumentPath string

	// Index is the chunk's sequence index, used to break score ties
	// deterministically (earlier chunk wins).
	Index int

	// Text is the chunk text.
	Text string

	// Metadata is the chunk's resolved metadata.
	Metadata Metadata

	// Score is the cosine similarity against the question vector.
	Score float64
}

// AnswerState reports how far the responder got.
type AnswerState string

const (
	// AnswerDone means generation completed with a grounded answer.
	AnswerDone AnswerState = "done"

	// AnswerNoContent means nothing scored above the relevance
	// threshold; no answer was generated.
	AnswerNoContent AnswerState = "no_content"

	// AnswerFailed means generation failed after retries. Retrieval
	// results are preserved so callers can still show sources.
	AnswerFailed AnswerState = "failed"
)

// Answer is the result of a retrieval-augmented query.
type Answer struct {
	// Question is the original question text.
	Question string

	// Text is the generated answer. Empty unless State is AnswerDone.
	Text string

	// Sources are the distinct source paths cited by the answer,
	// in rank order.
	Sources []string

	// Results are the retrieved chunks that grounded the answer.
	Results []RetrievedChunk

	// State reports the terminal responder state.
	State AnswerState
}
