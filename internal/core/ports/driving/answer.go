package driving

import (
	"context"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
)

// AnswerService answers natural-language questions over ingested content.
type AnswerService interface {
	// Answer retrieves relevant chunks from the scoped collections and
	// generates a grounded answer. An empty scope means every
	// collection the router knows about.
	//
	// When nothing scores above the relevance threshold the returned
	// answer has State AnswerNoContent and the language model is not
	// invoked. When generation fails after retries the answer has
	// State AnswerFailed with retrieval results preserved.
	Answer(ctx context.Context, question string, scope []string) (*domain.Answer, error)
}
