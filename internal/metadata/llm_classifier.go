package metadata

import (
	"context"
	"fmt"
	"strings"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
	"github.com/terasky-int/sow-dataset/internal/core/ports/driven"
)

// llmClassifierPrompt asks for exactly one category name so the response
// can be matched verbatim against the allowed list.
const llmClassifierPrompt = `Classify the document below into exactly one of these categories: %s.
Respond with the category name only, nothing else.

File: %s

Document excerpt:
%s`

// maxClassifierExcerpt bounds the excerpt sent to the model.
const maxClassifierExcerpt = 2000

// LLMClassifier delegates category assignment to the language model.
// Responses outside the allowed category list fall back to Uncategorized
// rather than inventing new collections.
type LLMClassifier struct {
	llm        driven.LLMService
	categories []string
}

var _ Classifier = (*LLMClassifier)(nil)

// NewLLMClassifier creates a classifier restricted to the given
// categories.
func NewLLMClassifier(llm driven.LLMService, categories []string) *LLMClassifier {
	return &LLMClassifier{llm: llm, categories: categories}
}

// Classify asks the model for a category and validates the response.
func (c *LLMClassifier) Classify(ctx context.Context, path, text string) (string, error) {
	excerpt := text
	if len(excerpt) > maxClassifierExcerpt {
		excerpt = excerpt[:maxClassifierExcerpt]
	}

	prompt := fmt.Sprintf(llmClassifierPrompt, strings.Join(c.categories, ", "), path, excerpt)
	resp, err := c.llm.Generate(ctx, prompt, driven.GenerateOptions{MaxTokens: 10, Temperature: 0})
	if err != nil {
		return "", fmt.Errorf("classify %s: %w", path, err)
	}

	answer := strings.TrimSpace(resp)
	for _, cat := range c.categories {
		if strings.EqualFold(answer, cat) {
			return cat, nil
		}
	}
	return domain.CategoryUncategorized, nil
}
