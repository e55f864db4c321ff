package metadata

import (
	"context"
	"strings"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
)

// KeywordRule maps path/content keywords to a category.
type KeywordRule struct {
	Category string
	Keywords []string
}

// DefaultKeywordRules cover the categories used by the dataset.
// Order matters: the first matching rule wins, so narrower rules come
// before broader ones.
func DefaultKeywordRules() []KeywordRule {
	return []KeywordRule{
		{Category: "SOW", Keywords: []string{"sow", "statement of work"}},
		{Category: "POC", Keywords: []string{"poc", "proof of concept"}},
		{Category: "Legal", Keywords: []string{"nda", "legal", "contract", "agreement"}},
		{Category: "Finance", Keywords: []string{"invoice", "finance", "quote"}},
		{Category: "Purchase", Keywords: []string{"purchase", "order"}},
	}
}

// KeywordClassifier assigns categories by matching keywords against the
// lower-cased path. First match wins; no match yields Uncategorized.
type KeywordClassifier struct {
	rules []KeywordRule
}

var _ Classifier = (*KeywordClassifier)(nil)

// NewKeywordClassifier creates a classifier. nil rules use the defaults.
func NewKeywordClassifier(rules []KeywordRule) *KeywordClassifier {
	if rules == nil {
		rules = DefaultKeywordRules()
	}
	return &KeywordClassifier{rules: rules}
}

// Classify matches the path against the ordered keyword rules.
func (c *KeywordClassifier) Classify(_ context.Context, path, _ string) (string, error) {
	haystack := strings.ToLower(path)
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(haystack, kw) {
				return rule.Category, nil
			}
		}
	}
	return domain.CategoryUncategorized, nil
}
