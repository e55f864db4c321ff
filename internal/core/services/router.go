package services

import (
	"sort"
	"strings"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
)

// DefaultCollection receives documents whose category has no explicit
// mapping.
const DefaultCollection = "documents"

// Router maps a document's category to the collection that stores it.
// The mapping is fixed at construction; routing is deterministic for
// identical metadata.
type Router struct {
	mapping     map[string]string
	categories  map[string]string
	defaultName string
}

// NewRouter creates a router from a category-to-collection mapping.
// Mapping keys are matched case-insensitively. An empty defaultName
// falls back to DefaultCollection.
func NewRouter(mapping map[string]string, defaultName string) *Router {
	if defaultName == "" {
		defaultName = DefaultCollection
	}
	normalized := make(map[string]string, len(mapping))
	for category, collection := range mapping {
		normalized[strings.ToLower(category)] = NormalizeCollection(collection)
	}

	// Reverse lookup for CategoryFor. Several categories may share a
	// collection; iterating sorted keys makes the winner deterministic.
	keys := make([]string, 0, len(mapping))
	for category := range mapping {
		keys = append(keys, category)
	}
	sort.Strings(keys)
	categories := make(map[string]string, len(mapping))
	for _, category := range keys {
		collection := NormalizeCollection(mapping[category])
		if _, ok := categories[collection]; !ok {
			categories[collection] = category
		}
	}

	return &Router{
		mapping:     normalized,
		categories:  categories,
		defaultName: NormalizeCollection(defaultName),
	}
}

// CategoryFor returns the category that routes to collection, if any.
// The default collection has no category of its own.
func (r *Router) CategoryFor(collection string) (string, bool) {
	category, ok := r.categories[NormalizeCollection(collection)]
	return category, ok
}

// Route returns the collection for a document's metadata.
func (r *Router) Route(meta domain.Metadata) string {
	if collection, ok := r.mapping[strings.ToLower(meta.Category)]; ok {
		return collection
	}
	return r.defaultName
}

// Collections returns every collection the router can route to,
// sorted and de-duplicated. Used as the default query scope.
func (r *Router) Collections() []string {
	seen := map[string]struct{}{r.defaultName: {}}
	for _, collection := range r.mapping {
		seen[collection] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NormalizeCollection lowercases a collection name and replaces
// whitespace runs with a single hyphen, so configured names are always
// valid store identifiers.
func NormalizeCollection(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(name), "-")
}
