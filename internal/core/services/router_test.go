package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
)

func TestRouterRoutesByCategory(t *testing.T) {
	router := NewRouter(map[string]string{
		"SOW":   "sows",
		"Legal": "legal",
	}, "misc")

	tests := []struct {
		name     string
		category string
		want     string
	}{
		{"mapped category", "SOW", "sows"},
		{"case insensitive", "legal", "legal"},
		{"unmapped falls back", "Finance", "misc"},
		{"uncategorized falls back", domain.CategoryUncategorized, "misc"},
		{"empty falls back", "", "misc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := router.Route(domain.Metadata{Category: tt.category})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRouterDeterministic(t *testing.T) {
	router := NewRouter(map[string]string{"SOW": "sows"}, "")
	meta := domain.Metadata{Category: "SOW", Client: "Acme"}
	first := router.Route(meta)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, router.Route(meta))
	}
}

func TestRouterDefaultCollection(t *testing.T) {
	router := NewRouter(nil, "")
	assert.Equal(t, DefaultCollection, router.Route(domain.Metadata{Category: "anything"}))
}

func TestRouterCollectionsSortedAndDeduped(t *testing.T) {
	router := NewRouter(map[string]string{
		"SOW":     "sows",
		"POC":     "sows",
		"Legal":   "legal",
		"Finance": "finance",
	}, "misc")

	assert.Equal(t, []string{"finance", "legal", "misc", "sows"}, router.Collections())
}

func TestNormalizeCollection(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SOWs", "sows"},
		{"  Legal Docs  ", "legal-docs"},
		{"purchase\torders", "purchase-orders"},
		{"already-fine", "already-fine"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeCollection(tt.in))
	}
}

func TestRouterCategoryFor(t *testing.T) {
	router := NewRouter(map[string]string{
		"SOW":   "sows",
		"POC":   "sows",
		"Legal": "legal",
	}, "misc")

	category, ok := router.CategoryFor("legal")
	require.True(t, ok)
	assert.Equal(t, "Legal", category)

	// Shared collection resolves to the first category alphabetically.
	category, ok = router.CategoryFor("Sows")
	require.True(t, ok)
	assert.Equal(t, "POC", category)

	_, ok = router.CategoryFor("misc")
	assert.False(t, ok)
}
