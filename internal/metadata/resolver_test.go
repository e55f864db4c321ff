package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
)

func TestResolveFolderConvention(t *testing.T) {
	r := NewResolver("/data/Clients", nil, nil)

	m, err := r.Resolve(context.Background(), "/data/Clients/Acme/2023/ProjectX/sow.pdf", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "Acme", m.Client)
	assert.Equal(t, "2023", m.Year)
	assert.Equal(t, "ProjectX", m.Project)
}

func TestResolvePrecedence(t *testing.T) {
	// Overrides beat derived values, derived values beat native ones.
	r := NewResolver("/data/Clients", nil, nil)

	m, err := r.Resolve(context.Background(),
		"/data/Clients/Globex/2024/Migration/plan.docx",
		map[string]string{"client": "Other"},
		map[string]string{"client": "Acme"},
	)
	require.NoError(t, err)

	assert.Equal(t, "Acme", m.Client)
	assert.Equal(t, "2024", m.Year)
	assert.Equal(t, "Migration", m.Project)
}

func TestResolveDerivedBeatsNative(t *testing.T) {
	r := NewResolver("/data/Clients", nil, nil)

	m, err := r.Resolve(context.Background(),
		"/data/Clients/Globex/2024/Migration/plan.docx",
		map[string]string{"client": "Other"},
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, "Globex", m.Client)
}

func TestResolveNoYearFallsBackToSecondSegment(t *testing.T) {
	r := NewResolver("/data/Clients", nil, nil)

	m, err := r.Resolve(context.Background(), "/data/Clients/Acme/Phoenix/notes.txt", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "Acme", m.Client)
	assert.Empty(t, m.Year)
	assert.Equal(t, "Phoenix", m.Project)
}

func TestResolveOutsideRootLeavesFieldsUnset(t *testing.T) {
	r := NewResolver("/data/Clients", nil, nil)

	m, err := r.Resolve(context.Background(), "/tmp/random.txt", nil, nil)
	require.NoError(t, err)

	assert.Empty(t, m.Client)
	assert.Empty(t, m.Year)
	assert.Empty(t, m.Project)
	assert.Equal(t, domain.CategoryUncategorized, m.Category)
}

func TestResolveNativeExtraFieldsKept(t *testing.T) {
	r := NewResolver("", nil, nil)

	m, err := r.Resolve(context.Background(), "/tmp/doc.pdf",
		map[string]string{"pages": "12"},
		map[string]string{"owner": "dg"},
	)
	require.NoError(t, err)

	assert.Equal(t, "12", m.Fields["pages"])
	assert.Equal(t, "dg", m.Fields["owner"])
}

func TestResolveAllIndependentPerPath(t *testing.T) {
	r := NewResolver("/data/Clients", nil, nil)

	out, err := r.ResolveAll(context.Background(), []string{
		"/data/Clients/Acme/2023/ProjectX/sow.pdf",
		"/data/Clients/Globex/2021/Audit/report.pdf",
	}, map[string]string{"year": "2030"})
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "Acme", out["/data/Clients/Acme/2023/ProjectX/sow.pdf"].Client)
	assert.Equal(t, "Globex", out["/data/Clients/Globex/2021/Audit/report.pdf"].Client)
	// Shared override applies to both.
	for _, m := range out {
		assert.Equal(t, "2030", m.Year)
	}
}

func TestKeywordClassifierFirstMatchWins(t *testing.T) {
	c := NewKeywordClassifier(nil)

	tests := []struct {
		path string
		want string
	}{
		{"/data/Clients/Acme/2023/ProjectX/sow.pdf", "SOW"},
		{"/data/Clients/Acme/2023/poc-results.docx", "POC"},
		{"/data/Clients/Acme/legal/nda.pdf", "Legal"},
		{"/data/Clients/Acme/invoice_123.pdf", "Finance"},
		{"/data/Clients/Acme/notes.txt", domain.CategoryUncategorized},
	}

	for _, tt := range tests {
		got, err := c.Classify(context.Background(), tt.path, "")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestResolveUsesClassifier(t *testing.T) {
	r := NewResolver("/data/Clients", nil, NewKeywordClassifier(nil))

	m, err := r.Resolve(context.Background(), "/data/Clients/Acme/2023/ProjectX/sow.pdf", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "SOW", m.Category)
}

func TestResolveCategoryOverrideWins(t *testing.T) {
	r := NewResolver("/data/Clients", nil, NewKeywordClassifier(nil))

	m, err := r.Resolve(context.Background(), "/data/Clients/Acme/2023/ProjectX/sow.pdf",
		nil, map[string]string{"category": "Legal"})
	require.NoError(t, err)
	assert.Equal(t, "Legal", m.Category)
}
