package plaintext

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
)

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Scope\n\nPhase one."), 0o600))

	text, native, err := New().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "# Scope\n\nPhase one.", text)
	assert.Equal(t, "19", native["file_size"])
}

func TestExtractEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	text, _, err := New().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtractMissingFile(t *testing.T) {
	_, _, err := New().Extract(context.Background(), "/does/not/exist.txt")
	assert.ErrorIs(t, err, domain.ErrExtraction)
}
