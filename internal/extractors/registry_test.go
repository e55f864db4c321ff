package extractors

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
)

func TestDefaultsSupportedFormats(t *testing.T) {
	r := Defaults()

	for _, path := range []string{
		"doc.txt", "doc.md", "doc.pdf", "doc.docx", "doc.xlsx", "doc.pptx",
		"DOC.PDF", // extension match is case-insensitive
	} {
		assert.True(t, r.Supported(path), path)
	}

	for _, path := range []string{"image.png", "archive.zip", "noext"} {
		assert.False(t, r.Supported(path), path)
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	r := Defaults()

	_, _, err := r.Extract(context.Background(), "/tmp/scan.png")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestExtractDispatchesPlaintext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("project scope"), 0o600))

	r := Defaults()
	text, native, err := r.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "project scope", text)
	assert.Equal(t, "13", native["file_size"])
}

func TestExtractCorruptFileWrapsExtractionError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.docx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip archive"), 0o600))

	r := Defaults()
	_, _, err := r.Extract(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrExtraction)
}
