package pptx

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
)

// writeTestPPTX writes a minimal deck with two slides.
func writeTestPPTX(t *testing.T, dir string) string {
	t.Helper()

	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	slide := `<?xml version="1.0" encoding="UTF-8"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"
xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
<p:cSld><p:spTree><p:sp><p:txBody>
<a:p><a:r><a:t>%s</a:t></a:r></a:p>
</p:txBody></p:sp></p:spTree></p:cSld>
</p:sld>`

	one, err := w.Create("ppt/slides/slide1.xml")
	require.NoError(t, err)
	_, err = one.Write([]byte(fmt.Sprintf(slide, "POC Results")))
	require.NoError(t, err)

	two, err := w.Create("ppt/slides/slide2.xml")
	require.NoError(t, err)
	_, err = two.Write([]byte(fmt.Sprintf(slide, "Next Steps")))
	require.NoError(t, err)

	require.NoError(t, w.Close())

	path := filepath.Join(dir, "deck.pptx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestExtensions(t *testing.T) {
	assert.Equal(t, []string{".pptx"}, New().Extensions())
}

func TestExtractSlidesInOrder(t *testing.T) {
	path := writeTestPPTX(t, t.TempDir())

	text, native, err := New().Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "POC Results\n\nNext Steps", text)
	assert.Equal(t, "2", native["slides"])
}

func TestExtractCorruptDeck(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.pptx")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0o600))

	_, _, err := New().Extract(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrExtraction)
}
