package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
)

// writeTestDOCX writes a minimal valid DOCX file to dir.
func writeTestDOCX(t *testing.T, dir, documentXML, coreXML string) string {
	t.Helper()

	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	contentTypes, err := w.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = contentTypes.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`))
	require.NoError(t, err)

	if documentXML != "" {
		doc, err := w.Create("word/document.xml")
		require.NoError(t, err)
		_, err = doc.Write([]byte(documentXML))
		require.NoError(t, err)
	}

	if coreXML != "" {
		core, err := w.Create("docProps/core.xml")
		require.NoError(t, err)
		_, err = core.Write([]byte(coreXML))
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())

	path := filepath.Join(dir, "test.docx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestExtensions(t *testing.T) {
	assert.Equal(t, []string{".docx"}, New().Extensions())
}

func TestExtractParagraphs(t *testing.T) {
	docXML := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Scope of work for ProjectX.</w:t></w:r></w:p>
<w:p><w:r><w:t>Phase one covers discovery.</w:t></w:r></w:p>
</w:body>
</w:document>`

	path := writeTestDOCX(t, t.TempDir(), docXML, "")

	text, _, err := New().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Scope of work for ProjectX.\nPhase one covers discovery.", text)
}

func TestExtractTitleMetadata(t *testing.T) {
	docXML := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body><w:p><w:r><w:t>Body</w:t></w:r></w:p></w:body>
</w:document>`
	coreXML := `<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title>Acme SOW</dc:title>
</cp:coreProperties>`

	path := writeTestDOCX(t, t.TempDir(), docXML, coreXML)

	_, native, err := New().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Acme SOW", native["title"])
}

func TestExtractEmptyDocumentIsNotAnError(t *testing.T) {
	// A valid archive with no document.xml yields empty text.
	path := writeTestDOCX(t, t.TempDir(), "", "")

	text, _, err := New().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtractCorruptArchive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.docx")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	_, _, err := New().Extract(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrExtraction)
}
