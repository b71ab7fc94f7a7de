package resume

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cv.txt")
	require.NoError(t, os.WriteFile(path, []byte("python developer"), 0o600))

	text, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "python developer", text)

	profile, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"python"}, profile.Skills["programming"])
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	odt := filepath.Join(dir, "cv.odt")
	require.NoError(t, os.WriteFile(odt, []byte("x"), 0o600))
	_, err = LoadFile(odt)
	assert.ErrorContains(t, err, "unsupported resume format")

	empty := filepath.Join(dir, "empty.md")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, err = ParseFile(empty)
	assert.ErrorIs(t, err, ErrUnparseableDocument)
}

func TestLoadFileDocx(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cv.docx")
	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>
<w:p><w:r><w:t>Go and </w:t></w:r><w:r><w:t>PostgreSQL</w:t></w:r></w:p>
<w:p></w:p>
</w:body>
</w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	text, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nGo and PostgreSQL", text)
}

func TestLoadFileDocxWithoutDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	_, err = zw.Create("word/styles.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = LoadFile(path)
	assert.ErrorContains(t, err, "word/document.xml not found")
}

func TestTextFromContentStream(t *testing.T) {
	stream := []byte("BT\n/F1 12 Tf\n72 712 Td\n(Jane Doe) Tj\n0 -14 Td\n[(Python) -250 ( and SQL)] TJ\n(\\(remote\\)) '\nET\n")

	assert.Equal(t, "Jane Doe\nPython and SQL\n(remote)", textFromContentStream(stream))
}

func TestDecodePDFString(t *testing.T) {
	assert.Equal(t, "a b", decodePDFString([]byte(`a\040b`)))
	assert.Equal(t, "x\ty", decodePDFString([]byte(`x\ty`)))
	assert.Equal(t, `back\slash`, decodePDFString([]byte(`back\\slash`)))
}
