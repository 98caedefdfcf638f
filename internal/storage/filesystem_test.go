package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const owner = "op@example.com"

func TestStore(t *testing.T) {
	fs := NewFileSystem(t.TempDir())
	data := []byte("report bytes")

	n, err := fs.Store(owner, "Image_Validation_Report.xlsx", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)

	path := filepath.Join(fs.basePath, "op_example.com", "Image_Validation_Report.xlsx")
	assert.Equal(t, path, fs.Path(owner, "Image_Validation_Report.xlsx"))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, content)
}

func TestStore_Replaces(t *testing.T) {
	fs := NewFileSystem(t.TempDir())

	_, err := fs.Store(owner, "a.zip", strings.NewReader("first"))
	require.NoError(t, err)
	_, err = fs.Store(owner, "a.zip", strings.NewReader("second"))
	require.NoError(t, err)

	content, err := os.ReadFile(fs.Path(owner, "a.zip"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))

	// no temp files left behind
	entries, err := os.ReadDir(fs.ownerPath(owner))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_NameCannotEscape(t *testing.T) {
	base := t.TempDir()
	fs := NewFileSystem(base)

	_, err := fs.Store("../../etc", "../passwd", strings.NewReader("x"))
	require.NoError(t, err)

	path := fs.Path("../../etc", "../passwd")
	rel, err := filepath.Rel(base, path)
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(rel, ".."), "stored outside base: %s", path)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestStore_ReaderErrorLeavesNothing(t *testing.T) {
	fs := NewFileSystem(t.TempDir())

	_, err := fs.Store(owner, "broken.zip", failingReader{})
	require.Error(t, err)

	exists, err := fs.Exists(owner, "broken.zip")
	require.NoError(t, err)
	assert.False(t, exists)
	entries, err := os.ReadDir(fs.ownerPath(owner))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDeleteAndExists(t *testing.T) {
	fs := NewFileSystem(t.TempDir())

	_, err := fs.Store(owner, "a.zip", strings.NewReader("x"))
	require.NoError(t, err)

	exists, err := fs.Exists(owner, "a.zip")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, fs.Delete(owner, "a.zip"))
	exists, err = fs.Exists(owner, "a.zip")
	require.NoError(t, err)
	assert.False(t, exists)

	// idempotent
	assert.NoError(t, fs.Delete(owner, "a.zip"))
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "op_example.com", safeName("op@example.com"))
	assert.Equal(t, "_.._etc", safeName("../../etc"))
	assert.Equal(t, "_", safeName(".."))
	assert.Equal(t, "_", safeName(""))
	assert.Equal(t, "S1_approved.zip", safeName("S1_approved.zip"))
}
