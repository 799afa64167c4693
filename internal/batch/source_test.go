package batch

import (
	"bytes"
	"compress/gzip"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBarcode(t *testing.T) {
	assert.True(t, IsBarcode("3232278600004"))
	assert.False(t, IsBarcode("323227860000"))   // 12 digits
	assert.False(t, IsBarcode("3232278600004x")) // trailing letter
	assert.False(t, IsBarcode("dump.jsonl"))
	assert.False(t, IsBarcode(""))
}

func TestBarcodeFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/323/227/860/0004/3.jpg", "3232278600004"},
		{"/20065034/1.jpg", "20065034"},
		{"/srv/off/images/323/227/860/0004/3.json", "3232278600004"},
		{"/srv/off/images/readme.txt", ""},
		{"3.json", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, BarcodeFromPath(tt.path))
		})
	}
}

func collect(t *testing.T, it *Iterator, input string) []Document {
	t.Helper()
	var docs []Document
	for doc := range it.Documents(context.Background(), input) {
		docs = append(docs, doc)
	}
	return docs
}

func newFSIterator() *Iterator {
	// Filesystem inputs never touch the product API.
	return NewIterator(nil, 1, 0, slog.Default())
}

func TestDocumentsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "3.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"responses": []}`), 0o644))

	docs := collect(t, newFSIterator(), path)
	require.Len(t, docs, 1)
	assert.Equal(t, path, docs[0].Source)
	assert.JSONEq(t, `{"responses": []}`, string(docs[0].Raw))
}

func TestDocumentsFromDirectory(t *testing.T) {
	// Anchor under a non-digit directory so barcode recovery stops there
	// instead of swallowing temp dir components.
	root := filepath.Join(t.TempDir(), "images")
	imageDir := filepath.Join(root, "323", "227", "860", "0004")
	require.NoError(t, os.MkdirAll(imageDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(imageDir, "3.json"), []byte(`{"responses": []}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(imageDir, "notes.txt"), []byte("ignored"), 0o644))

	docs := collect(t, newFSIterator(), root)
	require.Len(t, docs, 1)
	assert.Equal(t, "/323/227/860/0004/3.jpg", docs[0].Source)
}

func TestDocumentsFromJSONL(t *testing.T) {
	lines := `{"source": "/323/227/860/0004/3.jpg", "content": {"responses": []}}
not json at all
{"source": "/200/650/340/0001/1.jpg"}
{"source": "//323//227//860//0004//4.jpg", "content": {"responses": []}}
`
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))

	docs := collect(t, newFSIterator(), path)
	require.Len(t, docs, 2)
	assert.Equal(t, "/323/227/860/0004/3.jpg", docs[0].Source)
	// Double slashes in dump sources collapse to the canonical form.
	assert.Equal(t, "/323/227/860/0004/4.jpg", docs[1].Source)
}

func TestDocumentsFromGzippedJSONL(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(`{"source": "/323/227/860/0004/3.jpg", "content": {"responses": []}}` + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	dir := t.TempDir()
	path := filepath.Join(dir, "dump.jsonl.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	docs := collect(t, newFSIterator(), path)
	require.Len(t, docs, 1)
	assert.Equal(t, "/323/227/860/0004/3.jpg", docs[0].Source)
}

func TestDocumentsMissingInput(t *testing.T) {
	docs := collect(t, newFSIterator(), "/does/not/exist.json")
	assert.Empty(t, docs)
}
