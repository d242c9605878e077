package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/transform"
)

// CreateDummyFile creates a file with the given content, ensuring parent
// directories exist. It uses require assertions for test setup.
func CreateDummyFile(t *testing.T, path string, content string) {
	t.Helper()
	CreateDummyFileBytes(t, path, []byte(content))
}

// CreateDummyFileBytes is CreateDummyFile for raw bytes, for fixtures in
// legacy encodings that are not valid UTF-8.
func CreateDummyFileBytes(t *testing.T, path string, content []byte) {
	t.Helper()
	fullPath := filepath.Clean(path)
	dir := filepath.Dir(fullPath)
	err := os.MkdirAll(dir, 0755)
	require.NoError(t, err, "Failed to create directory %s for dummy file", dir)
	err = os.WriteFile(fullPath, content, 0644)
	require.NoError(t, err, "Failed to write dummy file %s", fullPath)
}

// CreateDummyDir ensures a directory exists at the given path, creating
// parents if needed.
func CreateDummyDir(t *testing.T, path string) {
	t.Helper()
	fullPath := filepath.Clean(path)
	err := os.MkdirAll(fullPath, 0755)
	require.NoError(t, err, "Failed to create dummy directory %s", fullPath)
}

// EncodeText encodes UTF-8 text through the given encoder, producing
// fixture bytes in a legacy charset (e.g. GBK, Big5).
func EncodeText(t *testing.T, text string, encoder transform.Transformer) []byte {
	t.Helper()
	out, _, err := transform.Bytes(encoder, []byte(text))
	require.NoError(t, err, "Failed to encode fixture text")
	return out
}

// DiscardLogHandler returns an slog.Handler that drops all records, for
// tests that need a logger but not its output.
func DiscardLogHandler() slog.Handler {
	return slog.NewTextHandler(io.Discard, nil)
}
