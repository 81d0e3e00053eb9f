package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFilesByExtension(t *testing.T) {
	// --- Arrange ---
	root := t.TempDir()
	for _, name := range []string{"a.hcl", "sub/b.hcl", "sub/c.txt"} {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o600))
	}
	single := filepath.Join(root, "a.hcl")

	// --- Act ---
	files, err := FindFilesByExtension(".hcl", root, single, filepath.Join(root, "missing"))

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{single, filepath.Join(root, "sub", "b.hcl")}, files)
}

func TestFindFilesByExtension_EmptyExtensionPanics(t *testing.T) {
	assert.Panics(t, func() { _, _ = FindFilesByExtension("", t.TempDir()) })
}
