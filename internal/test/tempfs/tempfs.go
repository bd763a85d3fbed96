// Package tempfs creates throwaway directory trees for tests.
package tempfs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WithTempFS materializes files under a temporary root and runs f against
// it. Keys are slash-separated paths relative to the root; intermediate
// directories are created as needed. The root is removed when the test ends.
func WithTempFS(t *testing.T, files map[string]string, f func(t *testing.T, root string)) {
	t.Helper()
	root := t.TempDir()
	for path, content := range files {
		abspath := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(path, "/")))
		if err := os.MkdirAll(filepath.Dir(abspath), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abspath, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	f(t, root)
}
