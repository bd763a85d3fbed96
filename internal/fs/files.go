package fs

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// WalkFiles walks the tree rooted at root in lexical order, invoking fn for
// every regular file (and symlink to one) with its slash-separated path
// relative to root. Directory entries themselves are not reported.
func WalkFiles(root string, fn func(relpath, abspath string, info os.FileInfo) error) error {
	return filepath.WalkDir(root, func(abspath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, abspath)
		if err != nil {
			return err
		}
		// Stat rather than d.Info so symlinks resolve to their targets.
		info, err := os.Stat(abspath)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		return fn(filepath.ToSlash(rel), abspath, info)
	})
}

// DirExists reports whether the path exists and is a directory, following
// symlinks.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// FileExists reports whether the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Subdirectories returns the names of the immediate subdirectories of dir in
// lexical order. Hidden directories are skipped.
func Subdirectories(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
