// Package fsutil provides file system utility functions.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FirstExisting returns the first of the candidate file names that exists as
// a regular file in dir. The boolean is false when none exists.
func FirstExisting(dir string, candidates ...string) (string, bool, error) {
	if len(candidates) == 0 {
		panic("candidates must not be empty")
	}

	for _, name := range candidates {
		path := filepath.Join(dir, name)
		ok, err := IsFile(path)
		if err != nil {
			return "", false, err
		}
		if ok {
			return path, true, nil
		}
	}
	return "", false, nil
}

// IsFile reports whether path exists and is a regular file. A missing path is
// not an error.
func IsFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("error accessing path %s: %w", path, err)
	}
	return info.Mode().IsRegular(), nil
}

// EnsureParentDir creates the directory that will hold path.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}
