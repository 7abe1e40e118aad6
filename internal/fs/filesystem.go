// Package fs resolves local input paths and filters archive entries.
package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotRegular is returned for inputs that are not regular files.
var ErrNotRegular = errors.New("not a regular file")

// ResolveArchive turns a raw command-line path into an absolute path to a
// readable regular file.
func ResolveArchive(rawPath string) (string, fs.FileInfo, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Lstat(absPath)
	if err != nil {
		return "", nil, fmt.Errorf("stat path: %w", err)
	}

	mode := info.Mode()
	switch {
	case mode.IsDir():
		return "", nil, fmt.Errorf("%w: %s is a directory", ErrNotRegular, absPath)
	case mode&os.ModeSymlink != 0:
		return "", nil, fmt.Errorf("%w: symlinks not supported: %s", ErrNotRegular, absPath)
	case !mode.IsRegular():
		return "", nil, fmt.Errorf("%w: %s (%s)", ErrNotRegular, absPath, mode.Type())
	}

	return absPath, info, nil
}
