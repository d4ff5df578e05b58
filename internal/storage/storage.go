// Package storage persists attachment bytes in an upload directory.
//
// The session store owns attachment lifecycles; this package only moves bytes
// by server-assigned filename. Filenames never contain path separators, so a
// stored file can always be released by the name the session recorded.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store reads and writes attachment bytes under a base directory.
type Store struct {
	dir string
}

// New creates the upload directory if needed and returns a Store rooted there.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the base directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes data under the given filename, replacing any previous file.
func (s *Store) Save(filename string, data []byte) error {
	path, err := s.path(filename)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("saving %s: %w", filename, err)
	}
	return nil
}

// Read returns the stored bytes. Missing files surface as os.ErrNotExist so
// callers can recognize and skip them.
func (s *Store) Read(filename string) ([]byte, error) {
	path, err := s.path(filename)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Delete removes the stored file. Deleting a missing file is not an error.
func (s *Store) Delete(filename string) error {
	path, err := s.path(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting %s: %w", filename, err)
	}
	return nil
}

// path resolves a filename inside the base directory, rejecting names that
// would escape it.
func (s *Store) path(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	return filepath.Join(s.dir, filename), nil
}
