// Package file implements the key-value snapshot store on the local
// filesystem: one JSON file per key under a data directory. It is the
// default backend and needs no external services.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/drolelabs/drole/internal/domain"
)

// Store persists each key as a file named after the sanitized key.
type Store struct {
	dir string
}

// New creates the data directory if needed and returns a Store over it.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("file: data directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("file: creating data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Get reads the value stored under key. Absent keys map to
// domain.ErrNotFound.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("file: get %q: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("file: get %q: %w", key, err)
	}
	return data, nil
}

// Set writes the value under key atomically: write to a temp file in the
// same directory, then rename over the target.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	target := s.path(key)

	tmp, err := os.CreateTemp(s.dir, filepath.Base(target)+".tmp-*")
	if err != nil {
		return fmt.Errorf("file: set %q: %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("file: set %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file: set %q: %w", key, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file: set %q: %w", key, err)
	}
	return nil
}

// Close is a no-op; the store holds no open handles between calls.
func (s *Store) Close() error { return nil }

// path maps a key like "drole:user:v1" onto a filename in the data dir.
func (s *Store) path(key string) string {
	name := strings.NewReplacer(":", "_", "/", "_", "\\", "_").Replace(key)
	return filepath.Join(s.dir, name+".json")
}

// Compile-time interface check.
var _ domain.KVStore = (*Store)(nil)
