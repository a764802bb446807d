package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists the whole catalog. Save receives definitions in catalog
// order and must replace the previous state.
type Store interface {
	Load() ([]*Definition, error)
	Save(defs []*Definition) error
}

// FileStore keeps the catalog in one JSON file holding an array of
// [name, definition] pairs.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the catalog. A missing file is an empty catalog.
func (s *FileStore) Load() ([]*Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var pairs [][]json.RawMessage
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", s.path, err)
	}

	defs := make([]*Definition, 0, len(pairs))
	for i, pair := range pairs {
		if len(pair) != 2 {
			return nil, fmt.Errorf("catalog %s: entry %d is not a [name, definition] pair", s.path, i)
		}
		var name string
		if err := json.Unmarshal(pair[0], &name); err != nil {
			return nil, fmt.Errorf("catalog %s: entry %d: invalid name: %w", s.path, i, err)
		}
		var def Definition
		if err := json.Unmarshal(pair[1], &def); err != nil {
			return nil, fmt.Errorf("catalog %s: entry %q: %w", s.path, name, err)
		}
		def.Name = name
		defs = append(defs, &def)
	}
	return defs, nil
}

// Save rewrites the file atomically: the JSON is written to a temporary
// file in the same directory and renamed over the old one.
func (s *FileStore) Save(defs []*Definition) error {
	pairs := make([][2]interface{}, len(defs))
	for i, d := range defs {
		pairs[i] = [2]interface{}{d.Name, d}
	}
	data, err := json.MarshalIndent(pairs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary catalog file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to set catalog permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace catalog file: %w", err)
	}
	return nil
}
