// Package storage persists the whole collection on the local disk when no
// remote document store is configured.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nikbrunner/bmsync/internal/logger"
	"github.com/nikbrunner/bmsync/internal/model"
)

const (
	FormatKV   = "kv"
	FormatJSON = "json"
)

// Storage defines the interface for persisting bookmarks.
type Storage interface {
	Load() (*model.Snapshot, error)
	Save(snap model.Snapshot) error
	// Path is the file or directory the collection is kept in.
	Path() string
}

// Open returns the storage for format rooted at path.
func Open(format, path string) (Storage, error) {
	switch format {
	case FormatKV, "":
		return NewKVStorage(path), nil
	case FormatJSON:
		return NewJSONStorage(path), nil
	default:
		return nil, fmt.Errorf("unknown local storage format %q", format)
	}
}

// JSONStorage implements Storage using a JSON file.
type JSONStorage struct {
	path string
}

// NewJSONStorage creates a new JSONStorage with the given file path.
func NewJSONStorage(path string) *JSONStorage {
	return &JSONStorage{path: path}
}

// Path returns the storage file path.
func (s *JSONStorage) Path() string {
	return s.path
}

// Load reads the snapshot from the JSON file.
// Returns an empty snapshot if the file doesn't exist.
func (s *JSONStorage) Load() (*model.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			snap := model.Snapshot{}.Clone()
			return &snap, nil
		}
		return nil, err
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	snap = snap.Clone()
	return &snap, nil
}

// Save writes the snapshot to the JSON file.
// Creates the directory if it doesn't exist.
func (s *JSONStorage) Save(snap model.Snapshot) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0644)
}

// Mirror saves every change of store to s until the returned function is
// called. Saves run synchronously, so a change is on disk before the
// mutating call returns.
func Mirror(store *model.Store, s Storage, log logger.Logger) func() {
	return store.Subscribe(func(c model.Change) {
		if err := s.Save(c.Snapshot); err != nil {
			log.Error("saving bookmarks locally", logger.Error(err))
		}
	})
}
