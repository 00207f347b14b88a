package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/peterbourgon/diskv/v3"

	"github.com/nikbrunner/bmsync/internal/model"
)

const (
	keyBookmarks  = "bookmarks"
	keyCategories = "categories"
)

// KVStorage keeps bookmarks and categories under two fixed keys of a diskv
// store. The default category is not stored.
type KVStorage struct {
	d        *diskv.Diskv
	basePath string
}

func NewKVStorage(basePath string) *KVStorage {
	return &KVStorage{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			CacheSizeMax: 1024 * 1024,
		}),
		basePath: basePath,
	}
}

// Path returns the storage directory.
func (s *KVStorage) Path() string {
	return s.basePath
}

func (s *KVStorage) Load() (*model.Snapshot, error) {
	snap := model.Snapshot{}.Clone()
	if err := s.read(keyCategories, &snap.Categories); err != nil {
		return nil, err
	}
	if err := s.read(keyBookmarks, &snap.Bookmarks); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *KVStorage) read(key string, v interface{}) error {
	data, err := s.d.Read(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	return nil
}

func (s *KVStorage) Save(snap model.Snapshot) error {
	categories := make([]model.Category, 0, len(snap.Categories))
	for _, c := range snap.Categories {
		if !c.IsDefault() {
			categories = append(categories, c)
		}
	}
	if err := s.write(keyCategories, categories); err != nil {
		return err
	}
	bookmarks := snap.Bookmarks
	if bookmarks == nil {
		bookmarks = []model.Bookmark{}
	}
	return s.write(keyBookmarks, bookmarks)
}

func (s *KVStorage) write(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.d.Write(key, data)
}
