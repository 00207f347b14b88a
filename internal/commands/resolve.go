package commands

import (
	"fmt"
	"strings"

	"github.com/nikbrunner/bmsync/internal/model"
)

const shortIDLen = 8

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

// resolveBookmark finds a bookmark by id, unique id prefix or exact URL.
func resolveBookmark(store *model.Store, ref string) (model.Bookmark, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Bookmark{}, fmt.Errorf("empty bookmark reference: %w", model.ErrNotFound)
	}
	if b, ok := store.GetBookmarkByID(ref); ok {
		return b, nil
	}

	var matches []model.Bookmark
	normalized, stored := model.NormalizeURL(ref), store.StoredURL(ref)
	for _, b := range store.Bookmarks() {
		if strings.HasPrefix(b.ID, ref) || b.URL == normalized || b.URL == stored {
			matches = append(matches, b)
		}
	}
	switch len(matches) {
	case 0:
		return model.Bookmark{}, fmt.Errorf("bookmark %q: %w", ref, model.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return model.Bookmark{}, fmt.Errorf("bookmark %q is ambiguous (%d matches)", ref, len(matches))
	}
}

// resolveCategory finds a category by id, unique id prefix or name.
// Names compare case-insensitively.
func resolveCategory(store *model.Store, ref string) (model.Category, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Category{}, fmt.Errorf("empty category reference: %w", model.ErrNotFound)
	}
	if c, ok := store.GetCategoryByID(ref); ok {
		return c, nil
	}

	categories := store.Categories()
	var byName []model.Category
	for _, c := range categories {
		if strings.EqualFold(c.Name, ref) {
			byName = append(byName, c)
		}
	}
	if len(byName) == 1 {
		return byName[0], nil
	}

	var byPrefix []model.Category
	for _, c := range categories {
		if strings.HasPrefix(c.ID, ref) {
			byPrefix = append(byPrefix, c)
		}
	}
	matches := append(byName, byPrefix...)
	switch {
	case len(byName) == 0 && len(byPrefix) == 1:
		return byPrefix[0], nil
	case len(matches) == 0:
		return model.Category{}, fmt.Errorf("category %q: %w", ref, model.ErrNotFound)
	default:
		return model.Category{}, fmt.Errorf("category %q is ambiguous (%d matches)", ref, len(matches))
	}
}

func categoryNames(store *model.Store) map[string]string {
	names := make(map[string]string)
	for _, c := range store.Categories() {
		names[c.ID] = c.Name
	}
	return names
}
