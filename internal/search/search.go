package search

import (
	"fmt"
	"strings"

	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/sahilm/fuzzy"
)

// Mode selects which bookmark fields a filter looks at.
type Mode string

const (
	ModeAll   Mode = "all"
	ModeTitle Mode = "title"
	ModeURL   Mode = "url"
)

// ParseMode converts a user supplied mode name. Empty input means ModeAll.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAll:
		return ModeAll, nil
	case ModeTitle:
		return ModeTitle, nil
	case ModeURL:
		return ModeURL, nil
	default:
		return "", fmt.Errorf("unknown search mode %q (want all, title or url)", s)
	}
}

// SearchResult represents a fuzzy search match.
type SearchResult struct {
	Bookmark       *model.Bookmark
	MatchedIndexes []int
	Score          int
}

// bookmarkTitles implements fuzzy.Source for bookmark slice.
type bookmarkTitles []*model.Bookmark

func (bt bookmarkTitles) String(i int) string {
	return bt[i].Title
}

func (bt bookmarkTitles) Len() int {
	return len(bt)
}

// FuzzySearchBookmarks searches bookmarks by title using fuzzy matching.
// Returns results sorted by match score (best first).
func FuzzySearchBookmarks(bookmarks []model.Bookmark, query string) []SearchResult {
	if query == "" {
		return nil
	}

	source := make(bookmarkTitles, len(bookmarks))
	for i := range bookmarks {
		source[i] = &bookmarks[i]
	}

	matches := fuzzy.FindFrom(query, source)

	results := make([]SearchResult, len(matches))
	for i, m := range matches {
		results[i] = SearchResult{
			Bookmark:       source[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}

	return results
}

// Filter returns the bookmarks whose title and/or URL contain term,
// ignoring case. An empty term matches everything. Order is preserved.
func Filter(bookmarks []model.Bookmark, term string, mode Mode) []model.Bookmark {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return bookmarks
	}

	var result []model.Bookmark
	for _, b := range bookmarks {
		title := strings.Contains(strings.ToLower(b.Title), needle)
		url := strings.Contains(strings.ToLower(b.URL), needle)

		switch {
		case mode == ModeTitle && title,
			mode == ModeURL && url,
			mode != ModeTitle && mode != ModeURL && (title || url):
			result = append(result, b)
		}
	}
	return result
}

// InCategory returns the bookmarks assigned to categoryID.
func InCategory(bookmarks []model.Bookmark, categoryID string) []model.Bookmark {
	var result []model.Bookmark
	for _, b := range bookmarks {
		if b.CategoryID == categoryID {
			result = append(result, b)
		}
	}
	return result
}
