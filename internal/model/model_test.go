package model_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nikbrunner/bmsync/internal/model"
)

// testStore creates a store with two categories and three bookmarks.
func testStore() *model.Store {
	return model.NewStoreFrom(model.Snapshot{
		Categories: []model.Category{
			{ID: "c1", Name: "Bolt", URLPattern: "bolt.new"},
			{ID: "c2", Name: "Docs"},
		},
		Bookmarks: []model.Bookmark{
			{ID: "b1", Title: "Bolt project", URL: "https://bolt.new/~/x", CategoryID: "c1"},
			{ID: "b2", Title: "Go docs", URL: "https://go.dev/doc", CategoryID: "c2"},
			{ID: "b3", Title: "Hacker News", URL: "https://news.ycombinator.com", CategoryID: model.DefaultCategoryID},
		},
	})
}

// assertNoDanglingReferences checks that every bookmark points at an
// existing category.
func assertNoDanglingReferences(t *testing.T, store *model.Store) {
	t.Helper()
	snap := store.Snapshot()
	known := make(map[string]bool)
	for _, c := range snap.Categories {
		known[c.ID] = true
	}
	for _, b := range snap.Bookmarks {
		if !known[b.CategoryID] {
			t.Errorf("bookmark %s references missing category %q", b.ID, b.CategoryID)
		}
	}
}

func TestBookmark_JSONSerialization(t *testing.T) {
	b := model.Bookmark{ID: "b1", Title: "TanStack Router", URL: "https://tanstack.com/router", CategoryID: "c1"}

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if !strings.Contains(string(data), `"categoryId":"c1"`) {
		t.Errorf("expected categoryId key, got %s", data)
	}

	var got model.Bookmark
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if got != b {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, b)
	}
}

func TestCategory_JSONOmitsEmptyPattern(t *testing.T) {
	data, err := json.Marshal(model.Category{ID: "c1", Name: "Docs"})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if strings.Contains(string(data), "urlPattern") {
		t.Errorf("expected urlPattern to be omitted, got %s", data)
	}
}

func TestClassify(t *testing.T) {
	categories := []model.Category{
		model.DefaultCategory(),
		{ID: "c1", Name: "Bolt", URLPattern: "bolt.new"},
		{ID: "c2", Name: "Empty"},
		{ID: "c3", Name: "Also bolt", URLPattern: "bolt"},
	}

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"matches pattern", "https://bolt.new/~/x", "c1"},
		{"first match wins", "https://bolt.new/~/github.com/a/b", "c1"},
		{"later pattern", "https://boltzmann.example", "c3"},
		{"no match", "https://other.com", model.DefaultCategoryID},
		{"empty url", "", model.DefaultCategoryID},
		{"malformed url", "http://[::1", model.DefaultCategoryID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := model.Classify(tt.url, categories); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestClassify_SingleCategory(t *testing.T) {
	categories := []model.Category{{ID: "c1", URLPattern: "bolt.new"}}

	if got := model.Classify("https://bolt.new/~/x", categories); got != "c1" {
		t.Errorf("expected c1, got %q", got)
	}
	if got := model.Classify("https://other.com", categories); got != model.DefaultCategoryID {
		t.Errorf("expected default, got %q", got)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"example.com", "https://example.com"},
		{"  example.com/path  ", "https://example.com/path"},
		{"http://example.com", "http://example.com"},
		{"https://example.com", "https://example.com"},
		{"ftp://files.example.com", "ftp://files.example.com"},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := model.NormalizeURL(tt.in); got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewStore_HasDefaultCategory(t *testing.T) {
	store := model.NewStore()

	categories := store.Categories()
	if len(categories) != 1 || !categories[0].IsDefault() {
		t.Fatalf("expected only the default category, got %+v", categories)
	}
	if store.Selected() != model.DefaultCategoryID {
		t.Errorf("expected default selection, got %q", store.Selected())
	}
}

func TestNewStoreFrom_RepairsSnapshot(t *testing.T) {
	store := model.NewStoreFrom(model.Snapshot{
		Categories: []model.Category{
			{ID: "c1", Name: "First"},
			{ID: model.DefaultCategoryID, Name: "Renamed remotely", URLPattern: "x"},
		},
		Bookmarks: []model.Bookmark{
			{ID: "b1", URL: "https://a.com", CategoryID: "missing"},
		},
	})

	categories := store.Categories()
	if len(categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(categories))
	}
	if categories[0] != model.DefaultCategory() {
		t.Errorf("expected pristine default category first, got %+v", categories[0])
	}
	b, _ := store.GetBookmarkByID("b1")
	if b.CategoryID != model.DefaultCategoryID {
		t.Errorf("expected dangling reference repaired, got %q", b.CategoryID)
	}
}

func TestStore_AddBookmark(t *testing.T) {
	store := testStore()

	b, err := store.AddBookmark("  New Bolt  ", "bolt.new/~/y")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.URL != "https://bolt.new/~/y" {
		t.Errorf("expected normalized url, got %q", b.URL)
	}
	if b.Title != "New Bolt" {
		t.Errorf("expected trimmed title, got %q", b.Title)
	}
	if b.CategoryID != "c1" {
		t.Errorf("expected classification into c1, got %q", b.CategoryID)
	}
	if b.ID == "" {
		t.Error("expected generated id")
	}

	bookmarks := store.Bookmarks()
	if bookmarks[len(bookmarks)-1].ID != b.ID {
		t.Error("expected bookmark appended at the end")
	}
}

func TestStore_AddBookmark_UniqueIDs(t *testing.T) {
	store := model.NewStore()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		b, err := store.AddBookmark("x", "example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[b.ID] {
			t.Fatalf("duplicate id %s", b.ID)
		}
		seen[b.ID] = true
	}
}

func TestStore_AddBookmark_EmptyURL(t *testing.T) {
	store := model.NewStore()

	if _, err := store.AddBookmark("title", "   "); !errors.Is(err, model.ErrEmptyURL) {
		t.Errorf("expected ErrEmptyURL, got %v", err)
	}
	if len(store.Bookmarks()) != 0 {
		t.Error("expected no bookmark to be added")
	}
}

func TestStore_AddBookmark_Rewriter(t *testing.T) {
	store := model.NewStore(model.WithRewriter(func(u string) string {
		return strings.Replace(u, "github.com", "bolt.new/~/github.com", 1)
	}))

	b, err := store.AddBookmark("repo", "github.com/a/b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.URL != "https://bolt.new/~/github.com/a/b" {
		t.Errorf("expected rewritten url, got %q", b.URL)
	}
}

func TestStore_HasBookmarkURL_Rewritten(t *testing.T) {
	store := model.NewStore(model.WithRewriter(func(u string) string {
		return strings.Replace(u, "github.com", "bolt.new/~/github.com", 1)
	}))
	if _, err := store.AddBookmark("repo", "github.com/a/b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !store.HasBookmarkURL("https://github.com/a/b") {
		t.Error("expected the original url to match its rewritten bookmark")
	}
	if store.HasBookmarkURL("github.com/a/c") {
		t.Error("expected no match for another repo")
	}
	if got := store.StoredURL("github.com/a/b"); got != "https://bolt.new/~/github.com/a/b" {
		t.Errorf("StoredURL = %q", got)
	}
}

func TestStore_DeleteBookmark(t *testing.T) {
	store := testStore()

	if err := store.DeleteBookmark("b2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.GetBookmarkByID("b2"); ok {
		t.Error("expected b2 to be removed")
	}

	if err := store.DeleteBookmark("nonexistent"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if len(store.Bookmarks()) != 2 {
		t.Errorf("expected 2 bookmarks, got %d", len(store.Bookmarks()))
	}
}

func TestStore_AddCategory(t *testing.T) {
	store := testStore()

	c := store.AddCategory()
	if c.Name != model.NewCategoryName {
		t.Errorf("expected placeholder name, got %q", c.Name)
	}
	if c.URLPattern != "" {
		t.Errorf("expected no pattern, got %q", c.URLPattern)
	}

	categories := store.Categories()
	if categories[len(categories)-1].ID != c.ID {
		t.Error("expected category appended at the end")
	}
}

func TestStore_DeleteCategory_MovesMembersToDefault(t *testing.T) {
	store := testStore()
	if _, err := store.AddBookmark("another bolt", "https://bolt.new/~/z"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	members := len(store.GetBookmarksInCategory("c1"))
	if members != 2 {
		t.Fatalf("expected 2 members in c1, got %d", members)
	}
	defaultsBefore := len(store.GetBookmarksInCategory(model.DefaultCategoryID))
	total := len(store.Bookmarks())

	if err := store.DeleteCategory("c1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := store.GetCategoryByID("c1"); ok {
		t.Error("expected c1 to be removed")
	}
	if got := len(store.GetBookmarksInCategory(model.DefaultCategoryID)); got != defaultsBefore+members {
		t.Errorf("expected %d bookmarks in default, got %d", defaultsBefore+members, got)
	}
	if len(store.Bookmarks()) != total {
		t.Errorf("expected bookmark count unchanged at %d, got %d", total, len(store.Bookmarks()))
	}
	assertNoDanglingReferences(t, store)
}

func TestStore_DeleteCategory_ResetsSelection(t *testing.T) {
	store := testStore()
	if err := store.Select("c2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.DeleteCategory("c2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Selected() != model.DefaultCategoryID {
		t.Errorf("expected selection reset to default, got %q", store.Selected())
	}
}

func TestStore_DefaultCategoryIsProtected(t *testing.T) {
	store := testStore()
	before := store.Snapshot()

	if err := store.DeleteCategory(model.DefaultCategoryID); !errors.Is(err, model.ErrDefaultCategory) {
		t.Errorf("delete: expected ErrDefaultCategory, got %v", err)
	}
	if err := store.RenameCategory(model.DefaultCategoryID, "Inbox"); !errors.Is(err, model.ErrDefaultCategory) {
		t.Errorf("rename: expected ErrDefaultCategory, got %v", err)
	}
	if err := store.UpdateCategoryURLPattern(model.DefaultCategoryID, "x.com"); !errors.Is(err, model.ErrDefaultCategory) {
		t.Errorf("pattern: expected ErrDefaultCategory, got %v", err)
	}
	if err := store.MoveCategory(model.DefaultCategoryID, "c2"); !errors.Is(err, model.ErrDefaultCategory) {
		t.Errorf("move: expected ErrDefaultCategory, got %v", err)
	}

	after := store.Snapshot()
	if after.Categories[0] != before.Categories[0] || len(after.Categories) != len(before.Categories) {
		t.Error("expected categories unchanged")
	}
}

func TestStore_RenameCategory(t *testing.T) {
	store := testStore()

	if err := store.RenameCategory("c2", "  Reference  "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, _ := store.GetCategoryByID("c2")
	if c.Name != "Reference" {
		t.Errorf("expected trimmed name, got %q", c.Name)
	}

	if err := store.RenameCategory("c2", "   "); !errors.Is(err, model.ErrEmptyName) {
		t.Errorf("expected ErrEmptyName, got %v", err)
	}
	c, _ = store.GetCategoryByID("c2")
	if c.Name != "Reference" {
		t.Errorf("expected name unchanged, got %q", c.Name)
	}

	if err := store.RenameCategory("missing", "x"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_UpdateCategoryURLPattern_ReclassifiesAll(t *testing.T) {
	store := model.NewStoreFrom(model.Snapshot{
		Categories: []model.Category{
			{ID: "catA", Name: "A"},
			{ID: "catB", Name: "B"},
		},
		Bookmarks: []model.Bookmark{
			{ID: "b1", URL: "https://bolt.new/~/one", CategoryID: "catB"},
			{ID: "b2", URL: "https://bolt.new/~/two", CategoryID: model.DefaultCategoryID},
			{ID: "b3", URL: "https://other.com", CategoryID: "catB"},
		},
	})

	if err := store.UpdateCategoryURLPattern("catA", "bolt.new"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, b := range store.Bookmarks() {
		if strings.Contains(b.URL, "bolt.new") && b.CategoryID != "catA" {
			t.Errorf("bookmark %s: expected catA, got %q", b.ID, b.CategoryID)
		}
	}
	b3, _ := store.GetBookmarkByID("b3")
	if b3.CategoryID != "catB" {
		t.Errorf("expected non-matching bookmark untouched, got %q", b3.CategoryID)
	}
}

func TestStore_UpdateCategoryURLPattern_DuplicateRejected(t *testing.T) {
	store := testStore()
	if _, err := store.AddBookmark("bolt in docs", "https://bolt.new/~/docs"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.ReassignBookmarkCategory("b1", "c2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := store.Snapshot()

	err := store.UpdateCategoryURLPattern("c2", "bolt.new")
	if !errors.Is(err, model.ErrDuplicatePattern) {
		t.Fatalf("expected ErrDuplicatePattern, got %v", err)
	}

	after := store.Snapshot()
	for i := range before.Categories {
		if before.Categories[i] != after.Categories[i] {
			t.Errorf("category %d changed: %+v -> %+v", i, before.Categories[i], after.Categories[i])
		}
	}
	for i := range before.Bookmarks {
		if before.Bookmarks[i] != after.Bookmarks[i] {
			t.Errorf("bookmark %d changed: %+v -> %+v", i, before.Bookmarks[i], after.Bookmarks[i])
		}
	}
}

func TestStore_UpdateCategoryURLPattern_SamePatternOnSameCategory(t *testing.T) {
	store := testStore()

	if err := store.UpdateCategoryURLPattern("c1", "bolt.new"); err != nil {
		t.Errorf("expected re-setting own pattern to succeed, got %v", err)
	}
}

func TestStore_UpdateCategoryURLPattern_EmptyClears(t *testing.T) {
	store := testStore()

	if err := store.UpdateCategoryURLPattern("c1", "  "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, _ := store.GetCategoryByID("c1")
	if c.URLPattern != "" {
		t.Errorf("expected pattern cleared, got %q", c.URLPattern)
	}
	b2, _ := store.GetBookmarkByID("b2")
	if b2.CategoryID != "c2" {
		t.Errorf("expected bookmarks untouched, got %q", b2.CategoryID)
	}
}

func TestStore_ReassignBookmarkCategory(t *testing.T) {
	store := testStore()

	if err := store.ReassignBookmarkCategory("b3", "c2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := store.GetBookmarkByID("b3")
	if b.CategoryID != "c2" {
		t.Errorf("expected c2, got %q", b.CategoryID)
	}

	if err := store.ReassignBookmarkCategory("b3", "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing category, got %v", err)
	}
	if err := store.ReassignBookmarkCategory("missing", "c2"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing bookmark, got %v", err)
	}
	b, _ = store.GetBookmarkByID("b3")
	if b.CategoryID != "c2" {
		t.Errorf("expected category unchanged after rejected moves, got %q", b.CategoryID)
	}
}

func TestStore_MoveBookmark(t *testing.T) {
	store := testStore()

	if err := store.MoveBookmark("b3", "b1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var ids []string
	for _, b := range store.Bookmarks() {
		ids = append(ids, b.ID)
	}
	if strings.Join(ids, ",") != "b3,b1,b2" {
		t.Errorf("unexpected order %v", ids)
	}
}

func TestStore_MoveCategory(t *testing.T) {
	store := testStore()

	if err := store.MoveCategory("c2", "c1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	categories := store.Categories()
	if !categories[0].IsDefault() || categories[1].ID != "c2" || categories[2].ID != "c1" {
		t.Errorf("unexpected order %+v", categories)
	}
}

func TestStore_NoDanglingReferencesAfterSequence(t *testing.T) {
	store := testStore()

	c := store.AddCategory()
	if err := store.UpdateCategoryURLPattern(c.ID, "example"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.AddBookmark("ex", "example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = store.RenameCategory(c.ID, "Examples")
	_ = store.DeleteBookmark("b1")
	_ = store.DeleteCategory("c1")
	_ = store.DeleteCategory(c.ID)
	if _, err := store.AddBookmark("later", "bolt.new/~/later"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertNoDanglingReferences(t, store)
}

func TestStore_ImportMerge_SkipsDuplicateURLs(t *testing.T) {
	store := testStore()

	added, skipped := store.ImportMerge(nil, []model.Bookmark{
		{ID: "new1", Title: "Duplicate", URL: "https://go.dev/doc"},
		{ID: "new2", Title: "New Site", URL: "https://newsite.com"},
		{ID: "new3", Title: "Duplicate in batch", URL: "https://newsite.com"},
	})

	if added != 1 {
		t.Errorf("expected 1 added, got %d", added)
	}
	if skipped != 2 {
		t.Errorf("expected 2 skipped, got %d", skipped)
	}
	if len(store.Bookmarks()) != 4 {
		t.Errorf("expected 4 bookmarks, got %d", len(store.Bookmarks()))
	}
}

func TestStore_ImportMerge_ReusesCategoryByName(t *testing.T) {
	store := testStore()

	store.ImportMerge(
		[]model.Category{
			{ID: "imported-docs", Name: "Docs"},
			{ID: "imported-new", Name: "Fresh"},
		},
		[]model.Bookmark{
			{ID: "i1", URL: "https://pkg.go.dev", CategoryID: "imported-docs"},
			{ID: "i2", URL: "https://fresh.example", CategoryID: "imported-new"},
			{ID: "i3", URL: "https://bolt.new/~/imported"},
		},
	)

	if len(store.Categories()) != 4 {
		t.Errorf("expected 4 categories, got %d", len(store.Categories()))
	}
	i1, _ := store.GetBookmarkByID("i1")
	if i1.CategoryID != "c2" {
		t.Errorf("expected bookmark remapped to existing Docs, got %q", i1.CategoryID)
	}
	i2, _ := store.GetBookmarkByID("i2")
	if i2.CategoryID != "imported-new" {
		t.Errorf("expected bookmark in new category, got %q", i2.CategoryID)
	}
	i3, _ := store.GetBookmarkByID("i3")
	if i3.CategoryID != "c1" {
		t.Errorf("expected uncategorized import classified into c1, got %q", i3.CategoryID)
	}
	assertNoDanglingReferences(t, store)
}

func TestStore_ReplaceCategories_KeepsDefaultFirst(t *testing.T) {
	store := testStore()

	store.ReplaceCategories([]model.Category{
		{ID: "c2", Name: "Docs"},
		{ID: model.DefaultCategoryID, Name: "should be dropped"},
	})

	categories := store.Categories()
	if len(categories) != 2 || categories[0] != model.DefaultCategory() || categories[1].ID != "c2" {
		t.Fatalf("unexpected categories %+v", categories)
	}
	b1, _ := store.GetBookmarkByID("b1")
	if b1.CategoryID != model.DefaultCategoryID {
		t.Errorf("expected member of removed c1 moved to default, got %q", b1.CategoryID)
	}
}

func TestStore_Subscribe(t *testing.T) {
	store := testStore()

	var changes []model.Change
	unsubscribe := store.Subscribe(func(c model.Change) {
		changes = append(changes, c)
	})

	if _, err := store.AddBookmark("x", "x.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Snapshots handed to observers are copies
	changes[0].Snapshot.Bookmarks[0].Title = "mutated"
	if b, _ := store.GetBookmarkByID("b1"); b.Title != "Bolt project" {
		t.Errorf("observer snapshot aliases store state: title %q", b.Title)
	}

	_ = store.DeleteBookmark("missing")
	store.ReplaceBookmarks(nil)

	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}
	if changes[0].Origin != model.OriginLocal || len(changes[0].Snapshot.Bookmarks) != 4 {
		t.Errorf("unexpected first change %+v", changes[0])
	}
	if changes[1].Origin != model.OriginRemote || len(changes[1].Snapshot.Bookmarks) != 0 {
		t.Errorf("unexpected second change %+v", changes[1])
	}

	unsubscribe()
	store.AddCategory()
	if len(changes) != 2 {
		t.Errorf("expected no changes after unsubscribe, got %d", len(changes))
	}
}
