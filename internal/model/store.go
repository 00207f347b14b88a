package model

import (
	"slices"
	"strings"
	"sync"
)

// Origin identifies what caused a store change.
type Origin int

const (
	// OriginLocal marks changes made by the user in this session.
	OriginLocal Origin = iota
	// OriginRemote marks changes merged in from the document store.
	OriginRemote
)

func (o Origin) String() string {
	if o == OriginRemote {
		return "remote"
	}
	return "local"
}

// Snapshot is a complete, ordered copy of the collection.
type Snapshot struct {
	Categories []Category `json:"categories"`
	Bookmarks  []Bookmark `json:"bookmarks"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	categories := slices.Clone(s.Categories)
	if categories == nil {
		categories = []Category{}
	}
	bookmarks := slices.Clone(s.Bookmarks)
	if bookmarks == nil {
		bookmarks = []Bookmark{}
	}
	return Snapshot{Categories: categories, Bookmarks: bookmarks}
}

// Change is delivered to observers after every successful mutation.
type Change struct {
	Snapshot Snapshot
	Origin   Origin
}

// Rewriter transforms a normalized URL before it is stored.
type Rewriter func(string) string

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithRewriter applies fn to every URL added through AddBookmark.
func WithRewriter(fn Rewriter) StoreOption {
	return func(s *Store) {
		s.rewrite = fn
	}
}

// Store holds all bookmarks and categories. The default category is always
// the first category. Every mutation replaces the underlying slices, so a
// snapshot handed to observers never changes afterwards.
type Store struct {
	mu         sync.Mutex
	categories []Category
	bookmarks  []Bookmark
	selected   string
	rewrite    Rewriter

	observers    map[int]func(Change)
	nextObserver int
}

// NewStore creates a Store containing only the default category.
func NewStore(opts ...StoreOption) *Store {
	return NewStoreFrom(Snapshot{}, opts...)
}

// NewStoreFrom creates a Store from an existing snapshot. The default
// category is added if missing and dangling category references are moved
// to the default category.
func NewStoreFrom(snap Snapshot, opts ...StoreOption) *Store {
	s := &Store{
		selected:  DefaultCategoryID,
		observers: make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.categories = withDefaultFirst(snap.Categories)
	s.bookmarks = repairReferences(slices.Clone(snap.Bookmarks), s.categories)
	return s
}

// Subscribe registers fn to be called after every change. Observers run
// while the store is locked and must not call back into the store.
// The returned function removes the observer.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// Snapshot returns a copy of the current collection.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Categories returns a copy of all categories in order.
func (s *Store) Categories() []Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.categories)
}

// Bookmarks returns a copy of all bookmarks in order.
func (s *Store) Bookmarks() []Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.bookmarks)
}

// GetCategoryByID finds a category by ID.
func (s *Store) GetCategoryByID(id string) (Category, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.categoryIndex(id); i >= 0 {
		return s.categories[i], true
	}
	return Category{}, false
}

// GetBookmarkByID finds a bookmark by ID.
func (s *Store) GetBookmarkByID(id string) (Bookmark, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.bookmarkIndex(id); i >= 0 {
		return s.bookmarks[i], true
	}
	return Bookmark{}, false
}

// GetBookmarksInCategory returns bookmarks in the given category, in order.
func (s *Store) GetBookmarksInCategory(categoryID string) []Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []Bookmark
	for _, b := range s.bookmarks {
		if b.CategoryID == categoryID {
			result = append(result, b)
		}
	}
	return result
}

// HasBookmarkURL reports whether a bookmark already holds the URL that
// AddBookmark would store for url.
func (s *Store) HasBookmarkURL(url string) bool {
	stored := s.StoredURL(url)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasURL(stored)
}

// StoredURL returns url as AddBookmark stores it: normalized, then rewritten
// when the store has a Rewriter.
func (s *Store) StoredURL(url string) string {
	normalized := NormalizeURL(url)
	if normalized != "" && s.rewrite != nil {
		normalized = s.rewrite(normalized)
	}
	return normalized
}

// Selected returns the id of the category currently shown.
func (s *Store) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Select changes the category currently shown.
func (s *Store) Select(categoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.categoryIndex(categoryID) < 0 {
		return ErrNotFound
	}
	s.selected = categoryID
	return nil
}

// AddBookmark normalizes and classifies url, then appends a new bookmark.
func (s *Store) AddBookmark(title, url string) (Bookmark, error) {
	normalized := s.StoredURL(url)
	if normalized == "" {
		return Bookmark{}, ErrEmptyURL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bookmark := NewBookmark(NewBookmarkParams{
		Title:      strings.TrimSpace(title),
		URL:        normalized,
		CategoryID: Classify(normalized, s.categories),
	})

	s.bookmarks = append(slices.Clone(s.bookmarks), bookmark)
	s.commit(OriginLocal)
	return bookmark, nil
}

// DeleteBookmark removes the bookmark with the given id.
func (s *Store) DeleteBookmark(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.bookmarkIndex(id)
	if i < 0 {
		return ErrNotFound
	}

	s.bookmarks = slices.Delete(slices.Clone(s.bookmarks), i, i+1)
	s.commit(OriginLocal)
	return nil
}

// AddCategory appends an empty category with a placeholder name.
func (s *Store) AddCategory() Category {
	s.mu.Lock()
	defer s.mu.Unlock()

	category := NewCategory(NewCategoryParams{})
	s.categories = append(slices.Clone(s.categories), category)
	s.commit(OriginLocal)
	return category
}

// DeleteCategory moves all members of the category to the default category
// and then removes it. The caller is responsible for confirming the delete.
func (s *Store) DeleteCategory(id string) error {
	if id == DefaultCategoryID {
		return ErrDefaultCategory
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.categoryIndex(id)
	if i < 0 {
		return ErrNotFound
	}

	bookmarks := slices.Clone(s.bookmarks)
	for j := range bookmarks {
		if bookmarks[j].CategoryID == id {
			bookmarks[j].CategoryID = DefaultCategoryID
		}
	}

	s.bookmarks = bookmarks
	s.categories = slices.Delete(slices.Clone(s.categories), i, i+1)
	if s.selected == id {
		s.selected = DefaultCategoryID
	}
	s.commit(OriginLocal)
	return nil
}

// RenameCategory sets the name of a category. Blank names are rejected.
func (s *Store) RenameCategory(id, name string) error {
	if id == DefaultCategoryID {
		return ErrDefaultCategory
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.categoryIndex(id)
	if i < 0 {
		return ErrNotFound
	}
	if s.categories[i].Name == name {
		return nil
	}

	categories := slices.Clone(s.categories)
	categories[i].Name = name
	s.categories = categories
	s.commit(OriginLocal)
	return nil
}

// UpdateCategoryURLPattern sets the URL pattern of a category and moves every
// bookmark whose URL contains the pattern into it. A pattern already used by
// another category is rejected without changing anything. An empty pattern
// clears the pattern and leaves bookmarks where they are.
func (s *Store) UpdateCategoryURLPattern(id, pattern string) error {
	if id == DefaultCategoryID {
		return ErrDefaultCategory
	}
	pattern = strings.TrimSpace(pattern)

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.categoryIndex(id)
	if i < 0 {
		return ErrNotFound
	}

	if pattern != "" {
		for _, c := range s.categories {
			if c.ID != id && !c.IsDefault() && c.URLPattern == pattern {
				return ErrDuplicatePattern
			}
		}
	}

	categories := slices.Clone(s.categories)
	categories[i].URLPattern = pattern
	s.categories = categories

	if pattern != "" {
		bookmarks := slices.Clone(s.bookmarks)
		for j := range bookmarks {
			if strings.Contains(bookmarks[j].URL, pattern) {
				bookmarks[j].CategoryID = id
			}
		}
		s.bookmarks = bookmarks
	}

	s.commit(OriginLocal)
	return nil
}

// ReassignBookmarkCategory moves a bookmark into another category.
func (s *Store) ReassignBookmarkCategory(bookmarkID, categoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.bookmarkIndex(bookmarkID)
	if i < 0 || s.categoryIndex(categoryID) < 0 {
		return ErrNotFound
	}
	if s.bookmarks[i].CategoryID == categoryID {
		return nil
	}

	bookmarks := slices.Clone(s.bookmarks)
	bookmarks[i].CategoryID = categoryID
	s.bookmarks = bookmarks
	s.commit(OriginLocal)
	return nil
}

// MoveBookmark moves a bookmark to the position currently held by targetID.
func (s *Store) MoveBookmark(id, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, to := s.bookmarkIndex(id), s.bookmarkIndex(targetID)
	if from < 0 || to < 0 {
		return ErrNotFound
	}
	if from == to {
		return nil
	}

	s.bookmarks = arrayMove(s.bookmarks, from, to)
	s.commit(OriginLocal)
	return nil
}

// MoveCategory moves a category to the position currently held by targetID.
// The default category always stays first.
func (s *Store) MoveCategory(id, targetID string) error {
	if id == DefaultCategoryID || targetID == DefaultCategoryID {
		return ErrDefaultCategory
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	from, to := s.categoryIndex(id), s.categoryIndex(targetID)
	if from < 0 || to < 0 {
		return ErrNotFound
	}
	if from == to {
		return nil
	}

	s.categories = arrayMove(s.categories, from, to)
	s.commit(OriginLocal)
	return nil
}

// ImportMerge adds imported categories and bookmarks to the store.
// Categories are matched to existing ones by name, bookmarks whose URL is
// already present are skipped, and bookmarks without a category are
// classified. Returns the number of bookmarks added and skipped.
func (s *Store) ImportMerge(categories []Category, bookmarks []Bookmark) (added, skipped int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mergedCategories := slices.Clone(s.categories)
	idMap := make(map[string]string, len(categories))
	for _, imported := range categories {
		if imported.IsDefault() || imported.Name == DefaultCategoryName {
			idMap[imported.ID] = DefaultCategoryID
			continue
		}
		if existing := findCategoryByName(mergedCategories, imported.Name); existing != "" {
			idMap[imported.ID] = existing
			continue
		}
		if imported.URLPattern != "" && patternInUse(mergedCategories, imported.URLPattern) {
			imported.URLPattern = ""
		}
		mergedCategories = append(mergedCategories, imported)
		idMap[imported.ID] = imported.ID
	}

	mergedBookmarks := slices.Clone(s.bookmarks)
	seen := make(map[string]bool, len(mergedBookmarks))
	for _, b := range mergedBookmarks {
		seen[b.URL] = true
	}

	for _, b := range bookmarks {
		if seen[b.URL] {
			skipped++
			continue
		}
		seen[b.URL] = true

		if mapped, ok := idMap[b.CategoryID]; ok {
			b.CategoryID = mapped
		} else {
			b.CategoryID = Classify(b.URL, mergedCategories)
		}
		mergedBookmarks = append(mergedBookmarks, b)
		added++
	}

	changed := added > 0 || len(mergedCategories) != len(s.categories)
	s.categories = mergedCategories
	s.bookmarks = repairReferences(mergedBookmarks, mergedCategories)
	if changed {
		s.commit(OriginLocal)
	}
	return added, skipped
}

// Replace overwrites the whole collection. The local default category is
// kept first, any default category in snap is dropped and dangling category
// references are moved to the default category.
func (s *Store) Replace(snap Snapshot, origin Origin) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.categories = withDefaultFirst(snap.Categories)
	s.bookmarks = repairReferences(slices.Clone(snap.Bookmarks), s.categories)
	s.resetSelection()
	s.commit(origin)
}

// ReplaceBookmarks overwrites all bookmarks with a remote snapshot.
func (s *Store) ReplaceBookmarks(bookmarks []Bookmark) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bookmarks = repairReferences(slices.Clone(bookmarks), s.categories)
	s.commit(OriginRemote)
}

// ReplaceCategories overwrites all categories with a remote snapshot.
func (s *Store) ReplaceCategories(categories []Category) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.categories = withDefaultFirst(categories)
	s.bookmarks = repairReferences(slices.Clone(s.bookmarks), s.categories)
	s.resetSelection()
	s.commit(OriginRemote)
}

func (s *Store) commit(origin Origin) {
	if len(s.observers) == 0 {
		return
	}
	change := Change{Snapshot: s.snapshotLocked(), Origin: origin}
	for _, fn := range s.observers {
		fn(change)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{Categories: s.categories, Bookmarks: s.bookmarks}.Clone()
}

func (s *Store) resetSelection() {
	if s.categoryIndex(s.selected) < 0 {
		s.selected = DefaultCategoryID
	}
}

func (s *Store) hasURL(url string) bool {
	for _, b := range s.bookmarks {
		if b.URL == url {
			return true
		}
	}
	return false
}

func (s *Store) categoryIndex(id string) int {
	return slices.IndexFunc(s.categories, func(c Category) bool { return c.ID == id })
}

func (s *Store) bookmarkIndex(id string) int {
	return slices.IndexFunc(s.bookmarks, func(b Bookmark) bool { return b.ID == id })
}

// withDefaultFirst returns a copy of categories with the default category
// first and any other copy of it removed.
func withDefaultFirst(categories []Category) []Category {
	result := make([]Category, 0, len(categories)+1)
	result = append(result, DefaultCategory())
	for _, c := range categories {
		if c.IsDefault() {
			continue
		}
		result = append(result, c)
	}
	return result
}

// repairReferences moves bookmarks pointing at unknown categories to the
// default category. bookmarks is modified in place.
func repairReferences(bookmarks []Bookmark, categories []Category) []Bookmark {
	if bookmarks == nil {
		return []Bookmark{}
	}
	known := make(map[string]bool, len(categories))
	for _, c := range categories {
		known[c.ID] = true
	}
	for i := range bookmarks {
		if !known[bookmarks[i].CategoryID] {
			bookmarks[i].CategoryID = DefaultCategoryID
		}
	}
	return bookmarks
}

func findCategoryByName(categories []Category, name string) string {
	for _, c := range categories {
		if c.Name == name {
			return c.ID
		}
	}
	return ""
}

func patternInUse(categories []Category, pattern string) bool {
	for _, c := range categories {
		if !c.IsDefault() && c.URLPattern == pattern {
			return true
		}
	}
	return false
}

// arrayMove returns a copy of items with the element at from moved to to.
func arrayMove[T any](items []T, from, to int) []T {
	result := slices.Clone(items)
	item := result[from]
	result = slices.Delete(result, from, from+1)
	return slices.Insert(result, to, item)
}
