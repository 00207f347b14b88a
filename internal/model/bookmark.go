package model

// Bookmark represents a saved URL assigned to a category.
type Bookmark struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	CategoryID string `json:"categoryId"`
}

// NewBookmarkParams holds parameters for creating a new Bookmark.
type NewBookmarkParams struct {
	Title      string
	URL        string
	CategoryID string
}

// NewBookmark creates a Bookmark with a generated UUID.
// An empty CategoryID is placed in the default category.
func NewBookmark(params NewBookmarkParams) Bookmark {
	categoryID := params.CategoryID
	if categoryID == "" {
		categoryID = DefaultCategoryID
	}

	return Bookmark{
		ID:         GenerateUUID(),
		Title:      params.Title,
		URL:        params.URL,
		CategoryID: categoryID,
	}
}
