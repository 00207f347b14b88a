package model

const (
	// DefaultCategoryID is the reserved id of the fallback category.
	DefaultCategoryID = "default"
	// DefaultCategoryName is the display name of the fallback category.
	DefaultCategoryName = "New bookmarks"
	// NewCategoryName is the placeholder name given to created categories.
	NewCategoryName = "New category"
)

// Category groups bookmarks. Bookmarks whose URL contains URLPattern are
// classified into the category automatically.
type Category struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	URLPattern string `json:"urlPattern,omitempty"`
}

// NewCategoryParams holds parameters for creating a new Category.
type NewCategoryParams struct {
	Name       string
	URLPattern string
}

// NewCategory creates a Category with a generated UUID.
func NewCategory(params NewCategoryParams) Category {
	name := params.Name
	if name == "" {
		name = NewCategoryName
	}
	return Category{
		ID:         GenerateUUID(),
		Name:       name,
		URLPattern: params.URLPattern,
	}
}

// DefaultCategory returns the always-present fallback category.
func DefaultCategory() Category {
	return Category{ID: DefaultCategoryID, Name: DefaultCategoryName}
}

// IsDefault reports whether c is the default category.
func (c Category) IsDefault() bool {
	return c.ID == DefaultCategoryID
}
