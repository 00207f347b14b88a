package docstore

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/nikbrunner/bmsync/internal/model"
)

var validate = validator.New()

// bookmarkShape mirrors model.Bookmark with pointers so missing fields can
// be told apart from empty strings.
type bookmarkShape struct {
	ID         *string `json:"id" validate:"required"`
	Title      *string `json:"title" validate:"required"`
	URL        *string `json:"url" validate:"required"`
	CategoryID *string `json:"categoryId" validate:"required"`
}

type categoryShape struct {
	ID         *string `json:"id" validate:"required"`
	Name       *string `json:"name" validate:"required"`
	URLPattern *string `json:"urlPattern"`
}

// EncodeBookmarks converts bookmarks into documents, keeping their order.
func EncodeBookmarks(bookmarks []model.Bookmark) ([]Document, error) {
	docs := make([]Document, 0, len(bookmarks))
	for _, b := range bookmarks {
		if b.ID == "" {
			return nil, fmt.Errorf("%w: bookmark without id", ErrInvalidDocument)
		}
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("marshal bookmark %s: %w", b.ID, err)
		}
		docs = append(docs, Document{ID: b.ID, Data: data})
	}
	return docs, nil
}

// EncodeCategories converts categories into documents. The default category
// is never persisted.
func EncodeCategories(categories []model.Category) ([]Document, error) {
	docs := make([]Document, 0, len(categories))
	for _, c := range categories {
		if c.IsDefault() {
			continue
		}
		if c.ID == "" {
			return nil, fmt.Errorf("%w: category without id", ErrInvalidDocument)
		}
		data, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("marshal category %s: %w", c.ID, err)
		}
		docs = append(docs, Document{ID: c.ID, Data: data})
	}
	return docs, nil
}

// DecodeBookmarks validates and decodes documents. A single malformed
// document fails the whole decode.
func DecodeBookmarks(docs []Document) ([]model.Bookmark, error) {
	bookmarks := make([]model.Bookmark, 0, len(docs))
	for _, d := range docs {
		var shape bookmarkShape
		if err := decodeShape(CollectionBookmarks, d, &shape); err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, model.Bookmark{
			ID:         *shape.ID,
			Title:      *shape.Title,
			URL:        *shape.URL,
			CategoryID: *shape.CategoryID,
		})
	}
	return bookmarks, nil
}

// DecodeCategories validates and decodes documents. A single malformed
// document fails the whole decode.
func DecodeCategories(docs []Document) ([]model.Category, error) {
	categories := make([]model.Category, 0, len(docs))
	for _, d := range docs {
		var shape categoryShape
		if err := decodeShape(CollectionCategories, d, &shape); err != nil {
			return nil, err
		}
		c := model.Category{ID: *shape.ID, Name: *shape.Name}
		if shape.URLPattern != nil {
			c.URLPattern = *shape.URLPattern
		}
		categories = append(categories, c)
	}
	return categories, nil
}

type identified interface {
	docID() *string
}

func (s *bookmarkShape) docID() *string { return s.ID }
func (s *categoryShape) docID() *string { return s.ID }

func decodeShape(collection string, d Document, shape identified) error {
	if err := json.Unmarshal(d.Data, shape); err != nil {
		return fmt.Errorf("%w: %s/%s: %v", ErrInvalidDocument, collection, d.ID, err)
	}
	if err := validate.Struct(shape); err != nil {
		return fmt.Errorf("%w: %s/%s: %v", ErrInvalidDocument, collection, d.ID, err)
	}
	if id := shape.docID(); *id != d.ID {
		return fmt.Errorf("%w: %s/%s: stored under id %q", ErrInvalidDocument, collection, *id, d.ID)
	}
	return nil
}
