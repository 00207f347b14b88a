// Package dragdrop turns drag gesture endpoints into store mutations.
package dragdrop

import (
	"strings"

	"github.com/nikbrunner/bmsync/internal/model"
)

// CategoryPrefix marks drop targets that stand for a whole category.
const CategoryPrefix = "category-"

// Outcome describes what a drop did.
type Outcome int

const (
	// Ignored means the drop had no recognised target or changed nothing.
	Ignored Outcome = iota
	// Reassigned means the bookmark moved to another category.
	Reassigned
	// Reordered means an item changed position.
	Reordered
	// ReassignedAndReordered means the bookmark moved category and position.
	ReassignedAndReordered
)

func (o Outcome) String() string {
	switch o {
	case Reassigned:
		return "reassigned"
	case Reordered:
		return "reordered"
	case ReassignedAndReordered:
		return "reassigned+reordered"
	default:
		return "ignored"
	}
}

// Mutator is the part of the store a Resolver needs.
type Mutator interface {
	GetBookmarkByID(id string) (model.Bookmark, bool)
	GetCategoryByID(id string) (model.Category, bool)
	ReassignBookmarkCategory(bookmarkID, categoryID string) error
	MoveBookmark(id, targetID string) error
	MoveCategory(id, targetID string) error
}

// Resolver interprets (source, target) pairs produced by a pointer or
// gesture layer.
type Resolver struct {
	store Mutator
}

// NewResolver creates a Resolver acting on store.
func NewResolver(store Mutator) *Resolver {
	return &Resolver{store: store}
}

// CategoryTarget returns the drop target id for a category.
func CategoryTarget(categoryID string) string {
	return CategoryPrefix + categoryID
}

// Drop applies a finished drag of sourceID onto targetID.
//
// A bookmark dropped on "category-<id>" is reassigned to that category.
// A bookmark dropped on another bookmark takes that bookmark's category and
// position. A category dropped on another category is reordered.
// Anything else is ignored.
func (r *Resolver) Drop(sourceID, targetID string) Outcome {
	if sourceID == "" || targetID == "" || sourceID == targetID {
		return Ignored
	}

	if categoryID, ok := strings.CutPrefix(sourceID, CategoryPrefix); ok {
		return r.dropCategory(categoryID, targetID)
	}

	bookmark, ok := r.store.GetBookmarkByID(sourceID)
	if !ok {
		return Ignored
	}

	if categoryID, ok := strings.CutPrefix(targetID, CategoryPrefix); ok {
		if bookmark.CategoryID == categoryID {
			return Ignored
		}
		if err := r.store.ReassignBookmarkCategory(bookmark.ID, categoryID); err != nil {
			return Ignored
		}
		return Reassigned
	}

	target, ok := r.store.GetBookmarkByID(targetID)
	if !ok {
		return Ignored
	}

	outcome := Reordered
	if target.CategoryID != bookmark.CategoryID {
		if err := r.store.ReassignBookmarkCategory(bookmark.ID, target.CategoryID); err != nil {
			return Ignored
		}
		outcome = ReassignedAndReordered
	}
	if err := r.store.MoveBookmark(bookmark.ID, target.ID); err != nil {
		if outcome == ReassignedAndReordered {
			return Reassigned
		}
		return Ignored
	}
	return outcome
}

func (r *Resolver) dropCategory(categoryID, targetID string) Outcome {
	targetCategory, ok := strings.CutPrefix(targetID, CategoryPrefix)
	if !ok {
		return Ignored
	}
	if _, ok := r.store.GetCategoryByID(categoryID); !ok {
		return Ignored
	}
	if err := r.store.MoveCategory(categoryID, targetCategory); err != nil {
		return Ignored
	}
	return Reordered
}
