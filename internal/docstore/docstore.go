// Package docstore stores per-user document collections and replicates them
// as whole collections: every write replaces the complete set atomically.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
)

const (
	// CollectionBookmarks holds one document per bookmark.
	CollectionBookmarks = "bookmarks"
	// CollectionCategories holds one document per non-default category.
	CollectionCategories = "categories"
)

var (
	// ErrMissingUser is returned for calls without a user id.
	ErrMissingUser = errors.New("docstore: user id is required")
	// ErrUnknownCollection is returned for names other than bookmarks and
	// categories.
	ErrUnknownCollection = errors.New("docstore: unknown collection")
	// ErrInvalidDocument wraps documents that fail to decode or validate.
	ErrInvalidDocument = errors.New("docstore: invalid document")
	// ErrSubscriptionClosed is returned by Subscribe on a closed store.
	ErrSubscriptionClosed = errors.New("docstore: subscription closed")
)

// Document is a single JSON entity keyed by its id.
type Document struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// Store is a remote document store holding the bookmarks and categories
// collections of every user.
type Store interface {
	// BulkRead returns every document of the collection in stored order.
	BulkRead(ctx context.Context, userID, collection string) ([]Document, error)

	// BatchReplace deletes every existing document of the collection and
	// writes docs in their place as one atomic operation.
	BatchReplace(ctx context.Context, userID, collection string, docs []Document) error

	// Subscribe calls onChange with the full collection after every change
	// until the subscription is closed or ctx is done.
	Subscribe(ctx context.Context, userID, collection string, onChange func([]Document)) (Subscription, error)

	Close() error
}

// Subscription is a cancellable live stream of collection snapshots.
type Subscription interface {
	Close() error
}

// subscriptionFunc adapts a cancel function to Subscription.
type subscriptionFunc func() error

func (f subscriptionFunc) Close() error { return f() }

func checkTarget(userID, collection string) error {
	if userID == "" {
		return ErrMissingUser
	}
	if collection != CollectionBookmarks && collection != CollectionCategories {
		return ErrUnknownCollection
	}
	return nil
}

func cloneDocuments(docs []Document) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = Document{ID: d.ID, Data: slices.Clone(d.Data)}
	}
	return out
}
