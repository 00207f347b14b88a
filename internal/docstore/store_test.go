package docstore_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/nikbrunner/bmsync/internal/docstore"
)

func doc(id, title string) docstore.Document {
	data, _ := json.Marshal(map[string]string{
		"id": id, "title": title, "url": "https://" + id + ".example", "categoryId": "default",
	})
	return docstore.Document{ID: id, Data: data}
}

func ids(docs []docstore.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

// exerciseStore runs the behaviour every backend shares.
func exerciseStore(t *testing.T, s docstore.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty collection", func(t *testing.T) {
		docs, err := s.BulkRead(ctx, "alice", docstore.CollectionBookmarks)
		assert.NilError(t, err)
		assert.Equal(t, len(docs), 0)
	})

	t.Run("replace keeps order", func(t *testing.T) {
		in := []docstore.Document{doc("c", "C"), doc("a", "A"), doc("b", "B")}
		assert.NilError(t, s.BatchReplace(ctx, "alice", docstore.CollectionBookmarks, in))

		got, err := s.BulkRead(ctx, "alice", docstore.CollectionBookmarks)
		assert.NilError(t, err)
		assert.DeepEqual(t, ids(got), []string{"c", "a", "b"})
		assert.Equal(t, string(got[1].Data), string(in[1].Data))
	})

	t.Run("replace drops missing documents", func(t *testing.T) {
		assert.NilError(t, s.BatchReplace(ctx, "alice", docstore.CollectionBookmarks, []docstore.Document{doc("b", "B")}))
		got, err := s.BulkRead(ctx, "alice", docstore.CollectionBookmarks)
		assert.NilError(t, err)
		assert.DeepEqual(t, ids(got), []string{"b"})
	})

	t.Run("replace with nothing empties", func(t *testing.T) {
		assert.NilError(t, s.BatchReplace(ctx, "alice", docstore.CollectionBookmarks, nil))
		got, err := s.BulkRead(ctx, "alice", docstore.CollectionBookmarks)
		assert.NilError(t, err)
		assert.Equal(t, len(got), 0)
	})

	t.Run("users and collections are isolated", func(t *testing.T) {
		assert.NilError(t, s.BatchReplace(ctx, "alice", docstore.CollectionBookmarks, []docstore.Document{doc("x", "X")}))
		assert.NilError(t, s.BatchReplace(ctx, "bob", docstore.CollectionBookmarks, []docstore.Document{doc("y", "Y")}))

		got, err := s.BulkRead(ctx, "bob", docstore.CollectionBookmarks)
		assert.NilError(t, err)
		assert.DeepEqual(t, ids(got), []string{"y"})

		got, err = s.BulkRead(ctx, "alice", docstore.CollectionCategories)
		assert.NilError(t, err)
		assert.Equal(t, len(got), 0)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := s.BulkRead(ctx, "", docstore.CollectionBookmarks)
		assert.Assert(t, errors.Is(err, docstore.ErrMissingUser))
		err = s.BatchReplace(ctx, "", docstore.CollectionBookmarks, nil)
		assert.Assert(t, errors.Is(err, docstore.ErrMissingUser))
	})

	t.Run("unknown collection", func(t *testing.T) {
		_, err := s.BulkRead(ctx, "alice", "tags")
		assert.Assert(t, errors.Is(err, docstore.ErrUnknownCollection))
	})

	t.Run("subscription sees writes", func(t *testing.T) {
		received := make(chan []docstore.Document, 8)
		sub, err := s.Subscribe(ctx, "carol", docstore.CollectionCategories, func(docs []docstore.Document) {
			received <- docs
		})
		assert.NilError(t, err)

		assert.NilError(t, s.BatchReplace(ctx, "carol", docstore.CollectionCategories, []docstore.Document{doc("k", "K")}))

		select {
		case docs := <-received:
			assert.DeepEqual(t, ids(docs), []string{"k"})
		case <-time.After(5 * time.Second):
			t.Fatal("no change delivered")
		}

		assert.NilError(t, sub.Close())
		assert.NilError(t, sub.Close())
	})
}
