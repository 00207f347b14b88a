package syncer_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/nikbrunner/bmsync/internal/docstore"
	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/syncer"
)

const user = "u1"

// recordingStore counts writes made through it and can be told to fail.
type recordingStore struct {
	*docstore.Memory

	mu     sync.Mutex
	writes map[string]int
	fail   error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{Memory: docstore.NewMemory(), writes: make(map[string]int)}
}

func (r *recordingStore) BatchReplace(ctx context.Context, userID, collection string, docs []docstore.Document) error {
	r.mu.Lock()
	r.writes[collection]++
	fail := r.fail
	r.mu.Unlock()
	if fail != nil {
		return fail
	}
	return r.Memory.BatchReplace(ctx, userID, collection, docs)
}

func (r *recordingStore) writeCount(collection string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes[collection]
}

func (r *recordingStore) setFail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = err
}

func remoteBookmarks(t *testing.T, s docstore.Store) []model.Bookmark {
	t.Helper()
	docs, err := s.BulkRead(context.Background(), user, docstore.CollectionBookmarks)
	assert.NilError(t, err)
	bookmarks, err := docstore.DecodeBookmarks(docs)
	assert.NilError(t, err)
	return bookmarks
}

func startSync(t *testing.T, store *model.Store, remote docstore.Store, live bool) (*syncer.Synchronizer, *fakeClock, *[]error) {
	t.Helper()
	clock := &fakeClock{}
	var errs []error
	s := syncer.New(store, remote, syncer.Options{
		UserID:   user,
		Debounce: time.Second,
		Live:     live,
		Clock:    clock,
		OnError:  func(err error) { errs = append(errs, err) },
	})
	assert.NilError(t, s.Start(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s, clock, &errs
}

func TestSynchronizer_CoalescesRapidEdits(t *testing.T) {
	remote := newRecordingStore()
	store := model.NewStore()
	_, clock, errs := startSync(t, store, remote, false)

	for _, url := range []string{"a.example", "b.example", "c.example"} {
		_, err := store.AddBookmark("", url)
		assert.NilError(t, err)
		clock.Advance(500 * time.Millisecond)
	}
	assert.Equal(t, remote.writeCount(docstore.CollectionBookmarks), 0)

	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, remote.writeCount(docstore.CollectionBookmarks), 1)
	assert.Equal(t, remote.writeCount(docstore.CollectionCategories), 1)
	assert.Equal(t, len(*errs), 0)

	got := remoteBookmarks(t, remote)
	assert.DeepEqual(t, got, store.Bookmarks())
	assert.Equal(t, got[2].URL, "https://c.example")
}

func TestSynchronizer_DefaultCategoryNotPersisted(t *testing.T) {
	remote := newRecordingStore()
	store := model.NewStore()
	s, _, _ := startSync(t, store, remote, false)

	c := store.AddCategory()
	assert.NilError(t, store.RenameCategory(c.ID, "Docs"))
	assert.NilError(t, s.Flush(context.Background()))

	docs, err := remote.BulkRead(context.Background(), user, docstore.CollectionCategories)
	assert.NilError(t, err)
	categories, err := docstore.DecodeCategories(docs)
	assert.NilError(t, err)
	assert.DeepEqual(t, categories, []model.Category{{ID: c.ID, Name: "Docs"}})
}

func TestSynchronizer_FailureKeepsLocalState(t *testing.T) {
	remote := newRecordingStore()
	store := model.NewStore()
	_, clock, errs := startSync(t, store, remote, false)

	boom := errors.New("unavailable")
	remote.setFail(boom)

	_, err := store.AddBookmark("first", "first.example")
	assert.NilError(t, err)
	clock.Advance(time.Second)

	assert.Equal(t, len(*errs), 1)
	assert.Assert(t, errors.Is((*errs)[0], boom))
	assert.Equal(t, len(store.Bookmarks()), 1)

	clock.Advance(10 * time.Second)
	assert.Equal(t, remote.writeCount(docstore.CollectionBookmarks), 1, "no retry without a new edit")

	remote.setFail(nil)
	_, err = store.AddBookmark("second", "second.example")
	assert.NilError(t, err)
	clock.Advance(time.Second)

	assert.Equal(t, len(*errs), 1)
	assert.Equal(t, len(remoteBookmarks(t, remote)), 2)
}

func TestSynchronizer_LoadRoundTrip(t *testing.T) {
	remote := docstore.NewMemory()

	first := model.NewStore()
	s1, _, _ := startSync(t, first, remote, false)
	c := first.AddCategory()
	assert.NilError(t, first.UpdateCategoryURLPattern(c.ID, "github.com"))
	_, err := first.AddBookmark("repo", "github.com/x/y")
	assert.NilError(t, err)
	_, err = first.AddBookmark("other", "other.example")
	assert.NilError(t, err)
	assert.NilError(t, s1.Flush(context.Background()))

	second := model.NewStore()
	s2 := syncer.New(second, remote, syncer.Options{UserID: user})
	defer s2.Close()
	assert.NilError(t, s2.Load(context.Background()))

	assert.DeepEqual(t, second.Snapshot(), first.Snapshot())
	assert.Equal(t, second.Bookmarks()[0].CategoryID, c.ID)
}

func TestSynchronizer_LoadRejectsInvalidDocument(t *testing.T) {
	ctx := context.Background()
	remote := docstore.NewMemory()
	assert.NilError(t, remote.BatchReplace(ctx, user, docstore.CollectionBookmarks, []docstore.Document{
		{ID: "b1", Data: json.RawMessage(`{"id":"b1","title":"t","categoryId":"default"}`)},
	}))

	store := model.NewStore()
	_, err := store.AddBookmark("keep", "keep.example")
	assert.NilError(t, err)

	var reported error
	s := syncer.New(store, remote, syncer.Options{UserID: user, OnError: func(err error) { reported = err }})
	defer s.Close()

	err = s.Load(ctx)
	assert.Assert(t, errors.Is(err, docstore.ErrInvalidDocument))
	assert.Assert(t, errors.Is(reported, docstore.ErrInvalidDocument))
	assert.Equal(t, store.Bookmarks()[0].Title, "keep")
}

func TestSynchronizer_RemoteChangesMergedNotEchoed(t *testing.T) {
	ctx := context.Background()
	remote := newRecordingStore()
	store := model.NewStore()
	_, clock, _ := startSync(t, store, remote, true)

	var origins []model.Origin
	unsubscribe := store.Subscribe(func(c model.Change) { origins = append(origins, c.Origin) })
	defer unsubscribe()

	catDocs, err := docstore.EncodeCategories([]model.Category{{ID: "c1", Name: "Work", URLPattern: "work."}})
	assert.NilError(t, err)
	assert.NilError(t, remote.Memory.BatchReplace(ctx, user, docstore.CollectionCategories, catDocs))

	bmDocs, err := docstore.EncodeBookmarks([]model.Bookmark{{ID: "b1", Title: "Wiki", URL: "https://work.example", CategoryID: "c1"}})
	assert.NilError(t, err)
	assert.NilError(t, remote.Memory.BatchReplace(ctx, user, docstore.CollectionBookmarks, bmDocs))

	assert.Equal(t, len(store.Categories()), 2)
	assert.Equal(t, store.Categories()[0].ID, model.DefaultCategoryID)
	assert.DeepEqual(t, store.Bookmarks(), []model.Bookmark{{ID: "b1", Title: "Wiki", URL: "https://work.example", CategoryID: "c1"}})
	assert.DeepEqual(t, origins, []model.Origin{model.OriginRemote, model.OriginRemote})

	clock.Advance(time.Minute)
	assert.Equal(t, remote.writeCount(docstore.CollectionBookmarks), 0)
	assert.Equal(t, remote.writeCount(docstore.CollectionCategories), 0)
}

func TestSynchronizer_PendingLocalEditsWin(t *testing.T) {
	ctx := context.Background()
	remote := newRecordingStore()
	store := model.NewStore()
	_, clock, _ := startSync(t, store, remote, true)

	local, err := store.AddBookmark("local", "local.example")
	assert.NilError(t, err)

	bmDocs, err := docstore.EncodeBookmarks([]model.Bookmark{{ID: "r1", Title: "remote", URL: "https://remote.example", CategoryID: "default"}})
	assert.NilError(t, err)
	assert.NilError(t, remote.Memory.BatchReplace(ctx, user, docstore.CollectionBookmarks, bmDocs))

	assert.DeepEqual(t, store.Bookmarks(), []model.Bookmark{local})

	clock.Advance(time.Second)
	assert.DeepEqual(t, remoteBookmarks(t, remote), []model.Bookmark{local})
}

func TestSynchronizer_BookmarksBeforeTheirCategory(t *testing.T) {
	ctx := context.Background()
	remote := docstore.NewMemory()
	store := model.NewStore()
	startSync(t, store, remote, true)

	bookmark := model.Bookmark{ID: "b1", Title: "t", URL: "https://new.example", CategoryID: "c9"}
	bmDocs, err := docstore.EncodeBookmarks([]model.Bookmark{bookmark})
	assert.NilError(t, err)
	assert.NilError(t, remote.BatchReplace(ctx, user, docstore.CollectionBookmarks, bmDocs))

	assert.Equal(t, store.Bookmarks()[0].CategoryID, model.DefaultCategoryID)

	catDocs, err := docstore.EncodeCategories([]model.Category{{ID: "c9", Name: "New"}})
	assert.NilError(t, err)
	assert.NilError(t, remote.BatchReplace(ctx, user, docstore.CollectionCategories, catDocs))

	assert.DeepEqual(t, store.Bookmarks(), []model.Bookmark{bookmark})
}

func TestSynchronizer_CloseDropsPendingWrite(t *testing.T) {
	remote := newRecordingStore()
	store := model.NewStore()
	s, clock, _ := startSync(t, store, remote, false)

	_, err := store.AddBookmark("", "x.example")
	assert.NilError(t, err)
	assert.Assert(t, s.Pending())

	assert.NilError(t, s.Close())
	clock.Advance(time.Minute)

	assert.Equal(t, remote.writeCount(docstore.CollectionBookmarks), 0)
	assert.ErrorIs(t, s.Start(context.Background()), syncer.ErrClosed)
}

func TestSynchronizer_FlushWithoutEditsIsNoop(t *testing.T) {
	remote := newRecordingStore()
	s, _, _ := startSync(t, model.NewStore(), remote, false)

	assert.NilError(t, s.Flush(context.Background()))
	assert.Equal(t, remote.writeCount(docstore.CollectionBookmarks), 0)
}

func TestSynchronizer_FailedWriteStaysPending(t *testing.T) {
	ctx := context.Background()
	remote := newRecordingStore()
	store := model.NewStore()
	s, clock, errs := startSync(t, store, remote, true)

	remote.setFail(errors.New("unavailable"))
	mine, err := store.AddBookmark("mine", "mine.example")
	assert.NilError(t, err)
	clock.Advance(time.Second)
	assert.Equal(t, len(*errs), 1)
	assert.Assert(t, s.Pending())

	// Another session writes straight to the backing store.
	other := model.NewStore()
	theirs, err := other.AddBookmark("theirs", "theirs.example")
	assert.NilError(t, err)
	bmDocs, err := docstore.EncodeBookmarks([]model.Bookmark{theirs})
	assert.NilError(t, err)
	assert.NilError(t, remote.Memory.BatchReplace(ctx, user, docstore.CollectionBookmarks, bmDocs))

	assert.DeepEqual(t, store.Bookmarks(), []model.Bookmark{mine})

	remote.setFail(nil)
	assert.NilError(t, s.Flush(ctx))
	assert.Assert(t, !s.Pending())
	assert.DeepEqual(t, remoteBookmarks(t, remote), []model.Bookmark{mine})
}
