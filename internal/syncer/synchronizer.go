// Package syncer keeps a model.Store and a remote document store in step:
// local edits are written back after a quiet period and remote snapshots are
// merged into the store.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/nikbrunner/bmsync/internal/docstore"
	"github.com/nikbrunner/bmsync/internal/logger"
	"github.com/nikbrunner/bmsync/internal/model"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("syncer: closed")

// Options configures a Synchronizer.
type Options struct {
	UserID   string
	Debounce time.Duration
	// Live subscribes to remote changes after Start.
	Live    bool
	Clock   Clock
	Log     logger.Logger
	OnError func(error)
}

// Synchronizer persists a store's local changes and merges remote ones.
type Synchronizer struct {
	store  *model.Store
	remote docstore.Store
	opts   Options
	log    logger.Logger

	debouncer *Debouncer
	writeMu   sync.Mutex

	mu        sync.Mutex
	latest    model.Snapshot
	dirty     bool
	inFlight  bool
	parked    []model.Bookmark
	unobserve func()
	subs      []docstore.Subscription
	ctx       context.Context
	cancel    context.CancelFunc
	closed    bool
}

// New returns a Synchronizer for store and remote. Nothing is read or
// watched until Load and Start are called.
func New(store *model.Store, remote docstore.Store, opts Options) *Synchronizer {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Synchronizer{
		store:  store,
		remote: remote,
		opts:   opts,
		log:    opts.Log.With(logger.String("user", opts.UserID)),
		ctx:    ctx,
		cancel: cancel,
	}
	s.debouncer = NewDebouncer(opts.Debounce, opts.Clock, func() {
		_ = s.flush(s.ctx)
	})
	return s
}

// Load reads both collections once and replaces the store's contents.
// A malformed document fails the whole load and leaves the store untouched.
func (s *Synchronizer) Load(ctx context.Context) error {
	snap, err := s.read(ctx)
	if err != nil {
		s.report(err)
		return err
	}
	s.store.Replace(snap, model.OriginRemote)
	s.log.Debug("loaded",
		logger.Int("categories", len(snap.Categories)),
		logger.Int("bookmarks", len(snap.Bookmarks)))
	return nil
}

func (s *Synchronizer) read(ctx context.Context) (model.Snapshot, error) {
	catDocs, err := s.remote.BulkRead(ctx, s.opts.UserID, docstore.CollectionCategories)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("load categories: %w", err)
	}
	categories, err := docstore.DecodeCategories(catDocs)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("load categories: %w", err)
	}

	bmDocs, err := s.remote.BulkRead(ctx, s.opts.UserID, docstore.CollectionBookmarks)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("load bookmarks: %w", err)
	}
	bookmarks, err := docstore.DecodeBookmarks(bmDocs)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("load bookmarks: %w", err)
	}

	return model.Snapshot{Categories: categories, Bookmarks: bookmarks}, nil
}

// Start begins watching the store for local edits and, when Live is set,
// subscribes to remote changes.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.unobserve = s.store.Subscribe(s.onChange)
	s.mu.Unlock()

	if !s.opts.Live {
		return nil
	}

	bmSub, err := s.remote.Subscribe(ctx, s.opts.UserID, docstore.CollectionBookmarks, s.onRemoteBookmarks)
	if err != nil {
		return fmt.Errorf("subscribe bookmarks: %w", err)
	}
	catSub, err := s.remote.Subscribe(ctx, s.opts.UserID, docstore.CollectionCategories, s.onRemoteCategories)
	if err != nil {
		_ = bmSub.Close()
		return fmt.Errorf("subscribe categories: %w", err)
	}

	s.mu.Lock()
	s.subs = append(s.subs, bmSub, catSub)
	s.mu.Unlock()
	return nil
}

// onChange runs under the store lock.
func (s *Synchronizer) onChange(c model.Change) {
	if c.Origin == model.OriginRemote {
		return
	}
	s.mu.Lock()
	s.latest = c.Snapshot
	s.dirty = true
	s.mu.Unlock()
	s.debouncer.Notify()
}

// Pending reports whether local edits are waiting to be written or are
// being written.
func (s *Synchronizer) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty || s.inFlight
}

// Flush writes pending edits now instead of waiting for the quiet period.
func (s *Synchronizer) Flush(ctx context.Context) error {
	s.debouncer.Cancel()
	return s.flush(ctx)
}

func (s *Synchronizer) flush(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	snap := s.latest
	s.dirty = false
	s.inFlight = true
	s.mu.Unlock()

	err := s.push(ctx, snap)

	s.mu.Lock()
	s.inFlight = false
	if err != nil {
		// Stays pending until the next quiet period or Flush writes s.latest.
		s.dirty = true
	}
	s.mu.Unlock()

	if err != nil {
		s.report(err)
		return err
	}
	s.log.Debug("saved",
		logger.Int("categories", len(snap.Categories)-1),
		logger.Int("bookmarks", len(snap.Bookmarks)))
	return nil
}

// push writes bookmarks first, then categories without the default one.
func (s *Synchronizer) push(ctx context.Context, snap model.Snapshot) error {
	bmDocs, err := docstore.EncodeBookmarks(snap.Bookmarks)
	if err != nil {
		return fmt.Errorf("save bookmarks: %w", err)
	}
	catDocs, err := docstore.EncodeCategories(snap.Categories)
	if err != nil {
		return fmt.Errorf("save categories: %w", err)
	}

	if err := s.remote.BatchReplace(ctx, s.opts.UserID, docstore.CollectionBookmarks, bmDocs); err != nil {
		return fmt.Errorf("save bookmarks: %w", err)
	}
	if err := s.remote.BatchReplace(ctx, s.opts.UserID, docstore.CollectionCategories, catDocs); err != nil {
		return fmt.Errorf("save categories: %w", err)
	}
	return nil
}

// localWins reports whether a remote snapshot must be ignored because a
// local write is pending.
func (s *Synchronizer) localWins() bool {
	return s.Pending() || s.debouncer.Pending()
}

func (s *Synchronizer) onRemoteBookmarks(docs []docstore.Document) {
	if s.localWins() {
		s.log.Debug("skipping remote bookmarks, local edits pending")
		return
	}
	bookmarks, err := docstore.DecodeBookmarks(docs)
	if err != nil {
		s.report(fmt.Errorf("remote bookmarks: %w", err))
		return
	}

	current := s.store.Snapshot()
	if slices.Equal(current.Bookmarks, bookmarks) {
		return
	}

	if !referencesKnown(bookmarks, current.Categories) {
		// Bookmarks are written before categories, so a new category may
		// not be visible yet. Apply what is known now and re-apply the raw
		// bookmarks once categories change.
		catDocs, err := s.remote.BulkRead(s.ctx, s.opts.UserID, docstore.CollectionCategories)
		if err != nil {
			s.report(fmt.Errorf("remote categories: %w", err))
			return
		}
		categories, err := docstore.DecodeCategories(catDocs)
		if err != nil {
			s.report(fmt.Errorf("remote categories: %w", err))
			return
		}
		if !referencesKnown(bookmarks, categories) {
			s.mu.Lock()
			s.parked = bookmarks
			s.mu.Unlock()
		}
		s.store.Replace(model.Snapshot{Categories: categories, Bookmarks: bookmarks}, model.OriginRemote)
		return
	}

	s.mu.Lock()
	s.parked = nil
	s.mu.Unlock()
	s.store.ReplaceBookmarks(bookmarks)
}

func (s *Synchronizer) onRemoteCategories(docs []docstore.Document) {
	if s.localWins() {
		s.log.Debug("skipping remote categories, local edits pending")
		return
	}
	categories, err := docstore.DecodeCategories(docs)
	if err != nil {
		s.report(fmt.Errorf("remote categories: %w", err))
		return
	}

	s.mu.Lock()
	parked := s.parked
	s.parked = nil
	s.mu.Unlock()

	if parked != nil {
		s.store.Replace(model.Snapshot{Categories: categories, Bookmarks: parked}, model.OriginRemote)
		return
	}

	current := s.store.Categories()
	if slices.Equal(current[1:], categories) {
		return
	}
	s.store.ReplaceCategories(categories)
}

func referencesKnown(bookmarks []model.Bookmark, categories []model.Category) bool {
	known := make(map[string]bool, len(categories)+1)
	known[model.DefaultCategoryID] = true
	for _, c := range categories {
		known[c.ID] = true
	}
	for _, b := range bookmarks {
		if !known[b.CategoryID] {
			return false
		}
	}
	return true
}

func (s *Synchronizer) report(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	s.log.Error("sync failed", logger.Error(err))
	if s.opts.OnError != nil {
		s.opts.OnError(err)
	}
}

// Close stops watching and cancels any scheduled write without running it.
func (s *Synchronizer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	unobserve := s.unobserve
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	s.debouncer.Stop()
	if unobserve != nil {
		unobserve()
	}

	var errs []error
	for _, sub := range subs {
		if err := sub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.cancel()
	return errors.Join(errs...)
}
