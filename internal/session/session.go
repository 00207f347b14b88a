// Package session builds the components one bm invocation needs from its
// configuration and tears them down again.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/nikbrunner/bmsync/internal/auth"
	"github.com/nikbrunner/bmsync/internal/clip"
	"github.com/nikbrunner/bmsync/internal/config"
	"github.com/nikbrunner/bmsync/internal/docstore"
	"github.com/nikbrunner/bmsync/internal/logger"
	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/rewrite"
	"github.com/nikbrunner/bmsync/internal/storage"
	"github.com/nikbrunner/bmsync/internal/syncer"
)

// Options adjusts how a session is opened.
type Options struct {
	// Live subscribes to remote changes. One-shot commands leave it off.
	Live bool
	// OnSyncError is called for every failed load or write.
	OnSyncError func(error)
	Clipboard   clip.Writer
}

// Deps holds everything a command works with.
type Deps struct {
	Config    *config.Config
	Log       logger.Logger
	Store     *model.Store
	Clipboard clip.Writer
	User      *auth.User

	// Local is nil for remote backends.
	Local storage.Storage
	// Remote and Sync are nil for the local backend.
	Remote docstore.Store
	Sync   *syncer.Synchronizer

	closers []func() error
}

// NewAuth returns the identity provider described by cfg.
func NewAuth(cfg *config.Config, log logger.Logger) (*auth.Local, error) {
	return auth.NewLocal(auth.LocalOptions{
		Accounts:   cfg.Auth.Accounts,
		Secret:     cfg.Auth.Secret,
		TTL:        cfg.Auth.TTL,
		SessionDir: cfg.Auth.SessionDir,
		Log:        log,
	})
}

// Open loads the collection from the configured backend. Remote backends
// require a signed-in user.
func Open(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*Deps, error) {
	if log == nil {
		log = logger.Nop()
	}
	d := &Deps{
		Config:    cfg,
		Log:       log,
		Clipboard: opts.Clipboard,
	}
	if d.Clipboard == nil {
		d.Clipboard = clip.System{}
	}

	var storeOpts []model.StoreOption
	if cfg.Rewrite.Bolt {
		storeOpts = append(storeOpts, model.WithRewriter(rewrite.ToBolt))
	}

	if !cfg.Remote() {
		if err := d.openLocal(cfg, storeOpts); err != nil {
			return nil, err
		}
		return d, nil
	}

	if err := d.openRemote(ctx, cfg, opts, storeOpts); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Deps) openLocal(cfg *config.Config, storeOpts []model.StoreOption) error {
	local, err := storage.Open(cfg.Local.Format, cfg.Local.Path)
	if err != nil {
		return err
	}
	snap, err := local.Load()
	if err != nil {
		return fmt.Errorf("load local bookmarks: %w", err)
	}
	d.Local = local
	d.Store = model.NewStoreFrom(*snap, storeOpts...)
	unmirror := storage.Mirror(d.Store, local, d.Log)
	d.closers = append(d.closers, func() error {
		unmirror()
		return nil
	})
	d.Log.Debug("opened local storage",
		logger.String("format", cfg.Local.Format),
		logger.String("path", local.Path()))
	return nil
}

func (d *Deps) openRemote(ctx context.Context, cfg *config.Config, opts Options, storeOpts []model.StoreOption) error {
	provider, err := NewAuth(cfg, d.Log)
	if err != nil {
		return err
	}
	user, err := provider.Require()
	if err != nil {
		return fmt.Errorf("%w (run `bm login`)", err)
	}
	d.User = user

	remote, err := OpenRemote(ctx, cfg, d.Log)
	if err != nil {
		return err
	}
	d.Remote = remote
	d.closers = append(d.closers, remote.Close)

	live := opts.Live && cfg.Sync.Live
	d.Store = model.NewStore(storeOpts...)
	d.Sync = syncer.New(d.Store, remote, syncer.Options{
		UserID:   user.ID,
		Debounce: cfg.Sync.Debounce,
		Live:     live,
		Log:      d.Log,
		OnError:  opts.OnSyncError,
	})
	d.closers = append(d.closers, d.Sync.Close)

	if err := d.Sync.Load(ctx); err != nil {
		return err
	}
	if err := d.Sync.Start(ctx); err != nil {
		return err
	}
	d.Log.Debug("opened remote backend",
		logger.String("backend", cfg.Backend),
		logger.String("user", user.Email),
		logger.Bool("live", live))
	return nil
}

// OpenRemote connects to the document store named by cfg.Backend.
func OpenRemote(ctx context.Context, cfg *config.Config, log logger.Logger) (docstore.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return docstore.NewMemory(), nil
	case config.BackendSQLite:
		db, err := docstore.NewSQLite(cfg.SQLite.Path, cfg.Sync.Poll, log)
		if err != nil {
			return nil, err
		}
		log.Debug("opened sqlite", logger.String("path", db.Path()))
		return db, nil
	case config.BackendRedis:
		client, err := docstore.ConnectRedis(ctx, docstore.RedisOptions{
			Addr:           cfg.Redis.Addr,
			Username:       cfg.Redis.Username,
			Password:       cfg.Redis.Password,
			DB:             cfg.Redis.DB,
			DialTimeout:    cfg.Redis.DialTimeout,
			ReadTimeout:    cfg.Redis.ReadTimeout,
			WriteTimeout:   cfg.Redis.WriteTimeout,
			PoolSize:       cfg.Redis.PoolSize,
			ConnectTimeout: cfg.Redis.ConnectTimeout,
			RetryInterval:  cfg.Redis.RetryInterval,
			MaxWait:        cfg.Redis.MaxWait,
			PingTimeout:    cfg.Redis.PingTimeout,
		}, log)
		if err != nil {
			return nil, err
		}
		return docstore.NewRedis(client, log), nil
	default:
		return nil, fmt.Errorf("backend %q is not a document store", cfg.Backend)
	}
}

// Commit writes pending edits now. Local storage is already up to date.
func (d *Deps) Commit(ctx context.Context) error {
	if d.Sync == nil {
		return nil
	}
	return d.Sync.Flush(ctx)
}

// Close releases everything in reverse order of creation. Pending remote
// writes are dropped; call Commit first to keep them.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
