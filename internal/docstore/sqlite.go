package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nikbrunner/bmsync/internal/logger"
)

const (
	// DefaultPollInterval is how often SQLite subscriptions check for writes.
	DefaultPollInterval = 2 * time.Second
)

// SQLite keeps every user's collections in one database file. A write bumps
// the collection's revision so pollers in any process notice it.
type SQLite struct {
	db   *sql.DB
	path string
	poll time.Duration
	log  logger.Logger
}

// NewSQLite opens or creates the database at path.
func NewSQLite(path string, poll time.Duration, log logger.Logger) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	if poll <= 0 {
		poll = DefaultPollInterval
	}
	s := &SQLite{db: db, path: path, poll: poll, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	var version int
	if err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		version = 0
	}
	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}
	return nil
}

func (s *SQLite) migrateV1() error {
	schema := `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS documents (
			user_id TEXT NOT NULL,
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			position INTEGER NOT NULL,
			data TEXT NOT NULL,
			PRIMARY KEY (user_id, collection, id)
		);

		CREATE INDEX IF NOT EXISTS idx_documents_position ON documents(user_id, collection, position);

		CREATE TABLE IF NOT EXISTS revisions (
			user_id TEXT NOT NULL,
			collection TEXT NOT NULL,
			revision INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, collection)
		);

		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLite) BulkRead(ctx context.Context, userID, collection string) ([]Document, error) {
	if err := checkTarget(userID, collection); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data
		FROM documents
		WHERE user_id = ? AND collection = ?
		ORDER BY position
	`, userID, collection)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		docs = append(docs, Document{ID: id, Data: json.RawMessage(data)})
	}
	return docs, rows.Err()
}

// BatchReplace swaps the whole collection inside one transaction.
func (s *SQLite) BatchReplace(ctx context.Context, userID, collection string, docs []Document) error {
	if err := checkTarget(userID, collection); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM documents WHERE user_id = ? AND collection = ?",
		userID, collection); err != nil {
		return fmt.Errorf("replace %s: %w", collection, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (user_id, collection, id, position, data)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, d := range docs {
		if _, err := stmt.ExecContext(ctx, userID, collection, d.ID, i, string(d.Data)); err != nil {
			return fmt.Errorf("replace %s: document %s: %w", collection, d.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO revisions (user_id, collection, revision) VALUES (?, ?, 1)
		ON CONFLICT (user_id, collection) DO UPDATE SET revision = revision + 1
	`, userID, collection); err != nil {
		return fmt.Errorf("bump %s revision: %w", collection, err)
	}

	return tx.Commit()
}

func (s *SQLite) revision(ctx context.Context, userID, collection string) (int64, error) {
	var rev int64
	err := s.db.QueryRowContext(ctx,
		"SELECT revision FROM revisions WHERE user_id = ? AND collection = ?",
		userID, collection).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return rev, err
}

// Subscribe polls the collection revision and delivers the collection
// whenever it moves.
func (s *SQLite) Subscribe(ctx context.Context, userID, collection string, onChange func([]Document)) (Subscription, error) {
	if err := checkTarget(userID, collection); err != nil {
		return nil, err
	}

	last, err := s.revision(ctx, userID, collection)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", collection, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()
		for {
			select {
			case <-subCtx.Done():
				return
			case <-ticker.C:
			}

			rev, err := s.revision(subCtx, userID, collection)
			if err != nil {
				if subCtx.Err() == nil {
					s.log.Warn("polling revision", logger.String("collection", collection), logger.Error(err))
				}
				continue
			}
			if rev == last {
				continue
			}
			docs, err := s.BulkRead(subCtx, userID, collection)
			if err != nil {
				if subCtx.Err() == nil {
					s.log.Error("reading collection after change", logger.String("collection", collection), logger.Error(err))
				}
				continue
			}
			last = rev
			onChange(docs)
		}
	}()

	var once sync.Once
	return subscriptionFunc(func() error {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
		return nil
	}), nil
}
