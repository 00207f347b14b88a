package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/nikbrunner/bmsync/internal/logger"
)

// Redis stores each collection as a hash of documents plus a list holding
// their order. Writes publish on the collection's changes channel.
type Redis struct {
	client *redis.Client
	log    logger.Logger
}

// NewRedis wraps a connected client; see ConnectRedis.
func NewRedis(client *redis.Client, log logger.Logger) *Redis {
	return &Redis{client: client, log: log}
}

func (r *Redis) BulkRead(ctx context.Context, userID, collection string) ([]Document, error) {
	if err := checkTarget(userID, collection); err != nil {
		return nil, err
	}

	var order *redis.StringSliceCmd
	var docs *redis.MapStringStringCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		order = pipe.LRange(ctx, OrderKey(userID, collection), 0, -1)
		docs = pipe.HGetAll(ctx, DocsKey(userID, collection))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}

	byID := docs.Val()
	out := make([]Document, 0, len(byID))
	for _, id := range order.Val() {
		data, ok := byID[id]
		if !ok {
			r.log.Warn("document listed in order but missing",
				logger.String("collection", collection),
				logger.String("id", id))
			continue
		}
		out = append(out, Document{ID: id, Data: json.RawMessage(data)})
	}
	return out, nil
}

func (r *Redis) BatchReplace(ctx context.Context, userID, collection string, docs []Document) error {
	if err := checkTarget(userID, collection); err != nil {
		return err
	}

	docsKey := DocsKey(userID, collection)
	orderKey := OrderKey(userID, collection)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, docsKey, orderKey)
		if len(docs) > 0 {
			fields := make([]interface{}, 0, len(docs)*2)
			ids := make([]interface{}, 0, len(docs))
			for _, d := range docs {
				fields = append(fields, d.ID, string(d.Data))
				ids = append(ids, d.ID)
			}
			pipe.HSet(ctx, docsKey, fields...)
			pipe.RPush(ctx, orderKey, ids...)
		}
		pipe.Publish(ctx, ChangesChannel(userID, collection), len(docs))
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace %s: %w", collection, err)
	}
	return nil
}

// Subscribe listens on the collection's changes channel and re-reads the
// collection for every announcement.
func (r *Redis) Subscribe(ctx context.Context, userID, collection string, onChange func([]Document)) (Subscription, error) {
	if err := checkTarget(userID, collection); err != nil {
		return nil, err
	}

	pubsub := r.client.Subscribe(ctx, ChangesChannel(userID, collection))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", collection, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		messages := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				docs, err := r.BulkRead(subCtx, userID, collection)
				if err != nil {
					if subCtx.Err() == nil {
						r.log.Error("reading collection after change",
							logger.String("collection", collection),
							logger.Error(err))
					}
					continue
				}
				onChange(docs)
			}
		}
	}()

	var once sync.Once
	var closeErr error
	return subscriptionFunc(func() error {
		once.Do(func() {
			cancel()
			closeErr = pubsub.Close()
			wg.Wait()
		})
		return closeErr
	}), nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
