package docstore

import (
	"context"
	"sync"
)

type collectionKey struct {
	user       string
	collection string
}

// Memory is an in-process Store. Subscribers are notified synchronously
// from BatchReplace.
type Memory struct {
	mu     sync.Mutex
	docs   map[collectionKey][]Document
	subs   map[collectionKey]map[int]func([]Document)
	nextID int
	closed bool
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		docs: make(map[collectionKey][]Document),
		subs: make(map[collectionKey]map[int]func([]Document)),
	}
}

func (m *Memory) BulkRead(ctx context.Context, userID, collection string) ([]Document, error) {
	if err := checkTarget(userID, collection); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneDocuments(m.docs[collectionKey{userID, collection}]), nil
}

func (m *Memory) BatchReplace(ctx context.Context, userID, collection string, docs []Document) error {
	if err := checkTarget(userID, collection); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	key := collectionKey{userID, collection}
	m.mu.Lock()
	m.docs[key] = cloneDocuments(docs)
	listeners := make([]func([]Document), 0, len(m.subs[key]))
	for _, fn := range m.subs[key] {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(cloneDocuments(docs))
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, userID, collection string, onChange func([]Document)) (Subscription, error) {
	if err := checkTarget(userID, collection); err != nil {
		return nil, err
	}

	key := collectionKey{userID, collection}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrSubscriptionClosed
	}
	id := m.nextID
	m.nextID++
	if m.subs[key] == nil {
		m.subs[key] = make(map[int]func([]Document))
	}
	m.subs[key][id] = onChange
	m.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() error {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs[key], id)
			m.mu.Unlock()
			close(done)
		})
		return nil
	}
	go func() {
		select {
		case <-ctx.Done():
			_ = cancel()
		case <-done:
		}
	}()
	return subscriptionFunc(cancel), nil
}

// Close drops every subscriber. Stored documents stay readable.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.subs = make(map[collectionKey]map[int]func([]Document))
	return nil
}
