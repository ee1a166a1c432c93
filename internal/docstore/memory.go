package docstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/georgemunganga/product-manager/internal/observable"
)

// MemoryStore keeps collections in process. Documents are returned in
// insertion order and each listener is called from its own goroutine, in
// change order.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]*memCollection
	listeners   map[int]*memListener
	nextID      int
	offline     error
}

type memCollection struct {
	order []string
	docs  map[string]Document
}

type delivery struct {
	docs []DocumentSnapshot
	err  error
}

type memListener struct {
	store  *MemoryStore
	id     int
	query  Query
	stream *observable.Stream[delivery]
	once   sync.Once
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: map[string]*memCollection{},
		listeners:   map[int]*memListener{},
	}
}

// SetOffline makes every subsequent mutation fail with Unavailable(err).
// Passing nil restores the store.
func (s *MemoryStore) SetOffline(err error) {
	s.mu.Lock()
	s.offline = err
	s.mu.Unlock()
}

// FailListeners terminates every active listener with err, as a dropped
// connection or revoked permission would.
func (s *MemoryStore) FailListeners(err error) {
	if err == nil {
		err = ErrListenerClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, l := range s.listeners {
		l.stream.Push(delivery{err: err})
		l.stream.CloseIntake()
		delete(s.listeners, id)
	}
}

// ListenerCount returns the number of registered listeners.
func (s *MemoryStore) ListenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

func (s *MemoryStore) collection(name string) *memCollection {
	c, ok := s.collections[name]
	if !ok {
		c = &memCollection{docs: map[string]Document{}}
		s.collections[name] = c
	}
	return c
}

func (s *MemoryStore) checkOnline(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return Unavailable(err)
	}
	if s.offline != nil {
		return Unavailable(s.offline)
	}
	return nil
}

// Add stores data under a new uuid.
func (s *MemoryStore) Add(ctx context.Context, collection string, data Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOnline(ctx); err != nil {
		return "", err
	}
	id := uuid.NewString()
	c := s.collection(collection)
	c.order = append(c.order, id)
	c.docs[id] = data.Clone()
	s.publish(collection, nil, c.docs[id])
	return id, nil
}

// Update merges data into an existing document.
func (s *MemoryStore) Update(ctx context.Context, collection, id string, data Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOnline(ctx); err != nil {
		return err
	}
	c := s.collection(collection)
	before, ok := c.docs[id]
	if !ok {
		return ErrNotFound
	}
	after := before.Clone()
	for k, v := range data {
		after[k] = v
	}
	c.docs[id] = after
	s.publish(collection, before, after)
	return nil
}

// Delete removes the document if present. Missing ids are not an error.
func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOnline(ctx); err != nil {
		return err
	}
	c := s.collection(collection)
	before, ok := c.docs[id]
	if !ok {
		return nil
	}
	delete(c.docs, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	s.publish(collection, before, nil)
	return nil
}

// Listen registers fn and immediately queues the current result set.
func (s *MemoryStore) Listen(ctx context.Context, q Query, fn Listener) (Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOnline(ctx); err != nil {
		return nil, err
	}
	l := &memListener{store: s, id: s.nextID, query: q, stream: observable.NewStream[delivery]()}
	s.nextID++
	s.listeners[l.id] = l
	l.stream.Push(delivery{docs: s.snapshot(q)})
	go func() {
		for d := range l.stream.Out() {
			fn(d.docs, d.err)
		}
	}()
	return l, nil
}

// publish must be called with s.mu held.
func (s *MemoryStore) publish(collection string, before, after Document) {
	for _, l := range s.listeners {
		if l.query.Collection != collection {
			continue
		}
		if !l.query.Matches(before) && !l.query.Matches(after) {
			continue
		}
		l.stream.Push(delivery{docs: s.snapshot(l.query)})
	}
}

// snapshot must be called with s.mu held.
func (s *MemoryStore) snapshot(q Query) []DocumentSnapshot {
	c, ok := s.collections[q.Collection]
	if !ok {
		return []DocumentSnapshot{}
	}
	out := make([]DocumentSnapshot, 0, len(c.order))
	for _, id := range c.order {
		d := c.docs[id]
		if q.Matches(d) {
			out = append(out, DocumentSnapshot{ID: id, Data: d.Clone()})
		}
	}
	return out
}

func (l *memListener) Remove() {
	l.once.Do(func() {
		l.store.mu.Lock()
		delete(l.store.listeners, l.id)
		l.store.mu.Unlock()
		l.stream.Stop()
	})
}
