// Package docstore is the document store boundary: named collections of
// schemaless documents with store-assigned ids, equality queries and push
// listeners that receive the full result set on every change.
package docstore

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned by Update when the document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrUnavailable marks connectivity failures between client and store.
	ErrUnavailable = errors.New("document store unavailable")
	// ErrListenerClosed is delivered when the store shuts a listener down.
	ErrListenerClosed = errors.New("listener closed by store")
)

// Document is the field map of a stored document. The id is not part of it.
type Document map[string]any

// Clone returns a shallow copy of d.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// DocumentSnapshot is one document of a result set.
type DocumentSnapshot struct {
	ID   string
	Data Document
}

// Filter is an equality predicate on a top-level field.
type Filter struct {
	Field string
	Value any
}

// Query selects documents of one collection.
type Query struct {
	Collection string
	Filters    []Filter
}

// Collection starts a query over name.
func Collection(name string) Query { return Query{Collection: name} }

// Where returns a copy of q with an extra equality filter.
func (q Query) Where(field string, value any) Query {
	filters := make([]Filter, 0, len(q.Filters)+1)
	filters = append(filters, q.Filters...)
	q.Filters = append(filters, Filter{Field: field, Value: value})
	return q
}

// Matches reports whether d satisfies every filter. A nil document never matches.
func (q Query) Matches(d Document) bool {
	if d == nil {
		return false
	}
	for _, f := range q.Filters {
		v, ok := d[f.Field]
		if !ok || fmt.Sprint(v) != fmt.Sprint(f.Value) {
			return false
		}
	}
	return true
}

// Listener receives either a full result set or a terminal error. After an
// error the listener is not called again.
type Listener func(docs []DocumentSnapshot, err error)

// Registration releases a listener. Remove is idempotent and never blocks on
// an in-flight callback.
type Registration interface {
	Remove()
}

// Store is implemented by MemoryStore and PostgresStore.
type Store interface {
	Add(ctx context.Context, collection string, data Document) (string, error)
	Update(ctx context.Context, collection, id string, data Document) error
	Delete(ctx context.Context, collection, id string) error
	Listen(ctx context.Context, q Query, fn Listener) (Registration, error)
}

// Unavailable marks err as a connectivity failure so that
// errors.Is(err, ErrUnavailable) holds while the cause stays reachable.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return &unavailableError{err: err}
}

type unavailableError struct{ err error }

func (e *unavailableError) Error() string        { return "document store unavailable: " + e.err.Error() }
func (e *unavailableError) Unwrap() error        { return e.err }
func (e *unavailableError) Is(target error) bool { return target == ErrUnavailable }
