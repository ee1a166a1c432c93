package product

import (
	"context"
	"sync"

	"github.com/georgemunganga/product-manager/internal/docstore"
	"github.com/georgemunganga/product-manager/internal/obs"
	"github.com/georgemunganga/product-manager/internal/observable"
)

// Repository syncs the products of one owner with the document store.
// Every failure comes back as an error value, usually a *SyncError.
type Repository interface {
	// Subscribe opens one filtered store listener. The caller owns the
	// returned Subscription and must Close it.
	Subscribe(ctx context.Context, ownerID string) (*Subscription, error)
	Create(ctx context.Context, p Product) (string, error)
	Update(ctx context.Context, id string, p Product) error
	Delete(ctx context.Context, id string) error
}

// Subscription is a live sequence of full product lists in server order.
// Each list replaces the previous one.
type Subscription struct {
	owner  string
	stream *observable.Stream[[]Product]

	mu         sync.Mutex
	reg        docstore.Registration
	err        error
	terminated bool
	closed     bool
	stopCtx    func() bool
}

// Snapshots is closed when the subscription ends, after which Err reports why.
func (s *Subscription) Snapshots() <-chan []Product { return s.stream.Out() }

// Err returns the terminal cause, or nil when the caller closed the subscription.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close releases the store listener and the local channel. Safe to call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	reg, stop := s.reg, s.stopCtx
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	if reg != nil {
		reg.Remove()
	}
	s.stream.Stop()
}

func (s *Subscription) deliver(docs []docstore.DocumentSnapshot, err error) {
	if err != nil {
		s.terminate(err)
		return
	}
	products := make([]Product, 0, len(docs))
	for _, d := range docs {
		p := FromDocument(d.ID, d.Data)
		if p.OwnerID != s.owner {
			continue
		}
		products = append(products, p)
	}
	s.stream.Push(products)
}

// terminate keeps already queued snapshots and closes the channel after them.
func (s *Subscription) terminate(err error) {
	s.mu.Lock()
	if s.terminated || s.closed {
		s.mu.Unlock()
		return
	}
	s.terminated = true
	s.err = &SyncError{Kind: KindSubscriptionTerminated, Op: "subscribe", Err: err}
	reg := s.reg
	s.mu.Unlock()

	obs.Logger.Warn("product_subscription_terminated", "owner_id", s.owner, "error", err)
	if reg != nil {
		reg.Remove()
	}
	s.stream.CloseIntake()
}

type documentRepository struct {
	store      docstore.Store
	collection string
}

// NewRepository creates a Repository over collection in store.
func NewRepository(store docstore.Store, collection string) Repository {
	return &documentRepository{store: store, collection: collection}
}

func (r *documentRepository) Subscribe(ctx context.Context, ownerID string) (*Subscription, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	sub := &Subscription{owner: ownerID, stream: observable.NewStream[[]Product]()}
	q := docstore.Collection(r.collection).Where(FieldOwnerID, ownerID)
	reg, err := r.store.Listen(ctx, q, sub.deliver)
	if err != nil {
		sub.stream.Stop()
		return nil, syncError("subscribe", err)
	}

	sub.mu.Lock()
	sub.reg = reg
	terminated := sub.terminated
	sub.mu.Unlock()
	if terminated {
		reg.Remove()
	}
	stop := context.AfterFunc(ctx, sub.Close)
	sub.mu.Lock()
	sub.stopCtx = stop
	closed := sub.closed
	sub.mu.Unlock()
	if closed {
		stop()
	}

	obs.Logger.Debug("product_subscription_opened", "owner_id", ownerID, "collection", r.collection)
	return sub, nil
}

func (r *documentRepository) Create(ctx context.Context, p Product) (string, error) {
	if p.OwnerID == "" {
		return "", ErrOwnerRequired
	}
	id, err := r.store.Add(ctx, r.collection, p.ToDocument())
	if err != nil {
		return "", syncError("create", err)
	}
	return id, nil
}

func (r *documentRepository) Update(ctx context.Context, id string, p Product) error {
	return syncError("update", r.store.Update(ctx, r.collection, id, p.ToDocument()))
}

func (r *documentRepository) Delete(ctx context.Context, id string) error {
	return syncError("delete", r.store.Delete(ctx, r.collection, id))
}
