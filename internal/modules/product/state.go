package product

import (
	"context"
	"strings"

	"github.com/georgemunganga/product-manager/internal/apperr"
	"github.com/georgemunganga/product-manager/internal/dispatch"
	"github.com/georgemunganga/product-manager/internal/modules/auth"
	"github.com/georgemunganga/product-manager/internal/obs"
	"github.com/georgemunganga/product-manager/internal/observable"
)

// Guard and outcome messages.
const (
	MsgNameRequired     = "name is required"
	MsgIDRequired       = "product id is required"
	MsgNotAuthenticated = "not authenticated"
	MsgCreated          = "product created"
	MsgUpdated          = "product updated"
	MsgDeleted          = "product deleted"
)

// Identity is the part of the identity provider the product machine needs.
type Identity interface {
	CurrentPrincipal() (auth.Principal, bool)
}

// OperationStatus enumerates the states of the latest mutation.
type OperationStatus string

const (
	OpIdle      OperationStatus = "idle"
	OpLoading   OperationStatus = "loading"
	OpSucceeded OperationStatus = "succeeded"
	OpFailed    OperationStatus = "failed"
)

// OperationState is the outcome of the most recently completed mutation.
type OperationState struct {
	Status  OperationStatus `json:"status"`
	Message string          `json:"message,omitempty"`
}

// SubscriptionStatus enumerates the states of the live product listener.
type SubscriptionStatus string

const (
	SubInactive   SubscriptionStatus = "inactive"
	SubActive     SubscriptionStatus = "active"
	SubTerminated SubscriptionStatus = "terminated"
)

// SubscriptionState describes the live listener feeding the collection.
type SubscriptionState struct {
	Status  SubscriptionStatus `json:"status"`
	OwnerID string             `json:"owner_id,omitempty"`
	Message string             `json:"message,omitempty"`
}

// StateMachine holds the product collection of the current principal and the
// state of the latest mutation. The two are independent: a failed mutation
// never touches the collection, which only changes on snapshot delivery.
type StateMachine struct {
	repo     Repository
	identity Identity
	loop     *dispatch.Loop

	products     *observable.Value[[]Product]
	operation    *observable.Value[OperationState]
	subscription *observable.Value[SubscriptionState]

	// owned by the loop
	cancelSub context.CancelFunc
}

// NewStateMachine creates the machine and, when a principal is signed in,
// subscribes to that principal's products.
func NewStateMachine(ctx context.Context, repo Repository, identity Identity) *StateMachine {
	m := &StateMachine{
		repo:         repo,
		identity:     identity,
		loop:         dispatch.NewLoop(ctx),
		products:     observable.NewValue([]Product{}),
		operation:    observable.NewValue(OperationState{Status: OpIdle}),
		subscription: observable.NewValue(SubscriptionState{Status: SubInactive}),
	}
	m.loop.Do(m.subscribe)
	return m
}

// Products exposes the materialized collection.
func (m *StateMachine) Products() *observable.Value[[]Product] { return m.products }

// Operation exposes the latest mutation outcome.
func (m *StateMachine) Operation() *observable.Value[OperationState] { return m.operation }

// Subscription exposes the listener state.
func (m *StateMachine) Subscription() *observable.Value[SubscriptionState] { return m.subscription }

// Resubscribe drops the current listener and opens a new one for whoever is
// signed in now. With nobody signed in the collection is cleared.
func (m *StateMachine) Resubscribe() {
	m.loop.Do(func() {
		if _, ok := m.identity.CurrentPrincipal(); !ok {
			m.products.Set([]Product{})
		}
		m.subscribe()
	})
}

// CreateProduct validates name, coerces the numeric fields and creates the
// product for the current principal.
func (m *StateMachine) CreateProduct(name, price, stock, category string) {
	m.loop.Do(func() {
		if blank(name) {
			m.reject(MsgNameRequired)
			return
		}
		principal, ok := m.identity.CurrentPrincipal()
		if !ok {
			m.reject(MsgNotAuthenticated)
			return
		}
		p := Product{
			Name:     name,
			Price:    ParsePrice(price),
			Stock:    ParseStock(stock),
			Category: category,
			OwnerID:  principal.UID,
		}
		m.mutate("create", MsgCreated, func(ctx context.Context) error {
			id, err := m.repo.Create(ctx, p)
			if err == nil {
				obs.Logger.Info("product_created", "id", id, "owner_id", p.OwnerID)
			}
			return err
		})
	})
}

// UpdateProduct applies the same guards and coercion as CreateProduct to the
// product with id.
func (m *StateMachine) UpdateProduct(id, name, price, stock, category string) {
	m.loop.Do(func() {
		if blank(id) {
			m.reject(MsgIDRequired)
			return
		}
		if blank(name) {
			m.reject(MsgNameRequired)
			return
		}
		principal, ok := m.identity.CurrentPrincipal()
		if !ok {
			m.reject(MsgNotAuthenticated)
			return
		}
		p := Product{
			ID:       id,
			Name:     name,
			Price:    ParsePrice(price),
			Stock:    ParseStock(stock),
			Category: category,
			OwnerID:  principal.UID,
		}
		m.mutate("update", MsgUpdated, func(ctx context.Context) error {
			return m.repo.Update(ctx, id, p)
		})
	})
}

// DeleteProduct removes the product with id.
func (m *StateMachine) DeleteProduct(id string) {
	m.loop.Do(func() {
		if blank(id) {
			m.reject(MsgIDRequired)
			return
		}
		m.mutate("delete", MsgDeleted, func(ctx context.Context) error {
			return m.repo.Delete(ctx, id)
		})
	})
}

// ResetState returns the operation state to Idle.
func (m *StateMachine) ResetState() {
	m.loop.Do(func() { m.operation.Set(OperationState{Status: OpIdle}) })
}

// Wait blocks until in-flight mutations have returned.
func (m *StateMachine) Wait() { m.loop.Wait() }

// Close releases the subscription and stops applying results.
func (m *StateMachine) Close() {
	m.loop.Close()
	m.products.Close()
	m.operation.Close()
	m.subscription.Close()
}

// reject fails the operation on a local guard. The repository is not called.
func (m *StateMachine) reject(reason string) { m.fail("guard", apperr.Validation(reason)) }

func (m *StateMachine) fail(op string, err error) {
	if apperr.IsValidation(err) {
		obs.Logger.Debug("product_guard_rejected", "reason", err)
	} else {
		obs.Logger.Warn("product_mutation_failed", "op", op, "error", err)
	}
	m.operation.Set(OperationState{Status: OpFailed, Message: apperr.Message(err, op+" failed")})
}

// mutate must run on the loop. Loading is published before the call starts,
// so the terminal state of this action always follows it.
func (m *StateMachine) mutate(op, success string, call func(context.Context) error) {
	m.operation.Set(OperationState{Status: OpLoading})
	ctx := context.WithoutCancel(m.loop.Context())
	m.loop.Go(func() {
		err := call(ctx)
		m.loop.Post(func() {
			if err != nil {
				m.fail(op, err)
				return
			}
			m.operation.Set(OperationState{Status: OpSucceeded, Message: success})
		})
	})
}

// subscribe must run on the loop.
func (m *StateMachine) subscribe() {
	if m.cancelSub != nil {
		m.cancelSub()
		m.cancelSub = nil
	}
	principal, ok := m.identity.CurrentPrincipal()
	if !ok {
		m.subscription.Set(SubscriptionState{Status: SubInactive})
		return
	}
	ctx, cancel := context.WithCancel(m.loop.Context())
	m.cancelSub = cancel
	owner := principal.UID
	m.subscription.Set(SubscriptionState{Status: SubActive, OwnerID: owner})

	// apply drops results of a listener that has since been replaced.
	apply := func(fn func()) {
		m.loop.Post(func() {
			if ctx.Err() == nil {
				fn()
			}
		})
	}

	go func() {
		sub, err := m.repo.Subscribe(ctx, owner)
		if err != nil {
			apply(func() {
				m.subscription.Set(SubscriptionState{
					Status: SubTerminated, OwnerID: owner, Message: apperr.Message(err, "subscribe failed"),
				})
			})
			return
		}
		defer sub.Close()
		for list := range sub.Snapshots() {
			list := list
			apply(func() { m.products.Set(list) })
		}
		if err := sub.Err(); err != nil {
			apply(func() {
				m.subscription.Set(SubscriptionState{
					Status: SubTerminated, OwnerID: owner, Message: apperr.Message(err, "subscription terminated"),
				})
			})
		}
	}()
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
