package product

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/georgemunganga/product-manager/internal/docstore"
)

// ErrorKind classifies repository failures.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNetwork
	KindNotFound
	KindSubscriptionTerminated
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "NetworkError"
	case KindNotFound:
		return "NotFound"
	case KindSubscriptionTerminated:
		return "SubscriptionTerminated"
	default:
		return "UnknownError"
	}
}

var (
	ErrNetwork                = errors.New("NetworkError")
	ErrNotFound               = errors.New("NotFound")
	ErrSubscriptionTerminated = errors.New("SubscriptionTerminated")
	ErrOwnerRequired          = errors.New("owner id is required")
)

// SyncError is the result-value form of a failed repository call.
type SyncError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *SyncError) Error() string {
	if e.Kind == KindNotFound || e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *SyncError) Unwrap() error { return e.Err }

func (e *SyncError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrSubscriptionTerminated:
		return e.Kind == KindSubscriptionTerminated
	}
	return false
}

func syncError(op string, err error) error {
	if err == nil {
		return nil
	}
	kind := KindUnknown
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		kind = KindNotFound
	case errors.Is(err, docstore.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		kind = KindNetwork
	}
	return &SyncError{Kind: kind, Op: op, Err: err}
}
