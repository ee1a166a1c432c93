package auth

import (
	"context"

	"github.com/go-faster/errors"
)

var (
	// ErrInvalidCredentials is returned when the email/password pair is rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountExists is returned when registering an email that is taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrWeakCredential is returned when the password is too short.
	ErrWeakCredential = errors.New("password must be at least 6 characters")
	// ErrNetwork marks failures reaching the identity backend.
	ErrNetwork = errors.New("network error")
)

// Principal is the authenticated identity of the current user.
type Principal struct {
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
}

// Provider is the identity service boundary. Implementations do not retry.
type Provider interface {
	// CurrentPrincipal reports the locally held session, if any. It has no side effects.
	CurrentPrincipal() (Principal, bool)
	Login(ctx context.Context, email, password string) (Principal, error)
	Register(ctx context.Context, email, password string) (Principal, error)
	// Logout drops the local session. Calling it with no session is a no-op.
	Logout()
}

// Network marks err as an identity backend failure.
func Network(err error) error {
	if err == nil {
		return nil
	}
	return &networkError{err: err}
}

type networkError struct{ err error }

func (e *networkError) Error() string        { return "network error: " + e.err.Error() }
func (e *networkError) Unwrap() error        { return e.err }
func (e *networkError) Is(target error) bool { return target == ErrNetwork }
