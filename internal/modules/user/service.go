package user

import "context"

// Service defines account registration and credential checks.
type Service interface {
	RegisterUser(ctx context.Context, email, password string) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
}
