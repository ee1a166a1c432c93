package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/georgemunganga/product-manager/internal/modules/user"
)

type brokenRepo struct{ user.Repository }

func (brokenRepo) GetUserByEmail(context.Context, string) (*user.User, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func (brokenRepo) CreateUser(context.Context, *user.User) error {
	return errors.New("dial tcp: connection refused")
}

func newProvider(ttl time.Duration) *LocalProvider {
	svc := user.NewService(user.NewMemoryRepository(), bcrypt.MinCost)
	return NewLocalProvider(svc, []byte("test-secret"), ttl)
}

func TestLocalProviderRegisterLoginLogout(t *testing.T) {
	ctx := context.Background()
	p := newProvider(time.Hour)

	if _, ok := p.CurrentPrincipal(); ok {
		t.Fatalf("fresh provider has a principal")
	}

	reg, err := p.Register(ctx, "ana@example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	cur, ok := p.CurrentPrincipal()
	if !ok || cur.UID != reg.UID || cur.Email != "ana@example.com" {
		t.Fatalf("principal after register: %+v %v", cur, ok)
	}

	p.Logout()
	p.Logout()
	if _, ok := p.CurrentPrincipal(); ok {
		t.Fatalf("principal survived logout")
	}

	in, err := p.Login(ctx, "ana@example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	if in.UID != reg.UID {
		t.Fatalf("login returned another uid")
	}
	if p.token == "" {
		t.Fatalf("no session token")
	}
}

func TestLocalProviderErrors(t *testing.T) {
	ctx := context.Background()
	p := newProvider(time.Hour)
	if _, err := p.Register(ctx, "ana@example.com", "12345"); !errors.Is(err, ErrWeakCredential) {
		t.Fatalf("expected ErrWeakCredential, got %v", err)
	}
	if _, err := p.Register(ctx, "ana@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Register(ctx, "ANA@example.com", "secret2"); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
	if _, err := p.Login(ctx, "ana@example.com", "wrong1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := p.Login(ctx, "nobody@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}

	broken := NewLocalProvider(user.NewService(brokenRepo{}, bcrypt.MinCost), []byte("k"), time.Hour)
	if _, err := broken.Login(ctx, "a@b.c", "secret1"); !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if _, err := broken.Register(ctx, "a@b.c", "secret1"); !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestLocalProviderExpiredSession(t *testing.T) {
	p := newProvider(-time.Minute)
	if _, err := p.Register(context.Background(), "ana@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	if _, ok := p.CurrentPrincipal(); ok {
		t.Fatalf("expired session reported as current")
	}
}

func TestLocalProviderRejectsForeignToken(t *testing.T) {
	a := newProvider(time.Hour)
	if _, err := a.Register(context.Background(), "ana@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	b := NewLocalProvider(nil, []byte("other-secret"), time.Hour)
	b.token = a.token
	if _, ok := b.CurrentPrincipal(); ok {
		t.Fatalf("token signed with another key accepted")
	}
}
