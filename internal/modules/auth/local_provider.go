package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-faster/errors"

	"github.com/georgemunganga/product-manager/internal/modules/user"
	"github.com/georgemunganga/product-manager/internal/obs"
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 6

type sessionClaims struct {
	Email string `json:"email"`
	jwt.StandardClaims
}

// LocalProvider authenticates against a user.Service and keeps the session
// as a signed HS256 token in memory. Credentials are never stored.
type LocalProvider struct {
	users  user.Service
	secret []byte
	ttl    time.Duration

	mu    sync.RWMutex
	token string
}

// NewLocalProvider creates a provider signing sessions with secret.
func NewLocalProvider(users user.Service, secret []byte, ttl time.Duration) *LocalProvider {
	return &LocalProvider{users: users, secret: secret, ttl: ttl}
}

// CurrentPrincipal validates the held token on every call; an expired or
// tampered token yields no principal.
func (p *LocalProvider) CurrentPrincipal() (Principal, bool) {
	p.mu.RLock()
	token := p.token
	p.mu.RUnlock()
	if token == "" {
		return Principal{}, false
	}
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return Principal{}, false
	}
	return Principal{UID: claims.Subject, Email: claims.Email}, true
}

func (p *LocalProvider) Login(ctx context.Context, email, password string) (Principal, error) {
	u, err := p.users.Authenticate(ctx, email, password)
	switch {
	case errors.Is(err, user.ErrNotFound), errors.Is(err, user.ErrPasswordMismatch):
		return Principal{}, ErrInvalidCredentials
	case err != nil:
		return Principal{}, Network(err)
	}
	return p.startSession(u)
}

func (p *LocalProvider) Register(ctx context.Context, email, password string) (Principal, error) {
	if len(password) < MinPasswordLength {
		return Principal{}, ErrWeakCredential
	}
	u, err := p.users.RegisterUser(ctx, email, password)
	switch {
	case errors.Is(err, user.ErrDuplicateEmail):
		return Principal{}, ErrAccountExists
	case err != nil:
		return Principal{}, Network(err)
	}
	return p.startSession(u)
}

func (p *LocalProvider) Logout() {
	p.mu.Lock()
	p.token = ""
	p.mu.Unlock()
}

func (p *LocalProvider) startSession(u *user.User) (Principal, error) {
	now := time.Now()
	claims := &sessionClaims{
		Email: u.Email,
		StandardClaims: jwt.StandardClaims{
			Subject:   u.ID.String(),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(p.ttl).Unix(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return Principal{}, errors.Wrap(err, "sign session")
	}
	p.mu.Lock()
	p.token = signed
	p.mu.Unlock()
	obs.Logger.Info("session_started", "uid", claims.Subject)
	return Principal{UID: claims.Subject, Email: u.Email}, nil
}
