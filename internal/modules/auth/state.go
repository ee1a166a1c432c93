package auth

import (
	"context"
	"strings"

	"github.com/georgemunganga/product-manager/internal/apperr"
	"github.com/georgemunganga/product-manager/internal/dispatch"
	"github.com/georgemunganga/product-manager/internal/obs"
	"github.com/georgemunganga/product-manager/internal/observable"
)

// Guard messages.
const (
	MsgFieldsRequired   = "all fields required"
	MsgPasswordMismatch = "passwords do not match"
)

// Status enumerates the auth session states.
type Status string

const (
	StatusIdle          Status = "idle"
	StatusLoading       Status = "loading"
	StatusAuthenticated Status = "authenticated"
	StatusFailed        Status = "failed"
)

// State is one auth session state. Message is set only when Failed;
// Principal only when Authenticated.
type State struct {
	Status    Status     `json:"status"`
	Principal *Principal `json:"principal,omitempty"`
	Message   string     `json:"message,omitempty"`
}

func idle() State              { return State{Status: StatusIdle} }
func loading() State           { return State{Status: StatusLoading} }
func failed(msg string) State  { return State{Status: StatusFailed, Message: msg} }
func authed(p Principal) State { return State{Status: StatusAuthenticated, Principal: &p} }

// StateMachine mediates login/register/logout intents. Only the machine
// writes its state; every transition runs on its dispatch loop.
type StateMachine struct {
	provider Provider
	loop     *dispatch.Loop
	state    *observable.Value[State]
	loggedIn *observable.Value[bool]
}

// NewStateMachine creates a machine in Idle. LoggedIn is seeded from the
// provider's current principal.
func NewStateMachine(ctx context.Context, provider Provider) *StateMachine {
	_, ok := provider.CurrentPrincipal()
	return &StateMachine{
		provider: provider,
		loop:     dispatch.NewLoop(ctx),
		state:    observable.NewValue(idle()),
		loggedIn: observable.NewValue(ok),
	}
}

// State exposes the auth state observable.
func (m *StateMachine) State() *observable.Value[State] { return m.state }

// LoggedIn exposes whether a session is held.
func (m *StateMachine) LoggedIn() *observable.Value[bool] { return m.loggedIn }

// Login validates the fields, then authenticates asynchronously.
func (m *StateMachine) Login(email, password string) {
	m.loop.Do(func() {
		if blank(email) || blank(password) {
			m.reject(MsgFieldsRequired)
			return
		}
		m.authenticate("login", func(ctx context.Context) (Principal, error) {
			return m.provider.Login(ctx, email, password)
		})
	})
}

// Register validates the fields and the confirmation, then registers asynchronously.
func (m *StateMachine) Register(email, password, confirm string) {
	m.loop.Do(func() {
		if blank(email) || blank(password) || blank(confirm) {
			m.reject(MsgFieldsRequired)
			return
		}
		if password != confirm {
			m.reject(MsgPasswordMismatch)
			return
		}
		m.authenticate("register", func(ctx context.Context) (Principal, error) {
			return m.provider.Register(ctx, email, password)
		})
	})
}

// Logout drops the session and returns to Idle whatever the prior state.
func (m *StateMachine) Logout() {
	m.loop.Do(func() {
		m.provider.Logout()
		m.loggedIn.Set(false)
		m.state.Set(idle())
	})
}

// ResetState forces Idle after the caller consumed a terminal state.
func (m *StateMachine) ResetState() {
	m.loop.Do(func() { m.state.Set(idle()) })
}

// Wait blocks until in-flight provider calls have returned.
func (m *StateMachine) Wait() { m.loop.Wait() }

// Close tears the machine down. Provider calls still running finish on their
// own and their results are dropped.
func (m *StateMachine) Close() {
	m.loop.Close()
	m.state.Close()
	m.loggedIn.Close()
}

// authenticate must run on the loop.
func (m *StateMachine) authenticate(op string, call func(context.Context) (Principal, error)) {
	m.state.Set(loading())
	ctx := context.WithoutCancel(m.loop.Context())
	m.loop.Go(func() {
		p, err := call(ctx)
		m.loop.Post(func() {
			if err != nil {
				m.fail(op, err)
				return
			}
			m.loggedIn.Set(true)
			m.state.Set(authed(p))
		})
	})
}

// reject fails on a local guard. The provider is not called.
func (m *StateMachine) reject(reason string) { m.fail("guard", apperr.Validation(reason)) }

func (m *StateMachine) fail(op string, err error) {
	if apperr.IsValidation(err) {
		obs.Logger.Debug("auth_guard_rejected", "reason", err)
	} else {
		obs.Logger.Info("auth_failed", "op", op, "error", err)
	}
	m.state.Set(failed(apperr.Message(err, op+" failed")))
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
