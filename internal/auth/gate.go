package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MihkelHunter/dayplanner/internal/store"
)

// Keys under which the credential is persisted.
const (
	TokenKey = "dayplanner_token"
	UserKey  = "dayplanner_user"
)

// ErrNoSession is returned by Refresh when nobody is signed in.
var ErrNoSession = errors.New("no active session")

// Session is a verified sign-in.
type Session struct {
	User  User
	Token string
}

// Provider is the identity service.
type Provider interface {
	// Login exchanges an external identity token for a session.
	Login(ctx context.Context, idToken string) (Session, error)
	// Me verifies token and returns its user.
	Me(ctx context.Context, token string) (User, error)
	Logout(ctx context.Context, token string) error
	Refresh(ctx context.Context, token string) (string, error)
}

// Gate owns the session state and the stored credential.
type Gate struct {
	provider Provider
	kv       store.KV
	log      *slog.Logger

	mu        sync.Mutex
	state     State
	listeners []func(State)
}

func NewGate(p Provider, kv store.KV, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{provider: p, kv: kv, log: log, state: Unauthenticated{}}
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Authenticated reports whether the gate lets the task UI through.
func (g *Gate) Authenticated() bool {
	_, ok := g.State().(Authenticated)
	return ok
}

// Token returns the session token, or "" when signed out. It is meant to be
// passed to remote.WithTokenSource.
func (g *Gate) Token() string {
	if s, ok := g.State().(Authenticated); ok {
		return s.Token
	}
	return ""
}

// OnChange registers fn to be called after every transition.
func (g *Gate) OnChange(fn func(State)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, fn)
}

func (g *Gate) dispatch(e Event) State {
	g.mu.Lock()
	next := Reduce(g.state, e)
	changed := next != g.state
	g.state = next
	listeners := append([]func(State){}, g.listeners...)
	g.mu.Unlock()

	if changed {
		for _, fn := range listeners {
			fn(next)
		}
	}
	return next
}

// Start restores a stored credential if it still verifies. A credential the
// service rejects is removed.
func (g *Gate) Start(ctx context.Context) State {
	token, ok, err := g.kv.Get(ctx, TokenKey)
	if err != nil {
		g.log.Error("reading stored credential failed", "err", err)
	}
	if err != nil || !ok || len(token) == 0 {
		return g.State()
	}

	g.dispatch(Started{})
	user, err := g.provider.Me(ctx, string(token))
	if err != nil {
		g.log.Info("stored credential rejected", "err", err)
		g.clearStored(ctx)
		return g.dispatch(NothingStored{})
	}
	return g.dispatch(Succeeded{User: user, Token: string(token)})
}

// Login signs in with an external identity token. On failure nothing is
// stored and the state becomes Failed.
func (g *Gate) Login(ctx context.Context, idToken string) error {
	g.dispatch(Started{})
	sess, err := g.provider.Login(ctx, idToken)
	if err == nil {
		err = g.store(ctx, sess)
	}
	if err != nil {
		g.dispatch(Rejected{Reason: err.Error()})
		return fmt.Errorf("login: %w", err)
	}
	g.dispatch(Succeeded{User: sess.User, Token: sess.Token})
	return nil
}

// Logout clears the credential and signs out. The service is told on a best
// effort basis; its failure is only logged.
func (g *Gate) Logout(ctx context.Context) {
	token := g.Token()
	g.clearStored(ctx)
	g.dispatch(LoggedOut{})
	if token == "" {
		return
	}
	if err := g.provider.Logout(ctx, token); err != nil {
		g.log.Warn("remote logout failed", "err", err)
	}
}

// Refresh swaps the session token for a new one. Any failure signs out.
func (g *Gate) Refresh(ctx context.Context) error {
	cur, ok := g.State().(Authenticated)
	if !ok {
		return ErrNoSession
	}
	token, err := g.provider.Refresh(ctx, cur.Token)
	if err == nil {
		err = g.kv.Set(ctx, TokenKey, []byte(token))
	}
	if err != nil {
		g.Logout(ctx)
		return fmt.Errorf("refresh: %w", err)
	}
	g.dispatch(Succeeded{User: cur.User, Token: token})
	return nil
}

// ClearError dismisses a Failed state.
func (g *Gate) ClearError() {
	g.dispatch(ErrorCleared{})
}

func (g *Gate) store(ctx context.Context, s Session) error {
	user, err := json.Marshal(s.User)
	if err != nil {
		return err
	}
	if err := g.kv.Set(ctx, TokenKey, []byte(s.Token)); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	if err := g.kv.Set(ctx, UserKey, user); err != nil {
		g.clearStored(ctx)
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}

func (g *Gate) clearStored(ctx context.Context) {
	for _, k := range []string{TokenKey, UserKey} {
		if err := g.kv.Delete(ctx, k); err != nil {
			g.log.Error("clearing stored credential failed", "key", k, "err", err)
		}
	}
}
