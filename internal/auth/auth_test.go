package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MihkelHunter/dayplanner/internal/store"
)

type fakeProvider struct {
	loginErr   error
	meErr      error
	logoutErr  error
	refreshErr error
	logouts    []string
}

var alice = User{ID: "u1", Email: "alice@example.com", Name: "Alice", Verified: true}

func (p *fakeProvider) Login(_ context.Context, idToken string) (Session, error) {
	if p.loginErr != nil {
		return Session{}, p.loginErr
	}
	return Session{User: alice, Token: "session-for-" + idToken}, nil
}

func (p *fakeProvider) Me(_ context.Context, token string) (User, error) {
	if p.meErr != nil {
		return User{}, p.meErr
	}
	return alice, nil
}

func (p *fakeProvider) Logout(_ context.Context, token string) error {
	p.logouts = append(p.logouts, token)
	return p.logoutErr
}

func (p *fakeProvider) Refresh(_ context.Context, token string) (string, error) {
	if p.refreshErr != nil {
		return "", p.refreshErr
	}
	return token + "-refreshed", nil
}

func newTestGate(p Provider) (*Gate, *store.MemoryKV) {
	kv := store.NewMemoryKV()
	return NewGate(p, kv, slog.New(slog.NewTextHandler(io.Discard, nil))), kv
}

func TestReduce(t *testing.T) {
	authed := Authenticated{User: alice, Token: "t"}
	tests := []struct {
		name  string
		from  State
		event Event
		want  State
	}{
		{"start", Unauthenticated{}, Started{}, Authenticating{}},
		{"success", Authenticating{}, Succeeded{User: alice, Token: "t"}, authed},
		{"reject", Authenticating{}, Rejected{Reason: "bad token"}, Failed{Reason: "bad token"}},
		{"nothing stored", Authenticating{}, NothingStored{}, Unauthenticated{}},
		{"retry after failure", Failed{Reason: "x"}, Started{}, Authenticating{}},
		{"dismiss failure", Failed{Reason: "x"}, ErrorCleared{}, Unauthenticated{}},
		{"refresh", authed, Succeeded{User: alice, Token: "t2"}, Authenticated{User: alice, Token: "t2"}},
		{"logout from authed", authed, LoggedOut{}, Unauthenticated{}},
		{"logout while authenticating", Authenticating{}, LoggedOut{}, Unauthenticated{}},
		{"success ignored when idle", Unauthenticated{}, Succeeded{User: alice}, Unauthenticated{}},
		{"reject ignored when authed", authed, Rejected{Reason: "x"}, authed},
		{"start ignored when authed", authed, Started{}, authed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reduce(tt.from, tt.event))
		})
	}
}

func TestGateLogin(t *testing.T) {
	ctx := context.Background()
	g, kv := newTestGate(&fakeProvider{})

	var seen []State
	g.OnChange(func(s State) { seen = append(seen, s) })

	require.NoError(t, g.Login(ctx, "google-id"))
	assert.True(t, g.Authenticated())
	assert.Equal(t, "session-for-google-id", g.Token())
	assert.Equal(t, []State{Authenticating{}, Authenticated{User: alice, Token: "session-for-google-id"}}, seen)

	tok, ok, err := kv.Get(ctx, TokenKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "session-for-google-id", string(tok))
	_, ok, _ = kv.Get(ctx, UserKey)
	assert.True(t, ok)
}

func TestGateLoginFailure(t *testing.T) {
	ctx := context.Background()
	g, kv := newTestGate(&fakeProvider{loginErr: errors.New("Invalid Google token")})

	err := g.Login(ctx, "bad")
	require.Error(t, err)
	assert.Equal(t, Failed{Reason: "Invalid Google token"}, g.State())
	assert.Empty(t, g.Token())

	_, ok, _ := kv.Get(ctx, TokenKey)
	assert.False(t, ok, "credential must not be stored")

	g.ClearError()
	assert.Equal(t, Unauthenticated{}, g.State())
}

func TestGateStartRestoresSession(t *testing.T) {
	ctx := context.Background()
	g, kv := newTestGate(&fakeProvider{})
	require.NoError(t, kv.Set(ctx, TokenKey, []byte("stored")))

	assert.Equal(t, Authenticated{User: alice, Token: "stored"}, g.Start(ctx))
}

func TestGateStartClearsRejectedCredential(t *testing.T) {
	ctx := context.Background()
	g, kv := newTestGate(&fakeProvider{meErr: errors.New("expired")})
	require.NoError(t, kv.Set(ctx, TokenKey, []byte("stale")))
	require.NoError(t, kv.Set(ctx, UserKey, []byte(`{}`)))

	assert.Equal(t, Unauthenticated{}, g.Start(ctx))
	_, ok, _ := kv.Get(ctx, TokenKey)
	assert.False(t, ok)
	_, ok, _ = kv.Get(ctx, UserKey)
	assert.False(t, ok)
}

func TestGateStartWithoutCredential(t *testing.T) {
	g, _ := newTestGate(&fakeProvider{})
	assert.Equal(t, Unauthenticated{}, g.Start(context.Background()))
}

func TestGateLogoutIgnoresRemoteFailure(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{logoutErr: errors.New("offline")}
	g, kv := newTestGate(p)
	require.NoError(t, g.Login(ctx, "id"))

	g.Logout(ctx)
	assert.Equal(t, Unauthenticated{}, g.State())
	assert.Equal(t, []string{"session-for-id"}, p.logouts)
	_, ok, _ := kv.Get(ctx, TokenKey)
	assert.False(t, ok)
}

func TestGateRefresh(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{}
	g, kv := newTestGate(p)

	assert.ErrorIs(t, g.Refresh(ctx), ErrNoSession)

	require.NoError(t, g.Login(ctx, "id"))
	require.NoError(t, g.Refresh(ctx))
	assert.Equal(t, "session-for-id-refreshed", g.Token())
	tok, _, _ := kv.Get(ctx, TokenKey)
	assert.Equal(t, "session-for-id-refreshed", string(tok))

	p.refreshErr = errors.New("revoked")
	require.Error(t, g.Refresh(ctx))
	assert.Equal(t, Unauthenticated{}, g.State())
}
