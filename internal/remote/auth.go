package remote

import (
	"context"
	"net/http"

	"github.com/MihkelHunter/dayplanner/internal/auth"
)

// LoginBody is the POST /auth/google payload.
type LoginBody struct {
	IDToken string `json:"idToken"`
}

// LoginData is returned by /auth/google.
type LoginData struct {
	User  auth.User `json:"user"`
	Token string    `json:"token"`
}

// MeData is returned by /auth/me.
type MeData struct {
	User auth.User `json:"user"`
}

// TokenData is returned by /auth/refresh.
type TokenData struct {
	Token string `json:"token"`
}

// AuthClient implements auth.Provider on the service's /auth endpoints.
type AuthClient struct {
	c *Client
}

// Auth returns the identity endpoints sharing this client's transport.
func (c *Client) Auth() *AuthClient {
	return &AuthClient{c: c}
}

var _ auth.Provider = (*AuthClient)(nil)

func (a *AuthClient) Login(ctx context.Context, idToken string) (auth.Session, error) {
	var d LoginData
	if err := a.c.do(ctx, http.MethodPost, "/auth/google", "", LoginBody{IDToken: idToken}, &d); err != nil {
		return auth.Session{}, err
	}
	return auth.Session{User: d.User, Token: d.Token}, nil
}

func (a *AuthClient) Me(ctx context.Context, token string) (auth.User, error) {
	var d MeData
	if err := a.c.do(ctx, http.MethodGet, "/auth/me", token, nil, &d); err != nil {
		return auth.User{}, err
	}
	return d.User, nil
}

func (a *AuthClient) Logout(ctx context.Context, token string) error {
	return a.c.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil)
}

func (a *AuthClient) Refresh(ctx context.Context, token string) (string, error) {
	var d TokenData
	if err := a.c.do(ctx, http.MethodPost, "/auth/refresh", token, nil, &d); err != nil {
		return "", err
	}
	return d.Token, nil
}
