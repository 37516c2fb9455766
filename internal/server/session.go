package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MihkelHunter/dayplanner/internal/auth"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrRevokedToken = errors.New("token has been revoked")
)

// AuthConfig turns on the /auth routes and bearer checks on /tasks.
type AuthConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
	Verifier IdentityVerifier
}

// Claims is the session token payload.
type Claims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Sessions issues and checks HS256 session tokens. Revoked token ids are
// remembered until the token would have expired anyway.
type Sessions struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewSessions(secret, issuer string, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{
		secret:  []byte(secret),
		issuer:  issuer,
		ttl:     ttl,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
}

func (s *Sessions) Issue(u auth.User) (string, error) {
	now := s.now()
	claims := Claims{
		Email:   u.Email,
		Name:    u.Name,
		Picture: u.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   u.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Sessions) Verify(token string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, gone := s.revoked[claims.ID]; gone {
		return nil, ErrRevokedToken
	}
	return claims, nil
}

// Revoke invalidates the token carrying c.
func (s *Sessions) Revoke(c *Claims) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
	exp := now.Add(s.ttl)
	if c.ExpiresAt != nil {
		exp = c.ExpiresAt.Time
	}
	s.revoked[c.ID] = exp
}

func (c *Claims) User() auth.User {
	return auth.User{ID: c.Subject, Email: c.Email, Name: c.Name, Picture: c.Picture, Verified: true}
}

// IdentityVerifier checks a token from an external identity provider and
// returns the account it names.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (auth.User, error)
}

// SharedSecretVerifier accepts HS256 identity tokens signed with Secret,
// carrying sub, email, name, picture and email_verified claims.
type SharedSecretVerifier struct {
	Secret   string
	Audience string
}

type identityClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

func (v SharedSecretVerifier) Verify(_ context.Context, idToken string) (auth.User, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.Audience))
	}
	var claims identityClaims
	_, err := jwt.ParseWithClaims(idToken, &claims, func(*jwt.Token) (any, error) {
		return []byte(v.Secret), nil
	}, opts...)
	if err != nil {
		return auth.User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.Email == "" {
		return auth.User{}, fmt.Errorf("%w: missing subject or email", ErrInvalidToken)
	}
	return auth.User{
		ID:       claims.Subject,
		Email:    claims.Email,
		Name:     claims.Name,
		Picture:  claims.Picture,
		Verified: claims.EmailVerified,
	}, nil
}

// userDirectory remembers when each account first signed in.
type userDirectory struct {
	mu    sync.Mutex
	users map[string]auth.User
}

func newUserDirectory() *userDirectory {
	return &userDirectory{users: make(map[string]auth.User)}
}

func (d *userDirectory) upsert(u auth.User, now time.Time) auth.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	if prev, ok := d.users[u.ID]; ok {
		u.CreatedAt = prev.CreatedAt
	} else {
		at := now.UTC()
		u.CreatedAt = &at
	}
	d.users[u.ID] = u
	return u
}

func (d *userDirectory) get(id string) (auth.User, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	return u, ok
}
