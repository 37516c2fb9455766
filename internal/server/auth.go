package server

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/MihkelHunter/dayplanner/internal/remote"
)

// claimsKey holds the session claims in fiber locals.
const claimsKey = "session"

func (s *Server) authRoutes(r fiber.Router) {
	r.Post("/google", s.login)
	r.Get("/me", s.requireSession, s.me)
	r.Post("/logout", s.requireSession, s.logout)
	r.Post("/refresh", s.requireSession, s.refresh)
}

func bearer(c *fiber.Ctx) (string, bool) {
	tok, found := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	tok = strings.TrimSpace(tok)
	return tok, found && tok != ""
}

// requireSession rejects requests without a valid session token.
func (s *Server) requireSession(c *fiber.Ctx) error {
	tok, found := bearer(c)
	if !found {
		return fail(c, fiber.StatusUnauthorized, "unauthorized", "Authorization header is required")
	}
	claims, err := s.sessions.Verify(tok)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "unauthorized", "Invalid or expired token")
	}
	c.Locals(claimsKey, claims)
	return c.Next()
}

func sessionClaims(c *fiber.Ctx) *Claims {
	claims, _ := c.Locals(claimsKey).(*Claims)
	return claims
}

func (s *Server) login(c *fiber.Ctx) error {
	var body remote.LoginBody
	if err := c.BodyParser(&body); err != nil || body.IDToken == "" {
		return fail(c, fiber.StatusBadRequest, "bad_request", "idToken is required")
	}
	if s.verifier == nil {
		return fail(c, fiber.StatusServiceUnavailable, "unavailable", "Identity login is not configured")
	}
	user, err := s.verifier.Verify(c.UserContext(), body.IDToken)
	if err != nil {
		s.log.Warn("identity token rejected", "err", err)
		return fail(c, fiber.StatusUnauthorized, "unauthorized", "Invalid Google token")
	}
	user = s.users.upsert(user, time.Now())
	tok, err := s.sessions.Issue(user)
	if err != nil {
		return err
	}
	s.log.Info("user signed in", "user", user.ID)
	return ok(c, fiber.StatusOK, remote.LoginData{User: user, Token: tok})
}

func (s *Server) me(c *fiber.Ctx) error {
	claims := sessionClaims(c)
	user, known := s.users.get(claims.Subject)
	if !known {
		user = claims.User()
	}
	return ok(c, fiber.StatusOK, remote.MeData{User: user})
}

func (s *Server) logout(c *fiber.Ctx) error {
	s.sessions.Revoke(sessionClaims(c))
	return ok(c, fiber.StatusOK, struct{}{})
}

// refresh swaps the presented token for a new one and revokes the old.
func (s *Server) refresh(c *fiber.Ctx) error {
	claims := sessionClaims(c)
	user, known := s.users.get(claims.Subject)
	if !known {
		user = claims.User()
	}
	tok, err := s.sessions.Issue(user)
	if err != nil {
		return err
	}
	s.sessions.Revoke(claims)
	return ok(c, fiber.StatusOK, remote.TokenData{Token: tok})
}
