// Package server exposes a todo.Repository as the day-planner REST API.
//
// Every response is a remote.Envelope. Tasks travel in their wire shape
// (title, dueDate) and are mapped to the canonical shape at the edge.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/MihkelHunter/dayplanner/internal/remote"
	"github.com/MihkelHunter/dayplanner/internal/todo"
)

// Config wires optional pieces of the server. A nil Auth serves the task
// routes without authentication.
type Config struct {
	Auth      *AuthConfig
	Mapper    remote.Mapper
	Logger    *slog.Logger
	AccessLog io.Writer
}

type Server struct {
	app      *fiber.App
	repo     todo.Repository
	mapper   remote.Mapper
	log      *slog.Logger
	sessions *Sessions
	verifier IdentityVerifier
	users    *userDirectory
}

func New(repo todo.Repository, cfg Config) *Server {
	s := &Server{
		repo:   repo,
		mapper: cfg.Mapper,
		log:    cfg.Logger,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.mapper.Now == nil {
		s.mapper.Now = time.Now
	}
	accessLog := cfg.AccessLog
	if accessLog == nil {
		accessLog = os.Stderr
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		Output: accessLog,
	}))
	s.app.Use(cors.New())

	api := s.app.Group("/api")
	api.Get("/health", s.health)

	tasks := api.Group("/tasks")
	if cfg.Auth != nil {
		s.sessions = NewSessions(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
		s.verifier = cfg.Auth.Verifier
		s.users = newUserDirectory()
		s.authRoutes(api.Group("/auth"))
		tasks.Use(s.requireSession)
	}
	tasks.Get("/", s.listTasks)
	tasks.Get("/stats/summary", s.summary)
	tasks.Get("/:id", s.getTask)
	tasks.Post("/", s.createTask)
	tasks.Put("/:id", s.updateTask)
	tasks.Patch("/:id/toggle", s.toggleTask)
	tasks.Delete("/:id", s.deleteTask)

	return s
}

// App returns the underlying fiber app, e.g. for app.Test.
func (s *Server) App() *fiber.App { return s.app }

// Listen blocks serving addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.log.Info("api listening", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("api shutting down")
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) health(c *fiber.Ctx) error {
	return ok(c, fiber.StatusOK, remote.Health{
		Status:    "ok",
		Message:   "Day planner API is running",
		Timestamp: time.Now().UTC(),
	})
}

func ok[T any](c *fiber.Ctx, status int, data T) error {
	return c.Status(status).JSON(remote.Envelope[T]{Success: true, Data: &data})
}

func fail(c *fiber.Ctx, status int, code, msg string) error {
	return c.Status(status).JSON(remote.Envelope[struct{}]{Error: code, Message: msg})
}

// statusOf maps a repository error onto the status the client maps back.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, todo.ErrNotFound):
		return fiber.StatusNotFound, "not_found"
	case errors.Is(err, todo.ErrValidation):
		return fiber.StatusBadRequest, "bad_request"
	case errors.Is(err, todo.ErrUnauthorized):
		return fiber.StatusUnauthorized, "unauthorized"
	case errors.Is(err, todo.ErrConnection):
		return fiber.StatusServiceUnavailable, "unavailable"
	}
	return fiber.StatusInternalServerError, "server_error"
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fail(c, fe.Code, "server_error", fe.Message)
	}
	status, code := statusOf(err)
	if status >= fiber.StatusInternalServerError {
		s.log.Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
	}
	return fail(c, status, code, err.Error())
}
