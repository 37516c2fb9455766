// Package backend opens the task repository selected by configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MihkelHunter/dayplanner/internal/auth"
	"github.com/MihkelHunter/dayplanner/internal/config"
	"github.com/MihkelHunter/dayplanner/internal/remote"
	"github.com/MihkelHunter/dayplanner/internal/store"
	"github.com/MihkelHunter/dayplanner/internal/todo"
)

// Backend bundles what a client needs. Gate is nil for the local backend.
type Backend struct {
	Repo   todo.Repository
	KV     store.KV
	Gate   *auth.Gate
	Remote *remote.Client
}

// OpenKV opens the key-value store named by cfg.Driver.
func OpenKV(ctx context.Context, cfg config.StorageConfig) (store.KV, error) {
	switch cfg.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Path)
	case "redis":
		return store.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPrefix)
	case "memory":
		return store.NewMemoryKV(), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// Open builds the repository for cfg.Backend. For the remote backend the
// key-value store keeps the session credential and the client sends the
// gate's token.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Backend, error) {
	kv, err := OpenKV(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	switch cfg.Backend {
	case "local":
		repo := store.NewLocal(kv, store.WithLogger(log))
		return &Backend{Repo: repo, KV: kv}, nil
	case "remote":
		b := &Backend{KV: kv}
		b.Remote = remote.NewClient(cfg.API.URL,
			remote.WithTimeout(cfg.API.Timeout),
			remote.WithLogger(log),
			remote.WithTokenSource(func() string { return b.Gate.Token() }),
		)
		b.Gate = auth.NewGate(b.Remote.Auth(), kv, log)
		b.Repo = b.Remote
		return b, nil
	}
	_ = kv.Close()
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// Close releases the repository and, when they differ, the key-value store.
func (b *Backend) Close() error {
	err := b.Repo.Close()
	if b.Remote != nil {
		err = errors.Join(err, b.KV.Close())
	}
	return err
}
