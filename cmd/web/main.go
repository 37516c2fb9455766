// Command web serves the day-planner REST API over the local task store, so
// the desktop and terminal clients can share one collection through the
// remote backend.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/spf13/cobra"

	"github.com/MihkelHunter/dayplanner/internal/backend"
	"github.com/MihkelHunter/dayplanner/internal/config"
	"github.com/MihkelHunter/dayplanner/internal/logging"
	"github.com/MihkelHunter/dayplanner/internal/remote"
	"github.com/MihkelHunter/dayplanner/internal/server"
	"github.com/MihkelHunter/dayplanner/internal/store"
)

const shutdownTimeout = 15 * time.Second

func main() {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "dayplanner-web",
		Short: "Serve the day-planner REST API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cfgPath)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default ~/.dayplanner/config.yaml)")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	log := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()
	kv, err := backend.OpenKV(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.Storage.Driver, err)
	}
	repo := store.NewLocal(kv, store.WithLogger(log))

	srvCfg := server.Config{Mapper: remote.DefaultMapper(), Logger: log}
	if a := cfg.Server.Auth; a.Enabled() {
		srvCfg.Auth = &server.AuthConfig{
			Secret:   a.Secret,
			Issuer:   a.Issuer,
			TokenTTL: a.TokenTTL,
		}
		if a.IDPSecret != "" {
			srvCfg.Auth.Verifier = server.SharedSecretVerifier{Secret: a.IDPSecret}
		}
	}
	srv := server.New(repo, srvCfg)

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- srv.Listen(cfg.Server.Addr)
	}()

	wait := gfshutdown.GracefulShutdown(ctx, shutdownTimeout, map[string]gfshutdown.Operation{
		"api": func(ctx context.Context) error {
			err := srv.Shutdown(ctx)
			if cerr := repo.Close(); err == nil {
				err = cerr
			}
			return err
		},
	})
	code, err := await(listenErr, wait)
	if err != nil {
		_ = repo.Close()
		return fmt.Errorf("api server on %s: %w", cfg.Server.Addr, err)
	}
	if code != 0 {
		os.Exit(code)
	}
	return nil
}

// await blocks until the listener fails or shutdown finishes. Listen
// returning nil means shutdown has begun, so the exit code is awaited.
func await(listenErr <-chan error, wait <-chan int) (int, error) {
	select {
	case err := <-listenErr:
		if err != nil {
			return 0, err
		}
		return <-wait, nil
	case code := <-wait:
		return code, nil
	}
}
