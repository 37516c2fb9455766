package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Backend)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, filepath.Join(home, ".dayplanner", "tasks.db"), cfg.Storage.Path)
	assert.Equal(t, "http://localhost:3001/api", cfg.API.URL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, ":3001", cfg.Server.Addr)
	assert.False(t, cfg.Server.Auth.Enabled())
	assert.Equal(t, 24*time.Hour, cfg.Server.Auth.TokenTTL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileAndEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend: remote
api:
  url: https://planner.example.com/api
  timeout: 3s
storage:
  driver: redis
server:
  auth:
    secret: from-file
log:
  format: json
`), 0o600))

	t.Setenv("DAYPLANNER_API_URL", "http://override:9000/api")
	t.Setenv("DAYPLANNER_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "remote", cfg.Backend)
	assert.Equal(t, "http://override:9000/api", cfg.API.URL, "environment wins over the file")
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
	assert.Equal(t, "redis", cfg.Storage.Driver)
	assert.Equal(t, "localhost:6379", cfg.Storage.RedisAddr)
	assert.True(t, cfg.Server.Auth.Enabled())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"backend", func(c *Config) { c.Backend = "cloud" }},
		{"driver", func(c *Config) { c.Storage.Driver = "postgres" }},
		{"sqlite path", func(c *Config) { c.Storage.Path = "" }},
		{"remote url", func(c *Config) { c.Backend = "remote"; c.API.URL = "" }},
		{"timeout", func(c *Config) { c.API.Timeout = 0 }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Setenv("DAYPLANNER_BACKEND", "cloud")
	_, err = Load("")
	assert.ErrorContains(t, err, "backend")
}
