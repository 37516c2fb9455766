// Package config loads settings from defaults, an optional YAML file and
// DAYPLANNER_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "DAYPLANNER"

type Config struct {
	// Backend is "local" or "remote".
	Backend string        `mapstructure:"backend"`
	Storage StorageConfig `mapstructure:"storage"`
	API     APIConfig     `mapstructure:"api"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
}

type StorageConfig struct {
	// Driver is "sqlite", "redis" or "memory".
	Driver      string `mapstructure:"driver"`
	Path        string `mapstructure:"path"`
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisPrefix string `mapstructure:"redis_prefix"`
}

type APIConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	Addr string     `mapstructure:"addr"`
	Auth AuthConfig `mapstructure:"auth"`
}

// AuthConfig enables session auth on the REST server when Secret is set.
type AuthConfig struct {
	Secret    string        `mapstructure:"secret"`
	IDPSecret string        `mapstructure:"idp_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

func (a AuthConfig) Enabled() bool { return a.Secret != "" }

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Dir is the per-user data directory, ~/.dayplanner.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dayplanner"
	}
	return filepath.Join(home, ".dayplanner")
}

// DefaultPath is the config file read when Load is given no path.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", "local")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", filepath.Join(Dir(), "tasks.db"))
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.redis_prefix", "dayplanner:")
	v.SetDefault("api.url", "http://localhost:3001/api")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("server.addr", ":3001")
	v.SetDefault("server.auth.secret", "")
	v.SetDefault("server.auth.idp_secret", "")
	v.SetDefault("server.auth.issuer", "dayplanner")
	v.SetDefault("server.auth.token_ttl", 24*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration. An empty path falls back to DefaultPath, which
// may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Backend {
	case "local", "remote":
	default:
		errs = append(errs, fmt.Errorf("backend %q: want local or remote", c.Backend))
	}
	switch c.Storage.Driver {
	case "sqlite", "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q: want sqlite, redis or memory", c.Storage.Driver))
	}
	if c.Storage.Driver == "sqlite" && c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path is required for sqlite"))
	}
	if c.Backend == "remote" && c.API.URL == "" {
		errs = append(errs, errors.New("api.url is required for the remote backend"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("api.timeout %s: must be positive", c.API.Timeout))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q: want debug, info, warn or error", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want text or json", c.Log.Format))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
