// Package config loads the smoelen binary's settings from SMOELEN_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/kroma-labs/smoelen/auth"
)

// Session store backends.
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// ErrUnknownSessionStore is returned for an unsupported SMOELEN_SESSION_STORE.
var ErrUnknownSessionStore = errors.New("unknown session store")

// Config is the environment of one invocation.
type Config struct {
	OAuthServer string   `env:"SMOELEN_OAUTH_SERVER" envDefault:"http://localhost:8000/o"`
	ClientID    string   `env:"SMOELEN_CLIENT_ID,required"`
	APIBase     string   `env:"SMOELEN_API_BASE"     envDefault:"http://localhost:7000"`
	RedirectURL string   `env:"SMOELEN_REDIRECT_URL" envDefault:"http://localhost:5173"`
	Scopes      []string `env:"SMOELEN_SCOPES"       envDefault:"openid,user/basic,media" envSeparator:","`

	SessionStore string `env:"SMOELEN_SESSION_STORE" envDefault:"file"`
	SessionFile  string `env:"SMOELEN_SESSION_FILE"`
	RedisAddr    string `env:"SMOELEN_REDIS_ADDR"    envDefault:"localhost:6379"`
	SQLitePath   string `env:"SMOELEN_SQLITE_PATH"`

	ServeAddr    string `env:"SMOELEN_SERVE_ADDR"    envDefault:":8090"`
	OTLPEndpoint string `env:"SMOELEN_OTLP_ENDPOINT"`
	Debug        bool   `env:"SMOELEN_DEBUG"`
}

// Load reads the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads environ instead of the process environment.
func LoadFrom(environ map[string]string) (Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.Scopes = trimCSV(cfg.Scopes)
	cfg.SessionStore = strings.ToLower(strings.TrimSpace(cfg.SessionStore))

	switch cfg.SessionStore {
	case StoreFile, StoreRedis, StoreSQLite:
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownSessionStore, cfg.SessionStore)
	}

	if cfg.SessionFile == "" || cfg.SQLitePath == "" {
		dir, err := configDir(opts.Environment)
		if err != nil {
			return Config{}, err
		}
		if cfg.SessionFile == "" {
			cfg.SessionFile = filepath.Join(dir, "session.json")
		}
		if cfg.SQLitePath == "" {
			cfg.SQLitePath = filepath.Join(dir, "session.db")
		}
	}

	if err := cfg.Auth().Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Auth is the OAuth registration.
func (c Config) Auth() auth.Config {
	return auth.Config{
		OAuthServer: c.OAuthServer,
		ClientID:    c.ClientID,
		RedirectURL: c.RedirectURL,
		Scopes:      c.Scopes,
	}
}

// configDir is $XDG_CONFIG_HOME/smoelen, falling back to the OS default.
func configDir(environ map[string]string) (string, error) {
	if environ != nil {
		if xdg := environ["XDG_CONFIG_HOME"]; xdg != "" {
			return filepath.Join(xdg, "smoelen"), nil
		}
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(base, "smoelen"), nil
}

func trimCSV(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
