// Package app implements the smoelen command line.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/kroma-labs/smoelen/api"
	"github.com/kroma-labs/smoelen/auth"
	"github.com/kroma-labs/smoelen/httpclient"
	"github.com/kroma-labs/smoelen/internal/config"
	"github.com/kroma-labs/smoelen/internal/logging"
	"github.com/kroma-labs/smoelen/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	_ "modernc.org/sqlite"
)

const cliName = "smoelen"

// Version is set at build time with -ldflags "-X".
var Version = "dev"

// ErrNotLoggedIn is returned by commands that need a token when there is
// no valid one.
var ErrNotLoggedIn = errors.New("not logged in, run `smoelen login`")

// GlobalOptions are shared by every command.
type GlobalOptions struct {
	Debug bool

	// Environ replaces the process environment when set.
	Environ map[string]string

	// Transport replaces the HTTP transport of every client when set.
	Transport http.RoundTripper
}

// NewSmoelenCommand returns the root command.
func NewSmoelenCommand() *cobra.Command {
	return newRootCommand(&GlobalOptions{})
}

func newRootCommand(opts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   cliName,
		Short: "Photo album client",
		Long: `smoelen logs in to the photo album service and manages albums and items
from the terminal. "smoelen serve" runs a local JSON gateway in front of the API.

Configuration comes from SMOELEN_* environment variables; SMOELEN_CLIENT_ID is
required.`,
		Version:      Version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "log requests and responses")

	cmd.AddCommand(
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newWhoamiCommand(opts),
		newAlbumsCommand(opts),
		newItemsCommand(opts),
		newServeCommand(opts),
	)
	return cmd
}

// session is what a command needs: configuration, logger and the stored
// login.
type session struct {
	opts   *GlobalOptions
	cfg    config.Config
	logger zerolog.Logger
	store  auth.SessionStore
	close  func() error
}

func openSession(cmd *cobra.Command, opts *GlobalOptions) (*session, error) {
	var (
		cfg config.Config
		err error
	)
	if opts.Environ != nil {
		cfg, err = config.LoadFrom(opts.Environ)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if opts.Debug {
		cfg.Debug = true
	}

	logger := logging.New(cmd.ErrOrStderr(), cfg.Debug)

	store, closeFn, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("store", cfg.SessionStore).Msg("session store opened")

	return &session{opts: opts, cfg: cfg, logger: logger, store: store, close: closeFn}, nil
}

func openStore(ctx context.Context, cfg config.Config) (auth.SessionStore, func() error, error) {
	switch cfg.SessionStore {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return auth.NewRedisStore(client), client.Close, nil

	case config.StoreSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o700); err != nil {
			return nil, nil, fmt.Errorf("create session dir: %w", err)
		}
		store, err := auth.OpenSQLStore(ctx, "sqlite", cfg.SQLitePath,
			sqlx.WithDBSystem("sqlite"),
			sqlx.WithDBName("session"),
			sqlx.WithQuerySanitizer(sqlx.DefaultQuerySanitizer),
		)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	default:
		return auth.NewFileStore(cfg.SessionFile), func() error { return nil }, nil
	}
}

func (s *session) Close() error {
	return s.close()
}

func (s *session) clientOptions(extra ...httpclient.Option) []httpclient.Option {
	opts := []httpclient.Option{
		httpclient.WithLogger(s.logger),
		httpclient.WithDebug(s.cfg.Debug),
	}
	if s.opts.Transport != nil {
		opts = append(opts, httpclient.WithTransport(s.opts.Transport))
	}
	return append(opts, extra...)
}

func (s *session) bootstrapper() *auth.Bootstrapper {
	return auth.NewBootstrapper(s.cfg.Auth(), s.store,
		auth.WithLogger(s.logger),
		auth.WithHTTPClient(httpclient.New(s.clientOptions(
			httpclient.WithServiceName("smoelen-oauth"),
		)...)),
	)
}

// token returns the stored token if it is still valid. It only reads the
// session, so a login in another process keeps its state.
func (s *session) token(ctx context.Context) (string, error) {
	token, err := s.bootstrapper().Token(ctx)
	if errors.Is(err, auth.ErrNoValidToken) {
		return "", ErrNotLoggedIn
	}
	return token, err
}

// api returns the API surface authenticated as the logged-in user.
func (s *session) api(ctx context.Context, extra ...httpclient.Option) (*api.API, error) {
	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}
	return api.New(s.cfg.APIBase, token, s.clientOptions(extra...)...), nil
}

// withSession opens the session around fn.
func withSession(
	opts *GlobalOptions,
	fn func(cmd *cobra.Command, args []string, s *session) error,
) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, opts)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(cmd, args, s)
	}
}
