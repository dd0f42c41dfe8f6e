package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kroma-labs/smoelen/httpclient"
	"github.com/rs/zerolog"
)

// ErrNoValidToken is returned by Token when no unexpired token is stored.
var ErrNoValidToken = errors.New("auth: no valid token")

// State is where a session stands when the bootstrap runs.
type State int

const (
	NoToken State = iota
	HasExpiredToken
	HasValidToken
	AwaitingCallback
)

func (s State) String() string {
	switch s {
	case NoToken:
		return "no_token"
	case HasExpiredToken:
		return "expired_token"
	case HasValidToken:
		return "valid_token"
	case AwaitingCallback:
		return "awaiting_callback"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Kind tells the caller what to do next.
type Kind int

const (
	// Ready means Token can be used.
	Ready Kind = iota + 1

	// Redirect means the user must visit RedirectURL to log in.
	Redirect
)

func (k Kind) String() string {
	switch k {
	case Ready:
		return "ready"
	case Redirect:
		return "redirect"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Directive is the outcome of a bootstrap.
type Directive struct {
	Kind  Kind
	Token string

	// CleanURL is the callback URL without code and state, set after an
	// exchange. Show it in place of the callback URL.
	CleanURL *url.URL

	RedirectURL string
}

// Bootstrapper decides, on every start, whether the stored token is usable,
// whether a callback must be exchanged, or whether the user must log in.
type Bootstrapper struct {
	cfg      Config
	store    SessionStore
	client   *httpclient.Client
	logger   zerolog.Logger
	now      func() time.Time
	newState func() string
}

// Option configures a Bootstrapper.
type Option func(*Bootstrapper)

// WithHTTPClient sets the client used for the token endpoint.
func WithHTTPClient(c *httpclient.Client) Option {
	return func(b *Bootstrapper) { b.client = c }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Bootstrapper) { b.logger = l }
}

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(b *Bootstrapper) { b.now = now }
}

// WithStateGenerator replaces the random anti-forgery state.
func WithStateGenerator(fn func() string) Option {
	return func(b *Bootstrapper) { b.newState = fn }
}

// NewBootstrapper returns a Bootstrapper persisting into store.
func NewBootstrapper(cfg Config, store SessionStore, opts ...Option) *Bootstrapper {
	b := &Bootstrapper{
		cfg:      cfg,
		store:    store,
		logger:   zerolog.Nop(),
		now:      time.Now,
		newState: uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.client == nil {
		b.client = httpclient.New(
			httpclient.WithServiceName("smoelen-oauth"),
			httpclient.WithLogger(b.logger),
		)
	}
	return b
}

// Config returns the OAuth registration in use.
func (b *Bootstrapper) Config() Config {
	return b.cfg
}

// Store returns the session store.
func (b *Bootstrapper) Store() SessionStore {
	return b.store
}

// Run resolves the session for a start at current, which may be nil.
//
// When current carries a code and the state stored by the last redirect,
// the state is consumed, the code exchanged and the new token stored. The
// token is then used without checking its expiry. A callback whose state
// does not match is ignored.
//
// Otherwise the stored token is used while it has not expired. An absent,
// undecodable or expired token yields a Redirect with a fresh state.
func (b *Bootstrapper) Run(ctx context.Context, current *url.URL) (Directive, error) {
	if current != nil {
		d, ok, err := b.callback(ctx, current)
		if err != nil || ok {
			return d, err
		}
	}

	token, err := lookup(ctx, b.store, KeyToken)
	if err != nil {
		return Directive{}, fmt.Errorf("load token: %w", err)
	}

	state := b.inspect(token)
	b.logger.Debug().Stringer("state", state).Msg("session inspected")

	if state != HasValidToken {
		return b.redirect(ctx)
	}
	return Directive{Kind: Ready, Token: token}, nil
}

// Inspect reports the state of the stored session.
func (b *Bootstrapper) Inspect(ctx context.Context) (State, error) {
	token, err := lookup(ctx, b.store, KeyToken)
	if err != nil {
		return NoToken, err
	}
	if token == "" {
		pending, err := lookup(ctx, b.store, KeyState)
		if err != nil {
			return NoToken, err
		}
		if pending != "" {
			return AwaitingCallback, nil
		}
	}
	return b.inspect(token), nil
}

// Token returns the stored token while it is valid. Unlike Run it never
// writes to the store, so a login waiting for its callback is left intact.
func (b *Bootstrapper) Token(ctx context.Context) (string, error) {
	token, err := lookup(ctx, b.store, KeyToken)
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	if state := b.inspect(token); state != HasValidToken {
		b.logger.Debug().Stringer("state", state).Msg("no usable token")
		return "", ErrNoValidToken
	}
	return token, nil
}

func (b *Bootstrapper) inspect(token string) State {
	switch {
	case token == "":
		return NoToken
	case Expired(token, b.now()):
		return HasExpiredToken
	default:
		return HasValidToken
	}
}

func (b *Bootstrapper) callback(ctx context.Context, current *url.URL) (Directive, bool, error) {
	query := current.Query()
	if !query.Has("code") {
		return Directive{}, false, nil
	}

	stored, err := lookup(ctx, b.store, KeyState)
	if err != nil {
		return Directive{}, false, fmt.Errorf("load state: %w", err)
	}
	if stored == "" || query.Get("state") != stored {
		b.logger.Debug().
			Bool("has_stored_state", stored != "").
			Msg("callback state mismatch, ignoring code")
		return Directive{}, false, nil
	}

	if err := b.store.Delete(ctx, KeyState); err != nil {
		return Directive{}, false, fmt.Errorf("consume state: %w", err)
	}

	token, err := Exchange(ctx, b.client, b.cfg, query.Get("code"))
	if err != nil {
		return Directive{}, false, err
	}
	if err := b.store.Set(ctx, KeyToken, token); err != nil {
		return Directive{}, false, fmt.Errorf("store token: %w", err)
	}

	b.logger.Debug().Msg("authorization code exchanged")
	return Directive{Kind: Ready, Token: token, CleanURL: cleanURL(current)}, true, nil
}

func (b *Bootstrapper) redirect(ctx context.Context) (Directive, error) {
	state := b.newState()
	if err := b.store.Set(ctx, KeyState, state); err != nil {
		return Directive{}, fmt.Errorf("store state: %w", err)
	}
	return Directive{Kind: Redirect, RedirectURL: b.cfg.AuthorizeURL(state)}, nil
}

// cleanURL copies u without the callback parameters. The remaining pairs
// keep their order and encoding.
func cleanURL(u *url.URL) *url.URL {
	clean := *u
	var kept []string
	for _, pair := range strings.Split(u.RawQuery, "&") {
		if pair == "" {
			continue
		}
		rawKey, _, _ := strings.Cut(pair, "=")
		if key, err := url.QueryUnescape(rawKey); err == nil && (key == "code" || key == "state") {
			continue
		}
		kept = append(kept, pair)
	}
	clean.RawQuery = strings.Join(kept, "&")
	return &clean
}
