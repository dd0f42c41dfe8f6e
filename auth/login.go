package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
)

// ErrLoginIncomplete is returned by Login when the callback did not yield
// a token, for example because its state did not match.
var ErrLoginIncomplete = errors.New("auth: login did not complete")

// Opener sends the user to the authorization URL.
type Opener interface {
	Open(url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(url string) error

func (f OpenerFunc) Open(url string) error {
	return f(url)
}

// PrintOpener asks the user to open the URL themselves.
func PrintOpener(w io.Writer) Opener {
	return OpenerFunc(func(url string) error {
		_, err := fmt.Fprintf(w, "Open this URL in your browser to log in:\n\n  %s\n\n", url)
		return err
	})
}

type loginConfig struct {
	listener net.Listener
}

// LoginOption configures Login.
type LoginOption func(*loginConfig)

// WithListener serves the callback on ln instead of binding the redirect
// URL's address.
func WithListener(ln net.Listener) LoginOption {
	return func(c *loginConfig) { c.listener = ln }
}

// Login runs the interactive authorization code flow. A usable stored
// token is returned as is. Otherwise the user is sent to the provider via
// opener and the redirect is awaited on the local callback listener.
func Login(ctx context.Context, b *Bootstrapper, opener Opener, opts ...LoginOption) (Directive, error) {
	var cfg loginConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	d, err := b.Run(ctx, nil)
	if err != nil || d.Kind == Ready {
		return d, err
	}

	cs, err := NewCallbackServer(b.cfg.RedirectURL, b.logger)
	if err != nil {
		return Directive{}, err
	}

	ln := cfg.listener
	if ln == nil {
		ln, err = net.Listen("tcp", cs.Addr())
		if err != nil {
			return Directive{}, fmt.Errorf("listen for callback: %w", err)
		}
	}

	if err := opener.Open(d.RedirectURL); err != nil {
		_ = ln.Close()
		return Directive{}, fmt.Errorf("open authorization url: %w", err)
	}
	b.logger.Info().Str("addr", ln.Addr().String()).Msg("waiting for authorization callback")

	callback, err := cs.Await(ctx, ln)
	if err != nil {
		return Directive{}, fmt.Errorf("await callback: %w", err)
	}

	d, err = b.Run(ctx, callback)
	if err != nil {
		return Directive{}, err
	}
	if d.Kind != Ready {
		return d, ErrLoginIncomplete
	}
	return d, nil
}

// Logout forgets the stored token and any pending state.
func Logout(ctx context.Context, store SessionStore) error {
	if err := store.Delete(ctx, KeyToken); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if err := store.Delete(ctx, KeyState); err != nil {
		return fmt.Errorf("delete state: %w", err)
	}
	return nil
}
