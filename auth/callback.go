package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/kroma-labs/smoelen/httpserver"
	"github.com/rs/zerolog"
)

// ErrCallbackClosed is returned by Await when the listener stops before a
// callback arrives.
var ErrCallbackClosed = errors.New("auth: callback listener closed")

const (
	callbackDone   = "Login complete. You can close this window."
	callbackFailed = "Login failed. Check the terminal for details."
)

type callbackResult struct {
	url *url.URL
	err error
}

// CallbackServer receives the authorization redirect on the host and port
// of the redirect URL. It accepts one callback and then stops.
type CallbackServer struct {
	redirect *url.URL
	server   *httpserver.Server
	logger   zerolog.Logger

	once    sync.Once
	results chan callbackResult
}

// NewCallbackServer prepares a listener for redirectURL.
func NewCallbackServer(redirectURL string, logger zerolog.Logger) (*CallbackServer, error) {
	u, err := url.Parse(redirectURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: redirect url %q", ErrInvalidURL, redirectURL)
	}

	c := &CallbackServer{
		redirect: u,
		logger:   logger,
		results:  make(chan callbackResult, 1),
	}
	c.server = httpserver.New(
		httpserver.WithConfig(httpserver.CallbackConfig(listenAddr(u))),
		httpserver.WithLogger(logger),
		httpserver.WithMiddleware(httpserver.DefaultMiddleware(logger)),
		httpserver.WithHandler(http.HandlerFunc(c.handle)),
	)
	return c, nil
}

// Addr is the address the callback is expected on.
func (c *CallbackServer) Addr() string {
	return c.server.Addr()
}

func listenAddr(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	if u.Scheme == "https" {
		return net.JoinHostPort(u.Hostname(), "443")
	}
	return net.JoinHostPort(u.Hostname(), "80")
}

func (c *CallbackServer) path() string {
	if c.redirect.Path == "" {
		return "/"
	}
	return c.redirect.Path
}

func (c *CallbackServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != c.path() {
		http.NotFound(w, r)
		return
	}

	query := r.URL.Query()
	switch {
	case query.Has("error"):
		oauthErr := OAuthError{Code: query.Get("error"), Description: query.Get("error_description")}
		c.logger.Warn().Str("error", oauthErr.Code).Msg("authorization denied")
		c.deliver(callbackResult{err: oauthErr})
		http.Error(w, callbackFailed, http.StatusBadRequest)
	case query.Has("code"):
		callback := *c.redirect
		callback.RawQuery = r.URL.RawQuery
		c.deliver(callbackResult{url: &callback})
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(callbackDone))
	default:
		http.Error(w, "missing code", http.StatusBadRequest)
	}
}

func (c *CallbackServer) deliver(res callbackResult) {
	c.once.Do(func() { c.results <- res })
}

// Await serves on ln until the first callback, then shuts down and returns
// the callback URL. An OAuth error redirect is returned as an OAuthError.
func (c *CallbackServer) Await(ctx context.Context, ln net.Listener) (*url.URL, error) {
	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- c.server.Serve(serveCtx, ln) }()

	select {
	case res := <-c.results:
		cancel()
		<-errc
		return res.url, res.err
	case err := <-errc:
		if err == nil {
			err = ErrCallbackClosed
		}
		return nil, err
	case <-ctx.Done():
		cancel()
		<-errc
		return nil, ctx.Err()
	}
}
