package httpclient

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/rs/zerolog"
)

// Client sends typed requests to one API. It is safe for concurrent use.
//
//	client := httpclient.New(
//	    httpclient.WithBaseURL("http://localhost:7000"),
//	    httpclient.WithSecurityProvider(httpclient.BearerSecurity()),
//	    httpclient.WithServiceName("smoelen-api"),
//	)
//	client.SetSecurityData(token)
//
//	resp, err := httpclient.Request[[]Album, any](ctx, client, httpclient.FullRequest{
//	    Path:   "/albums",
//	    Method: http.MethodGet,
//	    Secure: httpclient.Bool(true),
//	    Format: httpclient.FormatJSON,
//	})
type Client struct {
	httpClient *http.Client
	cfg        *internalConfig
	origin     *url.URL
	registry   *cancelRegistry

	mu           sync.RWMutex
	securityData any
}

// New builds a Client. The transport chain, innermost first, is: the
// pooled base transport (or WithTransport/WithMockTransport), the rate
// limiter, retries, the circuit breaker, then OpenTelemetry. The optional
// layers are off unless configured.
func New(opts ...Option) *Client {
	cfg := newConfig(opts...)

	rt := cfg.baseTransport()
	rt = newRateLimitTransport(rt, cfg)
	rt = newRetryTransport(rt, cfg)
	rt = newBreakerTransport(rt, cfg)
	rt = newOtelTransport(rt, cfg)

	c := &Client{
		httpClient: &http.Client{
			Transport:     rt,
			Timeout:       cfg.httpConfig.Timeout,
			CheckRedirect: checkRedirect,
		},
		cfg:          cfg,
		registry:     newCancelRegistry(),
		securityData: cfg.SecurityData,
	}

	if u, err := url.Parse(cfg.BaseURL); err == nil && u.Host != "" {
		c.origin = u
	}

	return c
}

// HTTP returns the underlying *http.Client, with the full transport chain,
// for callers that need to hand it to other libraries.
func (c *Client) HTTP() *http.Client {
	return c.httpClient
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// Logger returns the client's logger.
func (c *Client) Logger() zerolog.Logger {
	return c.cfg.Logger
}

// SetSecurityData replaces the value handed to the security provider on
// subsequent secure requests.
func (c *Client) SetSecurityData(data any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.securityData = data
}

// SecurityData returns the current security data.
func (c *Client) SecurityData() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.securityData
}

// Abort cancels every in-flight request started with token and forgets
// the token. A token stays abortable while any request using it runs. It reports whether anything was cancelled. Aborting an
// unknown token is a no-op.
func (c *Client) Abort(token any) bool {
	if !c.registry.cancel(token) {
		return false
	}
	c.cfg.Metrics.recordCancelled(context.Background(), c.cfg.baseAttributes())
	c.cfg.Logger.Debug().Interface("token", token).Msg("request aborted")
	return true
}

// Pending returns the number of live cancel tokens.
func (c *Client) Pending() int {
	return c.registry.len()
}
