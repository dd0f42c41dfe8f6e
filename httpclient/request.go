package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// FullRequest describes one call. Endpoint methods build a fresh value
// per call.
type FullRequest struct {
	// Path is appended to BaseURL. An absolute URL is used as is.
	Path   string
	Method string
	Query  QueryParams

	// Body is serialized according to Type. Nil sends no body.
	Body any
	Type ContentType

	// Format selects how the response is parsed. Empty falls back to the
	// merged params' Format, and then to no parsing.
	Format ResponseFormat

	// BaseURL overrides the client's base URL.
	BaseURL string

	// CancelToken, when non-nil, registers the request so Client.Abort
	// can cancel it. It must be comparable. Requests sharing a token stay
	// abortable until the last of them completes.
	CancelToken any

	// Secure asks for the security provider's params. Nil inherits from
	// Params.Secure and then the client instance.
	Secure *bool

	// Params are the per-call overrides.
	Params RequestParams
}

// Request sends r and returns the typed envelope.
//
// On a 2xx response the envelope is returned with a nil error. On any
// other status the envelope is returned together with a
// *RequestFailedError. Transport failures, including cancellation, return
// a nil envelope and the error from net/http.
func Request[T, E any](ctx context.Context, c *Client, r FullRequest) (*Response[T, E], error) {
	params, err := c.mergeParams(ctx, r)
	if err != nil {
		return nil, err
	}

	format := r.Format
	if format == FormatNone {
		format = params.Format
	}

	target, err := c.resolveURL(r)
	if err != nil {
		return nil, err
	}

	body, err := formatBody(r.Type, r.Body)
	if err != nil {
		return nil, err
	}

	if r.CancelToken != nil {
		handle := c.registry.acquire(r.CancelToken)
		defer c.registry.release(r.CancelToken, handle)

		var stop context.CancelFunc
		ctx, stop = bind(ctx, handle.ctx)
		defer stop()
	}

	req, err := c.newHTTPRequest(ctx, r, params, target, body)
	if err != nil {
		return nil, err
	}

	if c.cfg.Debug {
		logRequest(c.cfg.Logger, req)
	}
	start := time.Now()

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		if c.cfg.Debug {
			logFailure(c.cfg.Logger, req, err, time.Since(start))
		}
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	httpResp.Body = io.NopCloser(bytes.NewReader(raw))

	if c.cfg.Debug {
		logResponse(c.cfg.Logger, req, httpResp, time.Since(start))
	}
	if jar := c.cfg.CookieJar; jar != nil && allowsCredentials(params.Credentials, c.origin, req.URL) {
		jar.SetCookies(req.URL, httpResp.Cookies())
	}

	resp := &Response[T, E]{Response: httpResp, body: raw}
	if c.cfg.GenerateCurl {
		resp.curlCommand = curlCommand(req, body.raw)
	}

	resp.parse(format)

	if !resp.OK() {
		return resp, resp.failure()
	}
	return resp, nil
}

// mergeParams layers package defaults, instance params, security params
// and call params.
func (c *Client) mergeParams(ctx context.Context, r FullRequest) (RequestParams, error) {
	instance := c.cfg.RequestParams

	secure := false
	for _, s := range []*bool{instance.Secure, r.Params.Secure, r.Secure} {
		if s != nil {
			secure = *s
		}
	}

	var security RequestParams
	if secure && c.cfg.Security != nil {
		p, err := c.cfg.Security.Provide(ctx, c.SecurityData())
		if err != nil {
			return RequestParams{}, fmt.Errorf("security provider: %w", err)
		}
		if p != nil {
			security = *p
		}
	}

	return DefaultRequestParams().Merge(instance, security, r.Params), nil
}

func (c *Client) resolveURL(r FullRequest) (string, error) {
	target := r.Path

	if u, err := url.Parse(r.Path); err != nil || !u.IsAbs() {
		base := r.BaseURL
		if base == "" {
			base = c.cfg.BaseURL
		}
		if strings.HasSuffix(base, "/") && strings.HasPrefix(r.Path, "/") {
			base = strings.TrimSuffix(base, "/")
		}
		target = base + r.Path
	}

	if qs := ToQueryString(r.Query); qs != "" {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + qs
	}

	if _, err := url.Parse(target); err != nil {
		return "", fmt.Errorf("invalid request url: %w", err)
	}
	return target, nil
}

func (c *Client) newHTTPRequest(
	ctx context.Context,
	r FullRequest,
	params RequestParams,
	target string,
	body formattedBody,
) (*http.Request, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	ctx = withPolicy(ctx, params, c.origin)

	req, err := http.NewRequestWithContext(ctx, method, target, body.reader)
	if err != nil {
		return nil, err
	}

	for k, v := range params.Headers {
		req.Header.Set(k, v)
	}

	switch {
	case body.contentType != "":
		req.Header.Set("Content-Type", body.contentType)
	case r.Type != "" && r.Type != ContentTypeFormData:
		req.Header.Set("Content-Type", string(r.Type))
	}

	if jar := c.cfg.CookieJar; jar != nil {
		for _, ck := range jar.Cookies(req.URL) {
			req.AddCookie(ck)
		}
	}
	applyPolicies(req, params, c.origin)

	return req, nil
}
