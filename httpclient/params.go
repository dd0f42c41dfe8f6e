package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// ResponseFormat selects how a response body is parsed into the envelope.
type ResponseFormat string

const (
	// FormatNone leaves the body unparsed; only Response.Bytes is populated.
	FormatNone  ResponseFormat = ""
	FormatJSON  ResponseFormat = "json"
	FormatText  ResponseFormat = "text"
	FormatBytes ResponseFormat = "bytes"
)

// CredentialsMode controls whether ambient credentials (cookies from the
// client's jar and any Cookie header) accompany a request. Explicit
// Authorization headers are never affected.
type CredentialsMode string

const (
	CredentialsOmit       CredentialsMode = "omit"
	CredentialsSameOrigin CredentialsMode = "same-origin"
	CredentialsInclude    CredentialsMode = "include"
)

// RedirectMode controls how 3xx responses are handled.
type RedirectMode string

const (
	RedirectFollow RedirectMode = "follow"
	RedirectError  RedirectMode = "error"
	RedirectManual RedirectMode = "manual"
)

// ReferrerPolicy controls the Referer header.
type ReferrerPolicy string

const (
	ReferrerNoReferrer ReferrerPolicy = "no-referrer"
	ReferrerUnsafeURL  ReferrerPolicy = "unsafe-url"
)

// ErrRedirectBlocked is returned when a redirect is received under
// RedirectError.
var ErrRedirectBlocked = errors.New("httpclient: redirect blocked by policy")

const maxRedirects = 10

// RequestParams are the per-request options. They are layered:
// package defaults, then client instance params, then params returned by
// the security provider, then per-call params. A zero field inherits from
// the layer below; Headers merge key by key.
type RequestParams struct {
	Headers        map[string]string
	Credentials    CredentialsMode
	Redirect       RedirectMode
	ReferrerPolicy ReferrerPolicy
	Secure         *bool
	Format         ResponseFormat
}

// DefaultRequestParams returns the package defaults.
func DefaultRequestParams() RequestParams {
	return RequestParams{
		Credentials:    CredentialsSameOrigin,
		Redirect:       RedirectFollow,
		ReferrerPolicy: ReferrerNoReferrer,
	}
}

// Merge returns a new RequestParams with each layer applied over p in
// order. Neither p nor any layer is modified.
func (p RequestParams) Merge(layers ...RequestParams) RequestParams {
	out := p
	out.Headers = make(map[string]string, len(p.Headers))
	for k, v := range p.Headers {
		out.Headers[http.CanonicalHeaderKey(k)] = v
	}

	for _, l := range layers {
		for k, v := range l.Headers {
			out.Headers[http.CanonicalHeaderKey(k)] = v
		}
		if l.Credentials != "" {
			out.Credentials = l.Credentials
		}
		if l.Redirect != "" {
			out.Redirect = l.Redirect
		}
		if l.ReferrerPolicy != "" {
			out.ReferrerPolicy = l.ReferrerPolicy
		}
		if l.Secure != nil {
			secure := *l.Secure
			out.Secure = &secure
		}
		if l.Format != "" {
			out.Format = l.Format
		}
	}

	return out
}

// Bool returns a pointer to b, for RequestParams.Secure and
// FullRequest.Secure.
func Bool(b bool) *bool {
	return &b
}

type policyKey struct{}

type requestPolicy struct {
	params RequestParams
	origin *url.URL
}

func withPolicy(ctx context.Context, p RequestParams, origin *url.URL) context.Context {
	return context.WithValue(ctx, policyKey{}, requestPolicy{params: p, origin: origin})
}

// checkRedirect applies the redirect and referrer policies carried in the
// request context.
func checkRedirect(req *http.Request, via []*http.Request) error {
	policy, ok := req.Context().Value(policyKey{}).(requestPolicy)
	if !ok {
		policy.params = DefaultRequestParams()
		policy.origin = via[0].URL
	}
	p := policy.params

	switch p.Redirect {
	case RedirectManual:
		return http.ErrUseLastResponse
	case RedirectError:
		return ErrRedirectBlocked
	}

	if len(via) >= maxRedirects {
		return errors.New("httpclient: stopped after 10 redirects")
	}
	if p.ReferrerPolicy == ReferrerNoReferrer || p.ReferrerPolicy == "" {
		req.Header.Del("Referer")
	}
	if !allowsCredentials(p.Credentials, policy.origin, req.URL) {
		req.Header.Del("Cookie")
	}
	return nil
}

// applyPolicies strips headers the merged params forbid.
func applyPolicies(req *http.Request, p RequestParams, origin *url.URL) {
	if p.ReferrerPolicy == ReferrerNoReferrer {
		req.Header.Del("Referer")
	}
	if !allowsCredentials(p.Credentials, origin, req.URL) {
		req.Header.Del("Cookie")
	}
}

func allowsCredentials(mode CredentialsMode, origin, target *url.URL) bool {
	switch mode {
	case CredentialsInclude:
		return true
	case CredentialsOmit:
		return false
	default:
		return sameOrigin(origin, target)
	}
}

func sameOrigin(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}
