package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RetryConfig configures the opt-in retry layer. The zero value (and
// NoRetryConfig) disables retries, which is the client default.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries uint

	InitialInterval time.Duration
	MaxInterval     time.Duration

	// MaxElapsedTime bounds the whole retry loop. Zero means unbounded.
	MaxElapsedTime time.Duration

	Multiplier float64

	// JitterFactor randomizes each delay by +/- this fraction.
	JitterFactor float64
}

// DefaultRetryConfig returns 3 retries starting at 500ms, doubling, with
// 50% jitter and a 2 minute budget.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
		MaxElapsedTime:  2 * time.Minute,
		Multiplier:      2.0,
		JitterFactor:    0.5,
	}
}

// NoRetryConfig disables retries.
func NoRetryConfig() RetryConfig {
	return RetryConfig{}
}

// IsEnabled reports whether any retry will be attempted.
func (c RetryConfig) IsEnabled() bool {
	return c.MaxRetries > 0
}

// newExponentialBackOff builds a cenkalti/backoff policy from c.
func (c RetryConfig) newExponentialBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if c.InitialInterval > 0 {
		b.InitialInterval = c.InitialInterval
	}
	if c.MaxInterval > 0 {
		b.MaxInterval = c.MaxInterval
	}
	if c.Multiplier > 0 {
		b.Multiplier = c.Multiplier
	}
	if c.JitterFactor > 0 {
		b.RandomizationFactor = c.JitterFactor
	}
	return b
}

// RetryClassifier reports whether a failed attempt should be retried.
type RetryClassifier func(resp *http.Response, err error) bool

// DefaultClassifier retries transient network errors and 429/502/503/504
// for idempotent methods only. Cancellation and TLS failures are final.
func DefaultClassifier(resp *http.Response, err error) bool {
	var req *http.Request
	if resp != nil {
		req = resp.Request
	}

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		var certErr *tls.CertificateVerificationError
		if errors.As(err, &certErr) {
			return false
		}
		return isTransientNetworkError(err)
	}

	if req != nil && !isIdempotent(req.Method) {
		return false
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

func isTransientNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// retryTransport re-sends failed requests per RetryConfig.
type retryTransport struct {
	next       http.RoundTripper
	cfg        *internalConfig
	classifier RetryClassifier
}

func newRetryTransport(next http.RoundTripper, cfg *internalConfig) http.RoundTripper {
	if !cfg.RetryConfig.IsEnabled() {
		return next
	}

	classifier := cfg.RetryClassifier
	if classifier == nil {
		classifier = DefaultClassifier
	}

	return &retryTransport{next: next, cfg: cfg, classifier: classifier}
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	rc := t.cfg.RetryConfig
	attrs := t.cfg.baseAttributes()
	span := trace.SpanFromContext(ctx)

	body, err := snapshotBody(req)
	if err != nil {
		return nil, err
	}

	var b backoff.BackOff = rc.newExponentialBackOff()
	if t.cfg.RetryBackOff != nil {
		b = t.cfg.RetryBackOff
		b.Reset()
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(rc.MaxRetries + 1),
		backoff.WithNotify(func(err error, next time.Duration) {
			span.AddEvent("http.retry", trace.WithAttributes(
				attribute.Int64("retry.delay_ms", next.Milliseconds()),
				attribute.String("retry.reason", err.Error()),
			))
		}),
	}
	if rc.MaxElapsedTime > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(rc.MaxElapsedTime))
	}

	start := time.Now()
	attempt := 0

	resp, err := backoff.Retry(ctx, func() (*http.Response, error) {
		if attempt > 0 {
			t.cfg.Metrics.recordRetryAttempt(ctx, attrs, attempt)
		}
		attempt++

		resp, err := t.next.RoundTrip(withBody(req, body))
		if !t.classifier(resp, err) {
			if err != nil {
				return nil, backoff.Permanent(err)
			}
			return resp, nil
		}

		if err == nil {
			// Retryable status: keep the body and report it to the loop.
			if err := bufferBody(resp); err != nil {
				return nil, err
			}
			return nil, &retryableStatusError{resp: resp}
		}
		return nil, err
	}, opts...)

	t.cfg.Metrics.recordRetryDuration(ctx, attrs, time.Since(start))

	var rs *retryableStatusError
	if errors.As(err, &rs) {
		// Out of attempts on a retryable status: hand back the last response.
		t.cfg.Metrics.recordRetryExhausted(ctx, attrs)
		return rs.resp, nil
	}
	if err != nil && attempt > 1 {
		t.cfg.Metrics.recordRetryExhausted(ctx, attrs)
	}
	return resp, err
}

type retryableStatusError struct {
	resp *http.Response
}

func (e *retryableStatusError) Error() string {
	return "retryable status " + e.resp.Status
}

// snapshotBody buffers the request body so every attempt can resend it.
func snapshotBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	b, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, err
	}
	return b, nil
}

func withBody(req *http.Request, body []byte) *http.Request {
	clone := req.Clone(req.Context())
	if body != nil {
		clone.Body = io.NopCloser(bytes.NewReader(body))
		clone.ContentLength = int64(len(body))
	}
	return clone
}

// bufferBody reads and closes resp.Body, replacing it with an in-memory
// copy so the connection is released before the next attempt.
func bufferBody(resp *http.Response) error {
	if resp.Body == nil {
		return nil
	}
	b, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return err
	}
	resp.Body = io.NopCloser(bytes.NewReader(b))
	return nil
}
