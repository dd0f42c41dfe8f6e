package httpclient

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the opt-in client-side rate limiter.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate. Zero or less disables
	// limiting.
	RequestsPerSecond float64

	// Burst is how many requests may go out back to back.
	Burst int

	// WaitOnLimit blocks until a token is free (bounded by the request
	// context). When false, requests over the limit fail with
	// ErrRateLimited.
	WaitOnLimit bool

	// PerHost keeps a separate bucket per target host, so bulk item
	// downloads from a file host do not starve API calls.
	PerHost bool
}

// DefaultRateLimitConfig allows 10 requests per second with a burst of 5,
// waiting when the bucket is empty.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		Burst:             5,
		WaitOnLimit:       true,
	}
}

// ErrRateLimited is returned when a request is rejected by the limiter.
var ErrRateLimited = errors.New("httpclient: rate limit exceeded")

type rateLimitTransport struct {
	next http.RoundTripper
	cfg  RateLimitConfig

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newRateLimitTransport(next http.RoundTripper, cfg *internalConfig) http.RoundTripper {
	if cfg.RateLimit == nil || cfg.RateLimit.RequestsPerSecond <= 0 {
		return next
	}
	rl := *cfg.RateLimit
	if rl.Burst <= 0 {
		rl.Burst = 1
	}
	return &rateLimitTransport{
		next:     next,
		cfg:      rl,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (t *rateLimitTransport) limiter(host string) *rate.Limiter {
	key := ""
	if t.cfg.PerHost {
		key = host
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(t.cfg.RequestsPerSecond), t.cfg.Burst)
		t.limiters[key] = l
	}
	return l
}

func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	l := t.limiter(req.URL.Host)

	if !t.cfg.WaitOnLimit {
		if !l.Allow() {
			return nil, ErrRateLimited
		}
		return t.next.RoundTrip(req)
	}

	if err := l.Wait(req.Context()); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		// The wait would outlast the context deadline.
		return nil, ErrRateLimited
	}
	return t.next.RoundTrip(req)
}
