package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	scope = "github.com/kroma-labs/smoelen/httpclient"
)

// Config holds the HTTP transport settings.
// Start from DefaultConfig and adjust individual fields.
type Config struct {
	// Timeout bounds the whole request including the body read.
	// Zero means no timeout; cancellation is then left to the caller's
	// context or cancel token.
	//
	// Default: 0
	Timeout time.Duration

	// MaxIdleConns caps idle keep-alive connections across all hosts.
	//
	// Default: 100
	MaxIdleConns int

	// MaxIdleConnsPerHost caps idle connections per host. The client
	// mostly talks to one API host and one OAuth server.
	//
	// Default: 20
	MaxIdleConnsPerHost int

	// MaxConnsPerHost caps total connections per host. 0 is unlimited.
	//
	// Default: 100
	MaxConnsPerHost int

	// IdleConnTimeout is how long an idle connection stays pooled.
	//
	// Default: 90s
	IdleConnTimeout time.Duration

	// TLSHandshakeTimeout bounds the TLS handshake.
	//
	// Default: 10s
	TLSHandshakeTimeout time.Duration

	// ResponseHeaderTimeout bounds the wait for response headers after the
	// request is written. Zero disables it.
	//
	// Default: 0
	ResponseHeaderTimeout time.Duration

	// ExpectContinueTimeout is the wait for "100 Continue" on large uploads.
	//
	// Default: 1s
	ExpectContinueTimeout time.Duration

	// DialTimeout bounds TCP connection establishment.
	//
	// Default: 5s
	DialTimeout time.Duration

	// KeepAlive is the TCP keep-alive probe interval.
	//
	// Default: 30s
	KeepAlive time.Duration

	DisableKeepAlives  bool
	DisableCompression bool
	ForceHTTP2         bool
}

// DefaultConfig returns balanced transport settings with no overall
// timeout.
func DefaultConfig() Config {
	return Config{
		Timeout:               0,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		MaxConnsPerHost:       100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DialTimeout:           5 * time.Second,
		KeepAlive:             30 * time.Second,
	}
}

// UploadConfig returns settings for large multipart uploads: a short
// header timeout so a dead server fails fast, and no overall timeout so
// slow uploads can finish.
func UploadConfig() Config {
	cfg := DefaultConfig()
	cfg.ResponseHeaderTimeout = 2 * time.Minute
	cfg.ExpectContinueTimeout = 3 * time.Second
	cfg.MaxConnsPerHost = 8
	return cfg
}

// ConservativeConfig returns resource-light settings for CLI use.
func ConservativeConfig() Config {
	return Config{
		Timeout:               30 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		MaxConnsPerHost:       10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DialTimeout:           5 * time.Second,
		KeepAlive:             30 * time.Second,
	}
}

// internalConfig holds everything New needs to assemble a Client.
type internalConfig struct {
	httpConfig Config

	BaseURL       string
	RequestParams RequestParams

	Security     SecurityProvider
	SecurityData any

	// Transport replaces the pooled transport built from httpConfig.
	Transport     http.RoundTripper
	MockTransport *MockTransport
	CookieJar     http.CookieJar
	TLSConfig     *tls.Config
	ProxyURL      *url.URL

	Logger       zerolog.Logger
	Debug        bool
	GenerateCurl bool

	RetryConfig     RetryConfig
	RetryClassifier RetryClassifier
	RetryBackOff    backoff.BackOff
	BreakerConfig   *BreakerConfig
	RateLimit       *RateLimitConfig

	ServiceName        string
	EnableNetworkTrace bool
	TracerProvider     trace.TracerProvider
	MeterProvider      metric.MeterProvider
	Propagators        propagation.TextMapPropagator
	Tracer             trace.Tracer
	Meter              metric.Meter
	Metrics            *metrics
}

func newConfig(opts ...Option) *internalConfig {
	cfg := &internalConfig{
		httpConfig:         DefaultConfig(),
		Logger:             zerolog.Nop(),
		RetryConfig:        NoRetryConfig(),
		EnableNetworkTrace: true,
		TracerProvider:     otel.GetTracerProvider(),
		MeterProvider:      otel.GetMeterProvider(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Debug && cfg.Logger.GetLevel() == zerolog.Disabled {
		cfg.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	if cfg.Propagators == nil {
		cfg.Propagators = propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		)
	}

	cfg.Tracer = cfg.TracerProvider.Tracer(scope)
	cfg.Meter = cfg.MeterProvider.Meter(scope)
	cfg.Metrics, _ = newMetrics(cfg.Meter)

	return cfg
}

// baseTransport returns the innermost RoundTripper.
func (cfg *internalConfig) baseTransport() http.RoundTripper {
	if cfg.MockTransport != nil {
		return cfg.MockTransport
	}
	if cfg.Transport != nil {
		return cfg.Transport
	}

	hc := cfg.httpConfig
	dialer := &net.Dialer{
		Timeout:   hc.DialTimeout,
		KeepAlive: hc.KeepAlive,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          hc.MaxIdleConns,
		MaxIdleConnsPerHost:   hc.MaxIdleConnsPerHost,
		MaxConnsPerHost:       hc.MaxConnsPerHost,
		IdleConnTimeout:       hc.IdleConnTimeout,
		TLSHandshakeTimeout:   hc.TLSHandshakeTimeout,
		ResponseHeaderTimeout: hc.ResponseHeaderTimeout,
		ExpectContinueTimeout: hc.ExpectContinueTimeout,
		DisableKeepAlives:     hc.DisableKeepAlives,
		DisableCompression:    hc.DisableCompression,
		ForceAttemptHTTP2:     hc.ForceHTTP2,
		TLSClientConfig:       cfg.TLSConfig,
		Proxy:                 http.ProxyFromEnvironment,
	}
	if cfg.ProxyURL != nil {
		transport.Proxy = http.ProxyURL(cfg.ProxyURL)
	}

	return transport
}

func (cfg *internalConfig) baseAttributes() []attribute.KeyValue {
	if cfg.ServiceName == "" {
		return nil
	}
	return []attribute.KeyValue{attribute.String("http.client.name", cfg.ServiceName)}
}

// Option configures a Client.
type Option func(*internalConfig)

// WithConfig replaces the transport settings.
func WithConfig(c Config) Option {
	return func(cfg *internalConfig) {
		cfg.httpConfig = c
	}
}

// WithBaseURL sets the URL prefixed to every request path.
func WithBaseURL(baseURL string) Option {
	return func(cfg *internalConfig) {
		cfg.BaseURL = baseURL
	}
}

// WithRequestParams sets the instance-level request params, layered over
// the package defaults.
func WithRequestParams(p RequestParams) Option {
	return func(cfg *internalConfig) {
		cfg.RequestParams = cfg.RequestParams.Merge(p)
	}
}

// WithHeader adds one instance-level header.
func WithHeader(key, value string) Option {
	return WithRequestParams(RequestParams{Headers: map[string]string{key: value}})
}

// WithSecure marks every request secure unless the call says otherwise.
func WithSecure(secure bool) Option {
	return WithRequestParams(RequestParams{Secure: Bool(secure)})
}

// WithSecurityProvider sets the provider consulted for secure requests.
func WithSecurityProvider(p SecurityProvider) Option {
	return func(cfg *internalConfig) {
		cfg.Security = p
	}
}

// WithSecurityData sets the initial value handed to the security provider.
func WithSecurityData(data any) Option {
	return func(cfg *internalConfig) {
		cfg.SecurityData = data
	}
}

// WithTransport replaces the pooled base transport. Instrumentation and
// any resilience layers still wrap it.
func WithTransport(rt http.RoundTripper) Option {
	return func(cfg *internalConfig) {
		cfg.Transport = rt
	}
}

// WithMockTransport routes every request to mock.
func WithMockTransport(mock *MockTransport) Option {
	return func(cfg *internalConfig) {
		cfg.MockTransport = mock
	}
}

// WithCookieJar enables ambient cookies, subject to the credentials mode.
func WithCookieJar(jar http.CookieJar) Option {
	return func(cfg *internalConfig) {
		cfg.CookieJar = jar
	}
}

// WithTLSConfig sets the TLS client configuration.
func WithTLSConfig(tlsCfg *tls.Config) Option {
	return func(cfg *internalConfig) {
		cfg.TLSConfig = tlsCfg
	}
}

// WithProxyURL routes requests through a fixed proxy.
func WithProxyURL(proxyURL *url.URL) Option {
	return func(cfg *internalConfig) {
		cfg.ProxyURL = proxyURL
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *internalConfig) {
		cfg.Logger = logger
	}
}

// WithDebug logs every request and response at debug level.
func WithDebug(enabled bool) Option {
	return func(cfg *internalConfig) {
		cfg.Debug = enabled
	}
}

// WithCurl records the equivalent cURL command on each response.
func WithCurl() Option {
	return func(cfg *internalConfig) {
		cfg.GenerateCurl = true
	}
}

// WithRetry enables retries. The client does not retry by default.
func WithRetry(rc RetryConfig) Option {
	return func(cfg *internalConfig) {
		cfg.RetryConfig = rc
	}
}

// WithRetryClassifier decides which failures are retried.
func WithRetryClassifier(c RetryClassifier) Option {
	return func(cfg *internalConfig) {
		cfg.RetryClassifier = c
	}
}

// WithRetryBackOff replaces the exponential backoff derived from
// RetryConfig.
func WithRetryBackOff(b backoff.BackOff) Option {
	return func(cfg *internalConfig) {
		cfg.RetryBackOff = b
	}
}

// WithBreaker wraps the transport in a circuit breaker.
func WithBreaker(bc BreakerConfig) Option {
	return func(cfg *internalConfig) {
		cfg.BreakerConfig = &bc
	}
}

// WithRateLimit throttles outgoing requests.
func WithRateLimit(rl RateLimitConfig) Option {
	return func(cfg *internalConfig) {
		cfg.RateLimit = &rl
	}
}

// WithServiceName labels spans and metrics.
func WithServiceName(name string) Option {
	return func(cfg *internalConfig) {
		cfg.ServiceName = name
	}
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *internalConfig) {
		cfg.TracerProvider = tp
	}
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *internalConfig) {
		cfg.MeterProvider = mp
	}
}

// WithPropagators overrides the W3C trace-context and baggage propagators.
func WithPropagators(p propagation.TextMapPropagator) Option {
	return func(cfg *internalConfig) {
		cfg.Propagators = p
	}
}

// WithDisableNetworkTrace turns off DNS/connect/TLS span events.
func WithDisableNetworkTrace() Option {
	return func(cfg *internalConfig) {
		cfg.EnableNetworkTrace = false
	}
}
