package sqlx

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scope = "github.com/kroma-labs/smoelen/sqlx"

type config struct {
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider

	Tracer  trace.Tracer
	Metrics *metrics

	// DBSystem is the db.system attribute, e.g. "sqlite".
	DBSystem string

	// DBName is the db.name attribute.
	DBName string

	// QuerySanitizer rewrites statements before they are recorded.
	QuerySanitizer func(query string) string

	// DisableQuery drops db.statement entirely.
	DisableQuery bool
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		TracerProvider: otel.GetTracerProvider(),
		MeterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	cfg.Tracer = cfg.TracerProvider.Tracer(scope)
	cfg.Metrics, _ = newMetrics(cfg.MeterProvider.Meter(scope))
	return cfg
}

// Option configures the instrumentation.
type Option func(*config)

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		cfg.TracerProvider = tp
	}
}

// WithMeterProvider sets the meter provider. Defaults to the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *config) {
		cfg.MeterProvider = mp
	}
}

// WithDBSystem sets the db.system attribute ("sqlite", "postgresql", ...).
func WithDBSystem(system string) Option {
	return func(cfg *config) {
		cfg.DBSystem = system
	}
}

// WithDBName sets the db.name attribute.
func WithDBName(name string) Option {
	return func(cfg *config) {
		cfg.DBName = name
	}
}

// WithQuerySanitizer rewrites statements before they reach a span.
//
//	sqlx.WithQuerySanitizer(sqlx.DefaultQuerySanitizer)
//	// "SELECT value FROM session WHERE key = 'token'"
//	// is recorded as "SELECT value FROM session WHERE key = '?'"
func WithQuerySanitizer(fn func(string) string) Option {
	return func(cfg *config) {
		cfg.QuerySanitizer = fn
	}
}

// WithDisableQuery stops recording db.statement. db.operation is still set.
func WithDisableQuery() Option {
	return func(cfg *config) {
		cfg.DisableQuery = true
	}
}
