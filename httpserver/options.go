package httpserver

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Option configures the server.
type Option func(*Config)

// WithConfig replaces the whole configuration. Apply it before any option
// that tweaks individual fields.
//
//	server := httpserver.New(
//	    httpserver.WithConfig(httpserver.CallbackConfig("localhost:5173")),
//	    httpserver.WithHandler(callback),
//	)
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		*c = cfg
	}
}

// WithServiceName sets the service name. The server hands it to tracing,
// metrics, request logging and health responses.
func WithServiceName(name string) Option {
	return func(c *Config) {
		c.ServiceName = name
	}
}

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(c *Config) {
		c.Addr = addr
	}
}

// WithHandler sets the handler. Required.
func WithHandler(h http.Handler) Option {
	return func(c *Config) {
		c.Handler = h
	}
}

// WithLogger sets the logger for lifecycle events (start, signals, shutdown).
// Per-request logs are enabled separately with WithLogging.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithMiddleware appends middleware. The first one given is the outermost of
// the user middleware; all of them run inside the built-in middleware.
func WithMiddleware(ms ...Middleware) Option {
	return func(c *Config) {
		c.Middleware = append(c.Middleware, ms...)
	}
}

// WithTracing enables the tracing middleware.
//
//	httpserver.WithTracing(httpserver.TracingConfig{
//	    TracerProvider: tp,
//	    SkipPaths:      []string{"/livez", "/readyz", "/metrics"},
//	})
func WithTracing(cfg TracingConfig) Option {
	return func(c *Config) {
		c.TracingConfig = &cfg
	}
}

// WithMetrics enables the metrics middleware.
func WithMetrics(cfg MetricsConfig) Option {
	return func(c *Config) {
		c.MetricsConfig = &cfg
	}
}

// WithLogging enables per-request logging.
func WithLogging(cfg LoggerConfig) Option {
	return func(c *Config) {
		c.LoggerConfig = &cfg
	}
}

// WithCORS enables cross-origin headers, typically for the web front end
// talking to the gateway.
func WithCORS(cfg CORSConfig) Option {
	return func(c *Config) {
		c.CORSConfig = &cfg
	}
}

// WithHealth creates a HealthHandler carrying the server's name and the given
// version, and stores it in *handler for registering checks and routes.
//
//	var health *httpserver.HealthHandler
//	server := httpserver.New(
//	    httpserver.WithHealth(&health, version),
//	    httpserver.WithHandler(mux),
//	)
//	health.AddReadinessCheck("session-store", store.Ping)
//	mux.Handle("/readyz", health.ReadyHandler())
func WithHealth(handler **HealthHandler, version string) Option {
	return func(c *Config) {
		c.HealthVersion = version
		c.HealthHandler = handler
	}
}
