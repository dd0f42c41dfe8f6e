package httpserver

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultServiceName identifies the server in logs, spans and metrics
	// when no name is configured.
	DefaultServiceName = "smoelen"

	// DefaultAddr is the listen address of the local gateway.
	DefaultAddr = ":8090"
)

// Config holds the server configuration.
//
// Start from DefaultConfig or CallbackConfig and override fields as needed:
//
//	cfg := httpserver.DefaultConfig()
//	cfg.Addr = "127.0.0.1:9000"
//
//	server := httpserver.New(
//	    httpserver.WithConfig(cfg),
//	    httpserver.WithHandler(router),
//	)
type Config struct {
	// Addr is the TCP address to listen on.
	Addr string

	// ServiceName is used for spans, metrics, request logs and health
	// responses.
	ServiceName string

	// ReadTimeout is the maximum duration for reading the whole request.
	// Zero means no timeout.
	ReadTimeout time.Duration

	// ReadHeaderTimeout is the maximum duration for reading request headers.
	ReadHeaderTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out response writes.
	// Upload proxying through the gateway can take a while, so keep it generous.
	WriteTimeout time.Duration

	// IdleTimeout is the keep-alive idle timeout.
	IdleTimeout time.Duration

	// MaxHeaderBytes bounds the request header size.
	MaxHeaderBytes int

	// Logger receives lifecycle events. The zero value discards them.
	Logger zerolog.Logger

	// Middleware wraps the handler after the built-in middleware.
	Middleware []Middleware

	// Handler serves requests. Required.
	Handler http.Handler

	// ShutdownTimeout bounds how long in-flight requests may finish after
	// shutdown begins.
	ShutdownTimeout time.Duration

	// TracingConfig enables tracing. ServiceName is applied automatically.
	TracingConfig *TracingConfig

	// MetricsConfig enables metrics. ServiceName is applied automatically.
	MetricsConfig *MetricsConfig

	// LoggerConfig enables request logging. ServiceName is applied automatically.
	LoggerConfig *LoggerConfig

	// CORSConfig enables cross-origin headers for browser front ends.
	CORSConfig *CORSConfig

	// HealthHandler is populated by WithHealth.
	HealthHandler **HealthHandler

	// HealthVersion is the version reported by health responses.
	HealthVersion string
}

// DefaultConfig returns the configuration used by the local gateway.
//
// Timeout values:
//   - ReadTimeout: 15s
//   - WriteTimeout: 60s
//   - IdleTimeout: 60s
//   - ShutdownTimeout: 10s
func DefaultConfig() Config {
	return Config{
		Addr:              DefaultAddr,
		ServiceName:       DefaultServiceName,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
		ShutdownTimeout:   10 * time.Second,
	}
}

// CallbackConfig returns the configuration of the one-shot listener that
// receives the authorization redirect. It answers a single browser request,
// so it keeps short timeouts and shuts down quickly.
//
// Timeout values:
//   - ReadTimeout: 5s
//   - WriteTimeout: 5s
//   - IdleTimeout: 5s
//   - ShutdownTimeout: 2s
func CallbackConfig(addr string) Config {
	return Config{
		Addr:              addr,
		ServiceName:       DefaultServiceName + "-callback",
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       5 * time.Second,
		MaxHeaderBytes:    64 << 10,
		ShutdownTimeout:   2 * time.Second,
	}
}
