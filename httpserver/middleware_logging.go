package httpserver

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const defaultMaxBodyLogSize = 4 * 1024

// LoggerConfig configures the request logging middleware.
type LoggerConfig struct {
	Logger zerolog.Logger

	// serviceName is set by the server.
	serviceName string

	// SkipPaths are not logged (probes, metrics scrapes).
	SkipPaths []string

	// LogRequestBody logs up to MaxBodyLogSize bytes of the request body.
	// Never enable it on the callback listener: the body is irrelevant there
	// and the query carries the authorization code.
	LogRequestBody bool

	// LogResponseBody logs up to MaxBodyLogSize bytes of the response body.
	LogResponseBody bool

	// MaxBodyLogSize bounds logged bodies (default 4KiB).
	MaxBodyLogSize int
}

// Logger returns middleware that logs one line per request: Info for 2xx/3xx,
// Warn for 4xx, Error for 5xx. Only the path is logged, never the query.
func Logger(cfg LoggerConfig) Middleware {
	skipPaths := make(map[string]bool, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skipPaths[path] = true
	}

	maxBodySize := cfg.MaxBodyLogSize
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxBodyLogSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			var requestBody []byte
			if cfg.LogRequestBody && r.Body != nil {
				head, _ := io.ReadAll(io.LimitReader(r.Body, int64(maxBodySize)))
				requestBody = head
				r.Body = readCloser{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
			}

			wrapped := wrapResponseWriter(w)
			if cfg.LogResponseBody {
				wrapped.bodyBuffer = &bytes.Buffer{}
				wrapped.maxBodySize = maxBodySize
			}

			next.ServeHTTP(wrapped, r)

			event := cfg.Logger.Info()
			switch status := wrapped.Status(); {
			case status >= 500:
				event = cfg.Logger.Error()
			case status >= 400:
				event = cfg.Logger.Warn()
			}

			event.
				Str("service", cfg.serviceName).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.Status()).
				Dur("duration", time.Since(start)).
				Int("bytes", wrapped.BytesWritten()).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent())

			if requestID := RequestIDFromContext(r.Context()); requestID != "" {
				event.Str("request_id", requestID)
			}
			if len(requestBody) > 0 {
				event.Bytes("request_body", requestBody)
			}
			if wrapped.bodyBuffer != nil && wrapped.bodyBuffer.Len() > 0 {
				event.Bytes("response_body", wrapped.bodyBuffer.Bytes())
			}

			event.Msg("request completed")
		})
	}
}

// readCloser replays a logged body prefix ahead of the unread remainder.
type readCloser struct {
	io.Reader
	io.Closer
}
