package httpclient

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// curlCommand renders req as a reproducible cURL invocation. The
// Authorization value is masked.
//
//	curl -X POST 'http://localhost:7000/albums' \
//	  -H 'Authorization: Bearer ***' \
//	  -H 'Content-Type: application/json' \
//	  -d '{"name":"Summer"}'
func curlCommand(req *http.Request, body []byte) string {
	parts := []string{"curl"}

	if req.Method != http.MethodGet {
		parts = append(parts, "-X", req.Method)
	}
	parts = append(parts, shellQuote(req.URL.String()))

	keys := make([]string, 0, len(req.Header))
	for k := range req.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, v := range req.Header[k] {
			if k == "Authorization" {
				v = maskCredential(v)
			}
			parts = append(parts, "-H", shellQuote(k+": "+v))
		}
	}

	if len(body) > 0 {
		parts = append(parts, "--data-binary", shellQuote(string(body)))
	}

	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func maskCredential(v string) string {
	if scheme, _, ok := strings.Cut(v, " "); ok {
		return scheme + " ***"
	}
	return "***"
}

func logRequest(logger zerolog.Logger, req *http.Request) {
	logger.Debug().
		Str("method", req.Method).
		Str("url", redactedURL(req)).
		Int64("content_length", req.ContentLength).
		Msg("http request")
}

func logResponse(logger zerolog.Logger, req *http.Request, resp *http.Response, d time.Duration) {
	ev := logger.Debug()
	if resp.StatusCode >= 400 {
		ev = logger.Warn()
	}
	ev.Str("method", req.Method).
		Str("url", redactedURL(req)).
		Int("status", resp.StatusCode).
		Dur("duration", d).
		Int64("content_length", resp.ContentLength).
		Msg("http response")
}

func logFailure(logger zerolog.Logger, req *http.Request, err error, d time.Duration) {
	logger.Debug().
		Err(err).
		Str("method", req.Method).
		Str("url", redactedURL(req)).
		Str("error_type", classifyError(err)).
		Dur("duration", d).
		Msg("http request failed")
}
