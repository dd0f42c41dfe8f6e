package httpserver

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain composes middleware. The first one is the outermost: it sees the
// request first and the response last.
//
//	handler := httpserver.Chain(
//	    httpserver.Recovery(logger),
//	    httpserver.RequestID(),
//	)(router)
func Chain(middlewares ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// DefaultMiddleware returns Recovery followed by RequestID, the stack every
// smoelen listener runs inside its observability middleware.
func DefaultMiddleware(logger zerolog.Logger) Middleware {
	return Chain(
		Recovery(logger),
		RequestID(),
	)
}
