// Package httpclient is a typed REST client core: it turns a FullRequest
// into an HTTP call and the response into a Response[T, E] envelope.
//
// # Requests
//
// Request is generic over the success payload T and the error payload E:
//
//	client := httpclient.New(
//	    httpclient.WithBaseURL("http://localhost:7000"),
//	    httpclient.WithSecurityProvider(httpclient.BearerSecurity()),
//	)
//	client.SetSecurityData(idToken)
//
//	resp, err := httpclient.Request[Album, HTTPValidationError](ctx, client, httpclient.FullRequest{
//	    Path:   "/albums/" + id,
//	    Method: http.MethodGet,
//	    Secure: httpclient.Bool(true),
//	    Format: httpclient.FormatJSON,
//	})
//	if rf, ok := httpclient.AsRequestFailed(err); ok {
//	    // resp.Error holds the decoded HTTPValidationError
//	}
//
// A non-2xx response returns the envelope together with a
// *RequestFailedError; network failures return a nil envelope.
//
// # Request params
//
// RequestParams are layered: DefaultRequestParams, the instance params
// (WithRequestParams), the security provider's params for secure
// requests, then the call's params. Headers merge key by key, and a later
// layer wins.
//
// # Bodies and queries
//
// Bodies are serialized by FullRequest.Type: JSON, text, multipart form
// data (File values become file parts) or URL-encoded. Query params are
// encoded with EscapeComponent; slices repeat the key and nil values are
// dropped.
//
// # Cancellation
//
// A request started with a CancelToken can be aborted with Client.Abort.
// Requests sharing a token are aborted together.
//
// # Resilience
//
// Retries (WithRetry), a circuit breaker (WithBreaker, optionally shared
// through Redis with NewRedisStore) and a client-side rate limiter
// (WithRateLimit) are available and off by default. The client has no
// overall timeout unless WithConfig sets one.
//
// # Observability
//
// Every request gets an OpenTelemetry client span and request metrics
// (duration, body sizes, in-flight, errors, DNS/connect/TLS timings).
// WithDebug logs requests through zerolog and WithCurl records a cURL
// command on each response.
//
// # Testing
//
// MockTransport replaces the network:
//
//	mock := httpclient.NewMockTransport().
//	    StubRoute(http.MethodGet, "/albums", 200, `[]`)
//	client := httpclient.New(httpclient.WithMockTransport(mock))
package httpclient
