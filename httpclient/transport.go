package httpclient

import (
	"fmt"
	"net/http"
	"net/http/httptrace"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var _ http.RoundTripper = (*otelTransport)(nil)

// otelTransport opens a client span per request, propagates the trace
// context and records request metrics.
type otelTransport struct {
	next http.RoundTripper
	cfg  *internalConfig
}

func newOtelTransport(next http.RoundTripper, cfg *internalConfig) *otelTransport {
	return &otelTransport{next: next, cfg: cfg}
}

func (t *otelTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	ctx, span := t.cfg.Tracer.Start(req.Context(), "HTTP "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(t.requestAttributes(req)...),
	)
	defer span.End()

	var nt *networkTrace
	if t.cfg.EnableNetworkTrace {
		nt = &networkTrace{}
		ctx = httptrace.WithClientTrace(ctx, nt.clientTrace())
	}

	req = req.Clone(ctx)
	t.cfg.Propagators.Inject(ctx, propagation.HeaderCarrier(req.Header))

	base := t.cfg.baseAttributes()
	t.cfg.Metrics.recordActive(ctx, 1, base)
	defer t.cfg.Metrics.recordActive(ctx, -1, base)

	resp, err := t.next.RoundTrip(req)
	duration := time.Since(start)

	if nt != nil {
		nt.addEvents(span)
		t.cfg.Metrics.recordNetworkTiming(ctx, nt, base)
	}

	if err != nil {
		errorType := classifyError(err)
		setSpanError(span, err, errorType)
		t.cfg.Metrics.recordError(ctx, errorType, base)
		t.cfg.Metrics.recordRequestDuration(ctx, duration,
			append(t.serverAttributes(req), attribute.String("error.type", errorType)))
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", resp.StatusCode))
		span.SetAttributes(attribute.String("error.type", strconv.Itoa(resp.StatusCode)))
	}

	t.cfg.Metrics.recordBodySizes(ctx, req.ContentLength, resp.ContentLength, base)
	t.cfg.Metrics.recordRequestDuration(ctx, duration, t.responseAttributes(req, resp))

	return resp, nil
}

// serverAttributes are the low-cardinality attributes shared by spans and
// metrics: service, method, host and port.
func (t *otelTransport) serverAttributes(req *http.Request) []attribute.KeyValue {
	attrs := append([]attribute.KeyValue{}, t.cfg.baseAttributes()...)
	attrs = append(attrs, attribute.String("http.request.method", req.Method))

	if req.URL == nil {
		return attrs
	}
	if host := req.URL.Hostname(); host != "" {
		attrs = append(attrs, attribute.String("server.address", host))
	}
	if port := serverPort(req); port > 0 {
		attrs = append(attrs, attribute.Int("server.port", port))
	}
	return attrs
}

func (t *otelTransport) requestAttributes(req *http.Request) []attribute.KeyValue {
	attrs := t.serverAttributes(req)
	if req.URL != nil {
		attrs = append(attrs,
			attribute.String("url.full", redactedURL(req)),
			attribute.String("url.scheme", req.URL.Scheme),
		)
	}
	if req.ContentLength > 0 {
		attrs = append(attrs, attribute.Int64("http.request.body.size", req.ContentLength))
	}
	return attrs
}

func (t *otelTransport) responseAttributes(req *http.Request, resp *http.Response) []attribute.KeyValue {
	attrs := t.serverAttributes(req)
	attrs = append(attrs, attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= 400 {
		attrs = append(attrs, attribute.String("error.type", strconv.Itoa(resp.StatusCode)))
	}
	return attrs
}

func serverPort(req *http.Request) int {
	if p := req.URL.Port(); p != "" {
		n, _ := strconv.Atoi(p)
		return n
	}
	switch req.URL.Scheme {
	case "http":
		return 80
	case "https":
		return 443
	}
	return 0
}

// redactedURL drops query values that carry credentials: OAuth codes and
// the signatures of item URLs.
func redactedURL(req *http.Request) string {
	u := *req.URL
	q := u.Query()
	changed := false
	for _, key := range []string{"code", "state", "signature", "access_token"} {
		if q.Has(key) {
			q.Set(key, "REDACTED")
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}
