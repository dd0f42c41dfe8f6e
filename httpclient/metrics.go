package httpclient

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the client's instruments. A nil *metrics records nothing.
type metrics struct {
	requestDuration  metric.Float64Histogram
	requestBodySize  metric.Int64Histogram
	responseBodySize metric.Int64Histogram
	activeRequests   metric.Int64UpDownCounter
	requestErrors    metric.Int64Counter
	cancelled        metric.Int64Counter

	dnsDuration     metric.Float64Histogram
	connectDuration metric.Float64Histogram
	tlsDuration     metric.Float64Histogram
	ttfb            metric.Float64Histogram

	retryAttempts  metric.Int64Counter
	retryExhausted metric.Int64Counter
	retryDuration  metric.Float64Histogram

	breakerRequests metric.Int64Counter
	breakerState    metric.Int64Gauge
}

var (
	latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
	networkBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}
	sizeBuckets    = []float64{0, 1024, 16 * 1024, 256 * 1024, 1 << 20, 8 << 20, 64 << 20}
)

func newMetrics(meter metric.Meter) (*metrics, error) {
	m := &metrics{}
	var err error

	seconds := func(name, desc string, buckets []float64) metric.Float64Histogram {
		if err != nil {
			return nil
		}
		var h metric.Float64Histogram
		h, err = meter.Float64Histogram(name,
			metric.WithDescription(desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(buckets...),
		)
		return h
	}
	bytesHist := func(name, desc string) metric.Int64Histogram {
		if err != nil {
			return nil
		}
		var h metric.Int64Histogram
		h, err = meter.Int64Histogram(name,
			metric.WithDescription(desc),
			metric.WithUnit("By"),
			metric.WithExplicitBucketBoundaries(sizeBuckets...),
		)
		return h
	}
	counter := func(name, desc, unit string) metric.Int64Counter {
		if err != nil {
			return nil
		}
		var c metric.Int64Counter
		c, err = meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		return c
	}

	m.requestDuration = seconds("http.client.request.duration",
		"Duration of HTTP client requests", latencyBuckets)
	m.requestBodySize = bytesHist("http.client.request.body.size", "Size of request bodies")
	m.responseBodySize = bytesHist("http.client.response.body.size", "Size of response bodies")
	m.requestErrors = counter("http.client.request.error",
		"Requests that failed before a response arrived", "{error}")
	m.cancelled = counter("http.client.request.cancelled",
		"Requests cancelled through a cancel token", "{request}")

	m.dnsDuration = seconds("http.client.dns.duration", "DNS lookup duration", networkBuckets)
	m.connectDuration = seconds("http.client.connection.duration",
		"TCP connect duration", networkBuckets)
	m.tlsDuration = seconds("http.client.tls.duration", "TLS handshake duration", networkBuckets)
	m.ttfb = seconds("http.client.ttfb", "Time to first response byte", latencyBuckets)

	m.retryAttempts = counter("http.client.retry.attempts", "Retry attempts", "{attempt}")
	m.retryExhausted = counter("http.client.retry.exhausted",
		"Requests that failed after all retries", "{request}")
	m.retryDuration = seconds("http.client.retry.duration",
		"Time spent in the retry loop", []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120})

	m.breakerRequests = counter("http.client.breaker.requests",
		"Requests seen by the circuit breaker by outcome", "{request}")
	if err != nil {
		return nil, err
	}

	m.activeRequests, err = meter.Int64UpDownCounter("http.client.active_requests",
		metric.WithDescription("In-flight HTTP client requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.breakerState, err = meter.Int64Gauge("http.client.breaker.state",
		metric.WithDescription("Circuit breaker state: 0 closed, 1 half-open, 2 open"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *metrics) recordRequestDuration(ctx context.Context, d time.Duration, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}
	m.requestDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

func (m *metrics) recordBodySizes(ctx context.Context, req, resp int64, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}
	if req > 0 {
		m.requestBodySize.Record(ctx, req, metric.WithAttributes(attrs...))
	}
	if resp > 0 {
		m.responseBodySize.Record(ctx, resp, metric.WithAttributes(attrs...))
	}
}

func (m *metrics) recordActive(ctx context.Context, delta int64, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}
	m.activeRequests.Add(ctx, delta, metric.WithAttributes(attrs...))
}

func (m *metrics) recordError(ctx context.Context, errorType string, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}
	all := append(append([]attribute.KeyValue{}, attrs...), attribute.String("error.type", errorType))
	m.requestErrors.Add(ctx, 1, metric.WithAttributes(all...))
}

func (m *metrics) recordCancelled(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}
	m.cancelled.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metrics) recordNetworkTiming(ctx context.Context, nt *networkTrace, attrs []attribute.KeyValue) {
	if m == nil || nt == nil {
		return
	}
	opt := metric.WithAttributes(attrs...)
	if d, ok := elapsed(nt.dnsStart, nt.dnsDone); ok {
		m.dnsDuration.Record(ctx, d.Seconds(), opt)
	}
	if d, ok := elapsed(nt.connectStart, nt.connectDone); ok {
		m.connectDuration.Record(ctx, d.Seconds(), opt)
	}
	if d, ok := elapsed(nt.tlsStart, nt.tlsDone); ok {
		m.tlsDuration.Record(ctx, d.Seconds(), opt)
	}
	if d, ok := elapsed(nt.wroteRequest, nt.firstByte); ok {
		m.ttfb.Record(ctx, d.Seconds(), opt)
	}
}

func (m *metrics) recordRetryAttempt(ctx context.Context, attrs []attribute.KeyValue, attempt int) {
	if m == nil {
		return
	}
	all := append(append([]attribute.KeyValue{}, attrs...), attribute.Int("retry.attempt", attempt))
	m.retryAttempts.Add(ctx, 1, metric.WithAttributes(all...))
}

func (m *metrics) recordRetryExhausted(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}
	m.retryExhausted.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metrics) recordRetryDuration(ctx context.Context, attrs []attribute.KeyValue, d time.Duration) {
	if m == nil {
		return
	}
	m.retryDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

func (m *metrics) recordBreakerRequest(ctx context.Context, name, outcome string) {
	if m == nil {
		return
	}
	m.breakerRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("breaker.name", name),
		attribute.String("breaker.outcome", outcome),
	))
}

func (m *metrics) recordBreakerState(ctx context.Context, name string, state int64) {
	if m == nil {
		return
	}
	m.breakerState.Record(ctx, state, metric.WithAttributes(attribute.String("breaker.name", name)))
}

// elapsed returns end-start when both are set.
func elapsed(start, end time.Time) (time.Duration, bool) {
	if start.IsZero() || end.IsZero() {
		return 0, false
	}
	return end.Sub(start), true
}
