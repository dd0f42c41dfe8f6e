package telemetry_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kroma-labs/smoelen/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	ctx := context.Background()
	p, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName:    "smoelen-test",
		ServiceVersion: "v0.0.0",
	})
	require.NoError(t, err)
	defer func() { assert.NoError(t, p.Shutdown(ctx)) }()

	counter, err := p.MeterProvider.Meter("test").Int64Counter("smoelen.test.calls")
	require.NoError(t, err)
	counter.Add(ctx, 3)

	_, span := p.TracerProvider.Tracer("test").Start(ctx, "op")
	assert.True(t, span.SpanContext().IsValid(), "given no endpoint, then spans are still recorded")
	span.End()

	rec := httptest.NewRecorder()
	p.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "smoelen_test_calls")
	assert.Contains(t, string(body), "go_goroutines")
	assert.Contains(t, string(body), `service_name="smoelen-test"`)
}
