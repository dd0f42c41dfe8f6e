package httpclient

import (
	"context"
	"errors"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerConfig(t *testing.T) {
	t.Run("DefaultBreakerConfig", func(t *testing.T) {
		cfg := DefaultBreakerConfig()

		assert.Equal(t, uint32(1), cfg.MaxRequests)
		assert.Equal(t, 10*time.Second, cfg.Timeout)
		assert.Equal(t, uint32(5), cfg.ConsecutiveFailures)
		assert.Nil(t, cfg.Store)
	})

	t.Run("DistributedBreakerConfig", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer rdb.Close()

		cfg := DistributedBreakerConfig(NewRedisStore(rdb))

		assert.NotNil(t, cfg.Store)
		assert.Equal(t, uint32(5), cfg.ConsecutiveFailures)
	})
}

func TestDefaultBreakerClassifier(t *testing.T) {
	tests := []struct {
		name string
		resp *http.Response
		err  error
		want bool
	}{
		{name: "given a 500, then counts a failure", resp: &http.Response{StatusCode: 500}, want: true},
		{name: "given a 503, then counts a failure", resp: &http.Response{StatusCode: 503}, want: true},
		{name: "given a 404, then does not count", resp: &http.Response{StatusCode: 404}, want: false},
		{name: "given a 200, then does not count", resp: &http.Response{StatusCode: 200}, want: false},
		{name: "given a refused connection, then counts a failure", err: syscall.ECONNREFUSED, want: true},
		{name: "given a cancellation, then does not count", err: context.Canceled, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultBreakerClassifier(tt.resp, tt.err))
		})
	}
}

func TestBreakerConfig_ReadyToTrip(t *testing.T) {
	cfg := BreakerConfig{FailureThreshold: 10, FailureRatio: 0.5, ConsecutiveFailures: 3}

	tests := []struct {
		name   string
		counts gobreaker.Counts
		want   bool
	}{
		{name: "given consecutive failures at the limit, then trips", counts: gobreaker.Counts{Requests: 3, ConsecutiveFailures: 3}, want: true},
		{name: "given too few requests, then stays closed", counts: gobreaker.Counts{Requests: 4, TotalFailures: 4, ConsecutiveFailures: 2}, want: false},
		{name: "given the failure ratio reached, then trips", counts: gobreaker.Counts{Requests: 10, TotalFailures: 5}, want: true},
		{name: "given a low failure ratio, then stays closed", counts: gobreaker.Counts{Requests: 10, TotalFailures: 2}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.readyToTrip(tt.counts))
		})
	}
}

func tripConfig() BreakerConfig {
	cfg := DefaultBreakerConfig()
	cfg.ConsecutiveFailures = 2
	cfg.Timeout = time.Minute
	return cfg
}

func TestBreakerTransport(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		calls      int
		wantSent   int
		wantOpen   bool
		wantStates []gobreaker.State
	}{
		{
			name:       "given repeated 5xx, then opens and rejects without sending",
			status:     http.StatusInternalServerError,
			calls:      4,
			wantSent:   2,
			wantOpen:   true,
			wantStates: []gobreaker.State{gobreaker.StateOpen},
		},
		{
			name:     "given repeated 4xx, then stays closed",
			status:   http.StatusUnprocessableEntity,
			calls:    4,
			wantSent: 4,
			wantOpen: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var states []gobreaker.State
			cfg := tripConfig()
			cfg.OnStateChange = func(_ string, _, to gobreaker.State) { states = append(states, to) }

			mock := NewMockTransport().StubResponse(tt.status, `{"detail":"x"}`)
			client := newTestClient(mock, WithBreaker(cfg))

			var lastErr error
			for range tt.calls {
				_, lastErr = Request[any, any](context.Background(), client, FullRequest{Path: "/albums"})
			}

			assert.Equal(t, tt.wantSent, mock.RequestCount())
			assert.Equal(t, tt.wantOpen, errors.Is(lastErr, gobreaker.ErrOpenState))
			assert.Equal(t, tt.wantStates, states)
		})
	}
}

func TestBreakerTransport_FailuresStillReturnResponse(t *testing.T) {
	mock := NewMockTransport().StubResponse(http.StatusBadGateway, "upstream down")
	client := newTestClient(mock, WithBreaker(tripConfig()))

	resp, err := Request[any, any](context.Background(), client, FullRequest{Path: "/albums"})

	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "upstream down", resp.String())
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestBreakerTransport_Distributed(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cfg := DistributedBreakerConfig(NewRedisStore(rdb))
	cfg.Name = "albums-test"
	cfg.ConsecutiveFailures = 2
	cfg.Timeout = time.Minute

	mock := NewMockTransport().StubResponse(http.StatusServiceUnavailable, "")
	client := newTestClient(mock, WithBreaker(cfg))

	var lastErr error
	for range 3 {
		_, lastErr = Request[any, any](context.Background(), client, FullRequest{Path: "/albums"})
	}

	assert.Equal(t, 2, mock.RequestCount())
	assert.ErrorIs(t, lastErr, gobreaker.ErrOpenState)
}
