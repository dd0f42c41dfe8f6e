package httpserver_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/kroma-labs/smoelen/httpserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                string
		cfg                 httpserver.Config
		wantAddr            string
		wantServiceName     string
		wantReadTimeout     time.Duration
		wantWriteTimeout    time.Duration
		wantShutdownTimeout time.Duration
	}{
		{
			name:                "given the default config, then serves the gateway address",
			cfg:                 httpserver.DefaultConfig(),
			wantAddr:            ":8090",
			wantServiceName:     "smoelen",
			wantReadTimeout:     15 * time.Second,
			wantWriteTimeout:    60 * time.Second,
			wantShutdownTimeout: 10 * time.Second,
		},
		{
			name:                "given the callback config, then keeps short timeouts",
			cfg:                 httpserver.CallbackConfig("localhost:5173"),
			wantAddr:            "localhost:5173",
			wantServiceName:     "smoelen-callback",
			wantReadTimeout:     5 * time.Second,
			wantWriteTimeout:    5 * time.Second,
			wantShutdownTimeout: 2 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.wantAddr, tt.cfg.Addr)
			assert.Equal(t, tt.wantServiceName, tt.cfg.ServiceName)
			assert.Equal(t, tt.wantReadTimeout, tt.cfg.ReadTimeout)
			assert.Equal(t, tt.wantWriteTimeout, tt.cfg.WriteTimeout)
			assert.Equal(t, tt.wantShutdownTimeout, tt.cfg.ShutdownTimeout)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	t.Run("given empty name and address, then falls back to defaults", func(t *testing.T) {
		t.Parallel()

		server := httpserver.New(httpserver.WithConfig(httpserver.Config{}))

		assert.Equal(t, httpserver.DefaultServiceName, server.ServiceName())
		assert.Equal(t, httpserver.DefaultAddr, server.Addr())
	})

	t.Run("given options, then they override the defaults", func(t *testing.T) {
		t.Parallel()

		server := httpserver.New(
			httpserver.WithServiceName("smoelen-gateway"),
			httpserver.WithAddr("127.0.0.1:9999"),
		)

		assert.Equal(t, "smoelen-gateway", server.ServiceName())
		assert.Equal(t, "127.0.0.1:9999", server.Addr())
	})
}

func TestServer_Serve(t *testing.T) {
	t.Parallel()

	t.Run("given a bound listener, then serves until the context is done", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)

		server := httpserver.New(httpserver.WithHandler(http.HandlerFunc(
			func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, "hello")
			},
		)))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- server.Serve(ctx, ln) }()

		<-server.Ready()
		assert.Equal(t, ln.Addr().String(), server.Addr())

		resp, err := http.Get("http://" + server.Addr() + "/")
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, "hello", string(body))

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("server did not stop")
		}
	})

	t.Run("given an explicit shutdown, then Serve returns cleanly", func(t *testing.T) {
		t.Parallel()

		server := httpserver.New(
			httpserver.WithAddr("127.0.0.1:0"),
			httpserver.WithHandler(http.NotFoundHandler()),
		)

		done := make(chan error, 1)
		go func() { done <- server.ListenAndServe(context.Background()) }()
		<-server.Ready()

		require.NoError(t, server.Shutdown(context.Background()))
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("server did not stop")
		}
	})

	t.Run("given no handler, then fails without serving", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)

		err = httpserver.New().Serve(context.Background(), ln)

		assert.ErrorIs(t, err, httpserver.ErrNoHandler)
		_, acceptErr := ln.Accept()
		assert.True(t, errors.Is(acceptErr, net.ErrClosed), "listener is closed")
	})
}
