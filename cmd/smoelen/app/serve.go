package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kroma-labs/smoelen/api"
	"github.com/kroma-labs/smoelen/httpclient"
	"github.com/kroma-labs/smoelen/httpserver"
	"github.com/kroma-labs/smoelen/internal/gateway"
	"github.com/kroma-labs/smoelen/internal/telemetry"
	"github.com/kroma-labs/smoelen/store"
	"github.com/spf13/cobra"
)

const gatewayServiceName = "smoelen-gateway"

var probePaths = []string{"/livez", "/readyz", "/metrics"}

type pinger interface {
	Ping(ctx context.Context) error
}

func newServeCommand(opts *GlobalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local JSON gateway",
		Long: `Serve the album pages as JSON on SMOELEN_SERVE_ADDR, calling the API as the
logged-in user. Creating and editing albums is limited to administrators.

Routes:
  GET  /                  albums
  POST /create            create an album
  GET  /{album}           one album, ?current=<item-id> marks the viewed item
  *    /{album}/{edit}    edit an album and its item selection
  GET  /livez, /readyz    probes
  GET  /metrics           Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			if addr != "" {
				s.cfg.ServeAddr = addr
			}
			return runServe(cmd.Context(), s)
		}),
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: $SMOELEN_SERVE_ADDR)")
	return cmd
}

func runServe(ctx context.Context, s *session) error {
	providers, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName:    gatewayServiceName,
		ServiceVersion: Version,
		OTLPEndpoint:   s.cfg.OTLPEndpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := providers.Shutdown(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	client, err := s.api(ctx,
		httpclient.WithTracerProvider(providers.TracerProvider),
		httpclient.WithMeterProvider(providers.MeterProvider),
		httpclient.WithServiceName("smoelen-api"),
	)
	if err != nil {
		return err
	}

	state := store.NewState(client.Users)
	gw := gateway.New(client, state, s.logger)

	var health *httpserver.HealthHandler
	mux := http.NewServeMux()

	server := httpserver.New(
		httpserver.WithServiceName(gatewayServiceName),
		httpserver.WithAddr(s.cfg.ServeAddr),
		httpserver.WithLogger(s.logger),
		httpserver.WithTracing(httpserver.TracingConfig{
			TracerProvider: providers.TracerProvider,
			SkipPaths:      probePaths,
		}),
		httpserver.WithMetrics(httpserver.MetricsConfig{MeterProvider: providers.MeterProvider}),
		httpserver.WithLogging(httpserver.LoggerConfig{Logger: s.logger, SkipPaths: probePaths}),
		httpserver.WithCORS(httpserver.DefaultCORSConfig(s.cfg.RedirectURL)),
		httpserver.WithHealth(&health, Version),
		httpserver.WithMiddleware(httpserver.DefaultMiddleware(s.logger)),
		httpserver.WithHandler(mux),
	)

	if p, ok := s.store.(pinger); ok {
		health.AddReadinessCheck("session_store", p.Ping)
	}
	health.AddReadinessCheck("api", apiCheck(client))

	mux.Handle("/livez", health.LiveHandler())
	mux.Handle("/readyz", health.ReadyHandler())
	mux.Handle("/metrics", providers.MetricsHandler())
	mux.Handle("/", gw.Router())

	s.logger.Info().Str("addr", s.cfg.ServeAddr).Str("api", s.cfg.APIBase).Msg("gateway starting")
	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// apiCheck passes while the API answers the current user with anything but
// a server error. A 401 still proves the API is up.
func apiCheck(client *api.API) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := client.Users.GetUser(ctx)
		if err == nil {
			return nil
		}
		if code := httpclient.StatusCode(err); code != 0 && code < http.StatusInternalServerError {
			return nil
		}
		return fmt.Errorf("api: %w", err)
	}
}
