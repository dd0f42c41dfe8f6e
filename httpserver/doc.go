// Package httpserver runs the HTTP listeners of smoelen: the one-shot
// listener that receives the OAuth authorization redirect and the local JSON
// gateway started by `smoelen serve`.
//
// # Lifecycle
//
// A Server serves until its context is done or SIGTERM/SIGINT arrives, then
// drains in-flight requests for up to Config.ShutdownTimeout:
//
//	server := httpserver.New(
//	    httpserver.WithServiceName("smoelen-gateway"),
//	    httpserver.WithHandler(router),
//	)
//	if err := server.ListenAndServe(ctx); err != nil {
//	    return err
//	}
//
// Serve takes a listener the caller already bound, which is how the redirect
// listener claims its port before the browser is sent away. Ready and Addr
// report the bound address, including a port chosen by the OS for ":0".
//
// # Service name
//
// The name given with WithServiceName is passed to tracing, metrics, request
// logs and health responses:
//
//	server := httpserver.New(
//	    httpserver.WithServiceName("smoelen-gateway"),
//	    httpserver.WithTracing(httpserver.TracingConfig{TracerProvider: tp}),
//	    httpserver.WithMetrics(httpserver.MetricsConfig{MeterProvider: mp}),
//	    httpserver.WithLogging(httpserver.LoggerConfig{Logger: logger}),
//	    httpserver.WithHealth(&health, version),
//	    httpserver.WithHandler(router),
//	)
//
// # Middleware order
//
// Built-in middleware wraps user middleware, outermost first:
//
//	Tracing -> Metrics -> Logger -> CORS -> user middleware -> handler
//
// Routers report the matched template with SetRoute so spans and metrics are
// labelled "/{album}" rather than with album ids.
//
// # Responses
//
// Handlers answer with the Response envelope through WriteJSON, WriteSuccess
// and WriteError.
package httpserver
