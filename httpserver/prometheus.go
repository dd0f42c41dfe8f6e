package httpserver

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusHandlerFor serves the metrics gathered by g, typically the
// registry the otel Prometheus exporter writes to.
//
//	mux.Handle("/metrics", httpserver.PrometheusHandlerFor(registry, promhttp.HandlerOpts{}))
func PrometheusHandlerFor(g prometheus.Gatherer, opts promhttp.HandlerOpts) http.Handler {
	return promhttp.HandlerFor(g, opts)
}
