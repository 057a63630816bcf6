package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_backend_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studio_backend_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	identityResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_backend_identity_resolutions_total",
			Help: "Identity resolution outcomes per request.",
		},
		[]string{"outcome"}, // "authenticated" or "anonymous"
	)
	assetRelaysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_backend_asset_relays_total",
			Help: "Asset relay attempts by outcome.",
		},
		[]string{"outcome"}, // "stored", "download_error", "store_error"
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, identityResolutions, assetRelaysTotal)
}

// MetricsHandler returns the Prometheus metrics HTTP handler.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
