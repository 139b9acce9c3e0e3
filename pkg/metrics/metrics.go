// Package metrics provides the Prometheus registry reference for the service.
// All metrics are defined in their respective packages (client, catalog,
// browse, session) to keep packages independent.
//
// This package documents every metric the service exposes on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the service.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Names lists every metric family the service registers.
var Names = []string{
	"pokeapi_requests_total",
	"pokeapi_request_duration_seconds",
	"pokeapi_errors_total",
	"pokeapi_retries_total",
	"pokeapi_retry_exhausted_total",
	"catalog_entries_dropped_total",
	"catalog_page_loads_total",
	"browse_searches_total",
	"session_store_errors_total",
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - pokeapi_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - pokeapi_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - pokeapi_errors_total{class} (Counter): Errors by class (client, server, network, context)
//
// Retry Metrics (pkg/client):
//   - pokeapi_retries_total{error_class} (Counter): Retry attempts by error class
//   - pokeapi_retry_exhausted_total{error_class} (Counter): Requests that exhausted max attempts
//
// Catalog Metrics (pkg/catalog):
//   - catalog_entries_dropped_total{reason} (Counter): References dropped (no_image, status, network, timeout, decode)
//   - catalog_page_loads_total{result} (Counter): Page loads by result (ok, error)
//
// Browse Metrics (pkg/browse):
//   - browse_searches_total{outcome} (Counter): Search evaluations (results, no_results, empty_corpus)
//
// Session Metrics (pkg/session):
//   - session_store_errors_total{backend, operation} (Counter): Store failures
//
// Example Prometheus Queries:
//
//   # Share of references dropped per page load
//   sum(rate(catalog_entries_dropped_total[5m])) / sum(rate(catalog_page_loads_total{result="ok"}[5m]))
//
//   # Page load error rate
//   rate(catalog_page_loads_total{result="error"}[5m])
//
//   # P95 detail latency
//   histogram_quantile(0.95, rate(pokeapi_request_duration_seconds_bucket{endpoint="/api/v2/pokemon/{id}/"}[5m]))
