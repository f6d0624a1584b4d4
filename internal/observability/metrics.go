package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// Batch request rate. Watch for: traffic volume, rate() for QPS.
	WeatherBatchesTotal prometheus.Counter

	// Locations routed to the cached path during partitioning.
	CacheHitsTotal prometheus.Counter

	// Locations routed to the remote-fetch path during partitioning.
	// Hit rate = hits/(hits+misses).
	CacheMissesTotal prometheus.Counter

	// Upstream weather API call rate. Watch for: error vs success ratio.
	WeatherAPICallsTotal *prometheus.CounterVec

	// Upstream API latency per request. Watch for: p95 > 2s (upstream degradation).
	WeatherAPIDuration *prometheus.HistogramVec

	// Durable cache blob writes by backend. Watch for: error ratio per backend.
	CacheBlobWritesTotal *prometheus.CounterVec

	// Durable cache blob read-backs at store construction.
	CacheBlobReadsTotal *prometheus.CounterVec

	// Cache warming runs and failures.
	CacheWarmingTotal       prometheus.Counter
	CacheWarmingErrorsTotal prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	WeatherBatchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherBatchesTotal",
			Help: "Total number of weather batch lookups",
		},
	)
	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Locations served from the fresh cache during partitioning",
		},
	)
	CacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheMissesTotal",
			Help: "Locations requiring a remote fetch during partitioning",
		},
	)
	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total number of upstream weather API calls",
		},
		[]string{"status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "Upstream weather API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	CacheBlobWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheBlobWritesTotal",
			Help: "Durable cache blob writes",
		},
		[]string{"backend", "status"},
	)
	CacheBlobReadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheBlobReadsTotal",
			Help: "Durable cache blob read-backs at startup",
		},
		[]string{"backend", "status"},
	)
	CacheWarmingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingTotal",
			Help: "Cache warming runs",
		},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingErrorsTotal",
			Help: "Cache warming runs that had at least one failure",
		},
	)

	registry.MustRegister(
		WeatherBatchesTotal,
		CacheHitsTotal, CacheMissesTotal,
		WeatherAPICallsTotal, WeatherAPIDuration,
		CacheBlobWritesTotal, CacheBlobReadsTotal,
		CacheWarmingTotal, CacheWarmingErrorsTotal,
	)
}

// StatusLabel maps an HTTP status code to a stable metric label.
func StatusLabel(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "success"
	case statusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	case statusCode >= 500:
		return "server_error"
	default:
		return "error"
	}
}

// MetricsHandler returns an http.Handler serving application and runtime
// metrics. The library starts no listener; embed this where needed.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
