package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Sync metrics
	SyncRunsTotal        *prometheus.CounterVec
	SyncDuration         *prometheus.HistogramVec
	EventsFetchedTotal   *prometheus.CounterVec
	RetainedEvents       prometheus.Gauge
	LastSyncTimestamp    prometheus.Gauge
	RefreshRejectedTotal prometheus.Counter

	// Upstream metrics
	UpstreamRequestsTotal *prometheus.CounterVec

	// Storage metrics
	StorageOperationsTotal *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
}

const namespace = "stackpulse"

// NewMetrics creates all collectors and registers them with registry
func NewMetrics(registry *prometheus.Registry) *Metrics {
	f := promauto.With(registry)
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return f.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
	}
	histogram := func(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
		return f.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: name, Help: help, Buckets: buckets}, labels)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return f.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}

	return &Metrics{
		HTTPRequestsTotal: counter("http_requests_total",
			"Total number of HTTP requests", "method", "path", "status"),
		HTTPRequestDuration: histogram("http_request_duration_seconds",
			"HTTP request duration in seconds", prometheus.DefBuckets, "method", "path"),
		HTTPResponseSize: histogram("http_response_size_bytes",
			"HTTP response size in bytes", prometheus.ExponentialBuckets(100, 10, 8), "method", "path"),

		SyncRunsTotal: counter("sync_runs_total",
			"Total number of sync runs", "mode", "status"),
		SyncDuration: histogram("sync_duration_seconds",
			"Sync duration in seconds", []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120}, "mode"),
		EventsFetchedTotal: counter("events_fetched_total",
			"Total number of events fetched from upstream", "mode"),
		RetainedEvents: gauge("retained_events",
			"Number of raw events in the retained window"),
		LastSyncTimestamp: gauge("last_sync_timestamp_seconds",
			"Unix time of the last successful sync"),
		RefreshRejectedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_rejected_total",
			Help:      "Total number of manual refreshes rejected by the cooldown",
		}),

		UpstreamRequestsTotal: counter("upstream_requests_total",
			"Total number of upstream analytics API requests", "endpoint", "status"),
		StorageOperationsTotal: counter("storage_operations_total",
			"Total number of object store operations", "operation", "backend", "status"),

		CacheHitsTotal: counter("cache_hits_total",
			"Total number of cache hits", "cache_type"),
		CacheMissesTotal: counter("cache_misses_total",
			"Total number of cache misses", "cache_type"),
	}
}

// ObserveUpstreamRequest records one upstream request. status 0 means no response.
func (m *Metrics) ObserveUpstreamRequest(endpoint string, status int) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.UpstreamRequestsTotal.WithLabelValues(endpoint, label).Inc()
}

// ObserveStorageOperation records one object store operation
func (m *Metrics) ObserveStorageOperation(operation, backend, status string) {
	m.StorageOperationsTotal.WithLabelValues(operation, backend, status).Inc()
}

// ObserveDocumentCache records an L1 document cache lookup
func (m *Metrics) ObserveDocumentCache(hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues("document").Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues("document").Inc()
}

// recordingWriter remembers the status and body size written by the handler
type recordingWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *recordingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics. route maps a
// request to a bounded label; the raw path is used when route is nil.
func HTTPMetricsMiddleware(metrics *Metrics, route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			path := r.URL.Path
			if route != nil {
				path = route(r)
			}
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
			metrics.HTTPResponseSize.WithLabelValues(r.Method, path).Observe(float64(rec.size))
		})
	}
}

// MetricsHandler serves the registry in the Prometheus exposition format
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
