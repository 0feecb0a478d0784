package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	syncAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_sync_attempts_total",
			Help: "Total number of lead sync attempts by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	syncBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_sync_batches_total",
			Help: "Total number of sync batches run",
		},
		[]string{"mode"},
	)

	syncSkippedRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lead_sync_skipped_runs_total",
			Help: "Snapshots coalesced because a batch was already running",
		},
	)

	upstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopify_upstream_errors_total",
			Help: "Total number of commerce platform errors by operation",
		},
		[]string{"operation"},
	)

	leadsCaptured = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leads_captured_total",
			Help: "Total number of leads captured from the web form",
		},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeConnections.Inc()
		defer activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)
		path := routePattern(r)

		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// Usa o pattern do chi (/leads/{id}) para não explodir a cardinalidade com ids.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// SyncMetrics implementa o recorder do engine de sync.
type SyncMetrics struct{}

func (SyncMetrics) RecordSyncAttempt(mode, outcome string) {
	syncAttempts.WithLabelValues(mode, outcome).Inc()
}

func (SyncMetrics) RecordSyncBatch(mode string) {
	syncBatches.WithLabelValues(mode).Inc()
}

func (SyncMetrics) RecordSkippedRun() {
	syncSkippedRuns.Inc()
}

func RecordUpstreamError(operation string) {
	upstreamErrors.WithLabelValues(operation).Inc()
}

func RecordLeadCaptured() {
	leadsCaptured.Inc()
}
