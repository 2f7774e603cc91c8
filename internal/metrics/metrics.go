package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tick_viewer",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tick_viewer",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tick_viewer",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	listingRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tick_viewer",
			Subsystem: "listing",
			Name:      "refreshes_total",
			Help:      "Total number of listing refreshes by outcome.",
		},
		[]string{"source", "success"},
	)

	listingRefreshDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tick_viewer",
			Subsystem: "listing",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of full listing refreshes.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"source"},
	)

	listingEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tick_viewer",
			Subsystem: "listing",
			Name:      "entries",
			Help:      "Classified entries in the current listing snapshot.",
		},
		[]string{"source"},
	)

	rowsNormalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tick_viewer",
			Subsystem: "normalizer",
			Name:      "rows_total",
			Help:      "Rows processed by the normalizer by outcome.",
		},
		[]string{"outcome"},
	)

	remoteErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tick_viewer",
			Subsystem: "remote",
			Name:      "errors_total",
			Help:      "Failed remote store calls.",
		},
		[]string{"operation"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		listingRefreshes,
		listingRefreshDuration,
		listingEntries,
		rowsNormalized,
		remoteErrors,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordListingRefresh records one listing refresh attempt. entries is only
// meaningful when success is true.
func RecordListingRefresh(source string, success bool, duration time.Duration, entries int) {
	listingRefreshes.WithLabelValues(source, strconv.FormatBool(success)).Inc()
	listingRefreshDuration.WithLabelValues(source).Observe(duration.Seconds())
	if success {
		listingEntries.WithLabelValues(source).Set(float64(entries))
	}
}

// RecordNormalized records the kept and dropped row counts of one document.
func RecordNormalized(kept, dropped int) {
	rowsNormalized.WithLabelValues("kept").Add(float64(kept))
	rowsNormalized.WithLabelValues("dropped").Add(float64(dropped))
}

// RecordRemoteError counts a failed remote store call.
func RecordRemoteError(operation string) {
	remoteErrors.WithLabelValues(operation).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// canonicalPath collapses file ids so label cardinality stays bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] == "files" && len(parts) > 1 {
		return "/files/:id/" + strings.Join(parts[2:], "/")
	}
	return "/" + parts[0]
}
