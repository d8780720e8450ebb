package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Session layer metrics
var (
	tokenRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_token_refresh_total",
		Help: "Token refreshes by trigger (unauthorized, proactive) and outcome.",
	}, []string{"trigger", "outcome"})

	retriedRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_retried_requests_total",
		Help: "Backend requests resent after a 401, by outcome.",
	}, []string{"outcome"})

	guardDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_guard_decisions_total",
		Help: "Route guard decisions by final state and redirect target.",
	}, []string{"state", "redirect"})
)

// HTTP metrics
var (
	httpInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "portal_http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_http_request_duration_seconds",
		Help:    "HTTP request latencies in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

func ObserveRefresh(trigger, outcome string) {
	tokenRefreshTotal.WithLabelValues(trigger, outcome).Inc()
}

func ObserveRetry(outcome string) {
	retriedRequestsTotal.WithLabelValues(outcome).Inc()
}

func ObserveGuard(state, redirect string) {
	if redirect == "" {
		redirect = "none"
	}
	guardDecisionsTotal.WithLabelValues(state, redirect).Inc()
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records in-flight count, totals and latency for next. pattern labels the route so
// path parameters don't explode cardinality.
func Instrument(pattern string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		start := time.Now()

		sw := &StatusWriter{ResponseWriter: w, Code: http.StatusOK}
		next(sw, r)

		status := strconv.Itoa(sw.Code)
		httpRequestsTotal.WithLabelValues(r.Method, pattern, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, pattern, status).Observe(time.Since(start).Seconds())
		httpInFlight.Dec()
	}
}

// StatusWriter remembers the status code written through it.
type StatusWriter struct {
	http.ResponseWriter
	Code int
}

func (w *StatusWriter) WriteHeader(code int) {
	w.Code = code
	w.ResponseWriter.WriteHeader(code)
}
