package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const unmatched = "unmatched"

// httpMetrics holds the admin surface's HTTP collectors. They live on a
// per-server registry rather than the process-wide one, so every Server owns
// its own counts and constructing several servers never collides on
// registration.
type httpMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	m := &httpMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "veil_admin_http_requests_total",
				Help: "Total number of admin API requests.",
			},
			[]string{"route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "veil_admin_http_request_duration_seconds",
				Help: "Admin API request duration in seconds.",
				// The admin surface serves registry snapshots and journal
				// reads; its latencies sit well below the default buckets.
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
			[]string{"route"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "veil_admin_http_in_flight_requests",
				Help: "Admin API requests currently being served.",
			},
		),
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration, m.inFlight)
	return m
}

// middleware records count, duration, and in-flight state for every request.
// Uses the chi route pattern (not the raw path) to avoid unbounded
// cardinality, and folds status codes into classes for the same reason.
func (m *httpMetrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.inFlight.Inc()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		m.inFlight.Dec()
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, statusClass(status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// statusClass folds a status code into a 2xx/3xx/4xx/5xx label value.
func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}

// routePattern extracts the matched chi route pattern, falling back to "unmatched".
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return unmatched
}
