package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "irun",
		Name:      "http_in_flight_requests",
		Help:      "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "irun",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "irun",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	SessionsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "irun",
		Subsystem: "sessions",
		Name:      "created_total",
		Help:      "Sessions issued at login or registration.",
	})

	SessionsRenewed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "irun",
		Subsystem: "sessions",
		Name:      "renewed_total",
		Help:      "Sliding-window session renewals.",
	})

	SessionsPurged = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "irun",
		Subsystem: "sessions",
		Name:      "purged_total",
		Help:      "Session rows deleted, by reason.",
	}, []string{"reason"})

	AuthorizationDenied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "irun",
		Subsystem: "authz",
		Name:      "denied_total",
		Help:      "Guard rejections, by outcome.",
	}, []string{"outcome"})

	EventViews = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "irun",
		Subsystem: "catalog",
		Name:      "view_increments_total",
		Help:      "Fire-and-forget view count increments, by result.",
	}, []string{"result"})

	AuditWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "irun",
		Subsystem: "audit",
		Name:      "write_failures_total",
		Help:      "Audit entries that could not be persisted.",
	})
)

var registerOnce sync.Once

// Init registers every collector with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			SessionsCreated, SessionsRenewed, SessionsPurged,
			AuthorizationDenied, EventViews, AuditWriteFailures,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records request count, latency and in-flight gauge, labelled by chi route pattern.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
