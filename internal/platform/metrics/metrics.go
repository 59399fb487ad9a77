package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	CollectorRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_requests_total",
			Help: "Upstream platform API calls by platform, operation and outcome",
		},
		[]string{"platform", "operation", "outcome"},
	)

	SyncJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_jobs_total",
			Help: "Processed sync jobs by final status",
		},
		[]string{"status"},
	)

	CompositeScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "coach_composite_score",
			Help:    "Distribution of computed composite skill scores",
			Buckets: []float64{10, 25, 50, 75, 90, 100},
		},
	)

	CalendarFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coach_calendar_fallbacks_total",
			Help: "Recent-activity count sources used when local data was stale",
		},
		[]string{"source"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter, RequestDuration, CollectorRequests, SyncJobs, CompositeScore, CalendarFallbacks)
}

// Middleware records request count and latency labelled by the matched chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		RequestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
