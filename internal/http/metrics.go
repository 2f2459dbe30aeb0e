package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"dompet/internal/middleware/trace"
)

var (
	httpReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dompet_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dompet_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"method", "route"})
)

// metricsMiddleware labels by route template so ids do not explode
// cardinality.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &trace.StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := routeTemplate(r)
		httpLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		httpReqTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.Status)).Inc()
	})
}
