package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mddb",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mddb",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpResponseBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mddb",
			Name:      "http_response_bytes_total",
			Help:      "Bytes written in HTTP response bodies",
		},
		[]string{"path"},
	)

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mddb",
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestDuration, httpRequestsTotal, httpResponseBytes, httpInFlight)
}

// Middleware records HTTP request duration, count and response size per route pattern.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			httpInFlight.Inc()
			defer httpInFlight.Dec()

			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			status := strconv.Itoa(ww.status)
			path := "unknown"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				path = normalizePath(rctx.RoutePattern())
			}

			httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			httpResponseBytes.WithLabelValues(path).Add(float64(ww.bytes))
		})
	}
}

// normalizePath keeps label cardinality bounded: unmatched routes collapse to "unknown".
func normalizePath(path string) string {
	if path == "" {
		return "unknown"
	}
	return path
}

// statusWriter captures the response status code and body size.
type statusWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err //nolint:wrapcheck // delegating to underlying ResponseWriter
}

// Flush lets streaming handlers (export) push partial output.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
