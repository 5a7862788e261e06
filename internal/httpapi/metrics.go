package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "modelbridge"

func httpOpts(name, help string) prometheus.Opts {
	return prometheus.Opts{Namespace: metricsNamespace, Subsystem: "http", Name: name, Help: help}
}

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts(httpOpts("requests_total", "HTTP requests by route, method and status")),
		[]string{"path", "method", "status"},
	)

	// Generation requests run for seconds, so the buckets reach further than
	// the client defaults.
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route, method and status",
			Buckets:   []float64{.005, .025, .1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"path", "method", "status"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts(httpOpts("inflight_requests", "HTTP requests currently being served")),
	)

	busyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts(httpOpts("busy_total", "Requests answered 409 because the session was busy")),
		[]string{"reason"},
	)

	streamedLines = prometheus.NewCounterVec(
		prometheus.CounterOpts(httpOpts("streamed_lines_total", "NDJSON lines written by streaming endpoints")),
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpInflight, busyTotal, streamedLines)
}

// statusRecorder captures the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Flush keeps NDJSON streaming working through the recorder.
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// MetricsMiddleware counts and times every request.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInflight.Inc()
		defer httpInflight.Dec()

		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sr, r)
		// chi fills in the route pattern while routing, so read it afterwards.
		labels := []string{routePatternOrPath(r), r.Method, strconv.Itoa(sr.status)}
		httpRequestsTotal.WithLabelValues(labels...).Inc()
		httpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
	})
}

// routePatternOrPath keeps label cardinality bounded by preferring the chi
// route pattern over the raw path.
func routePatternOrPath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// IncrementBusy counts a 409 answer; reason is generating or downloading.
func IncrementBusy(reason string) {
	if reason == "" {
		reason = "unspecified"
	}
	busyTotal.WithLabelValues(reason).Inc()
}
