package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsPublisher turns session events into Prometheus series.
type MetricsPublisher struct {
	events     *prometheus.CounterVec
	tokens     *prometheus.CounterVec
	ttft       prometheus.Histogram
	duration   *prometheus.HistogramVec
	throughput prometheus.Gauge
}

// NewMetricsPublisher registers the session collectors with reg.
func NewMetricsPublisher(reg prometheus.Registerer) (*MetricsPublisher, error) {
	p := &MetricsPublisher{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modelbridge",
			Subsystem: "session",
			Name:      "events_total",
			Help:      "Session lifecycle events by name",
		}, []string{"event"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modelbridge",
			Subsystem: "session",
			Name:      "tokens_total",
			Help:      "Tokens processed by kind (prompt, completion)",
		}, []string{"kind"}),
		ttft: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "modelbridge",
			Subsystem: "session",
			Name:      "time_to_first_token_seconds",
			Help:      "Latency until the first streamed token",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "modelbridge",
			Subsystem: "session",
			Name:      "operation_duration_seconds",
			Help:      "Duration of session operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		throughput: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "modelbridge",
			Subsystem: "session",
			Name:      "tokens_per_second",
			Help:      "Decode throughput of the last completion",
		}),
	}
	for _, c := range []prometheus.Collector{p.events, p.tokens, p.ttft, p.duration, p.throughput} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *MetricsPublisher) Publish(e Event) error {
	p.events.WithLabelValues(e.Name).Inc()
	switch e.Name {
	case "complete_done":
		if v, ok := number(e.Fields["prompt_tokens"]); ok {
			p.tokens.WithLabelValues("prompt").Add(v)
		}
		if v, ok := number(e.Fields["completion_tokens"]); ok {
			p.tokens.WithLabelValues("completion").Add(v)
		}
		if v, ok := number(e.Fields["ttft_ms"]); ok {
			p.ttft.Observe(v / 1000)
		}
		if v, ok := number(e.Fields["tokens_per_second"]); ok {
			p.throughput.Set(v)
		}
	}
	if v, ok := number(e.Fields["dur_ms"]); ok {
		op := e.Name
		if f, ok := e.Fields["op"].(string); ok {
			op = f
		}
		p.duration.WithLabelValues(op).Observe(v / 1000)
	}
	return nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}
