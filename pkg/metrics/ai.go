package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AIMetrics tracks guarded calls to the AI provider.
type AIMetrics struct {
	calls       *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	breakerOpen *prometheus.GaugeVec
}

func NewAIMetrics(reg prometheus.Registerer) *AIMetrics {
	if reg == nil {
		return &AIMetrics{}
	}
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ai",
		Name:      "calls_total",
		Help:      "AI calls by operation and outcome.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ai",
		Name:      "call_duration_seconds",
		Help:      "Latency of AI calls that reached the provider.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 30},
	}, []string{"operation"})
	breakerOpen := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ai",
		Name:      "breaker_open",
		Help:      "1 while the named circuit breaker is open or half-open.",
	}, []string{"breaker"})
	reg.MustRegister(calls, duration, breakerOpen)
	return &AIMetrics{calls: calls, duration: duration, breakerOpen: breakerOpen}
}

// ObserveCall records one guarded call. Calls rejected before reaching the
// provider carry a zero duration and are not added to the histogram.
func (m *AIMetrics) ObserveCall(operation, outcome string, d time.Duration) {
	if m == nil || m.calls == nil {
		return
	}
	op := normalizeLabel(operation)
	m.calls.WithLabelValues(op, normalizeLabel(outcome)).Inc()
	if d > 0 {
		m.duration.WithLabelValues(op).Observe(d.Seconds())
	}
}

// SetBreakerOpen flips the breaker gauge.
func (m *AIMetrics) SetBreakerOpen(breaker string, open bool) {
	if m == nil || m.breakerOpen == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.breakerOpen.WithLabelValues(normalizeLabel(breaker)).Set(v)
}
