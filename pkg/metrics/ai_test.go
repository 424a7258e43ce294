package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestAIMetricsRecordsCallsAndBreaker(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAIMetrics(reg)

	m.ObserveCall("extract_deal", "success", 800*time.Millisecond)
	m.ObserveCall("extract_deal", "rate_limited", 0)
	m.ObserveCall("extract_deal", "success", 200*time.Millisecond)
	m.SetBreakerOpen("llm", true)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	mf := findMetricFamily(mfs, "frostline_ai_calls_total")
	if mf == nil {
		t.Fatal("calls metric not found")
	}
	var success, limited float64
	for _, metric := range mf.GetMetric() {
		switch {
		case matchesLabel(metric.GetLabel(), "outcome", "success"):
			success = metric.GetCounter().GetValue()
		case matchesLabel(metric.GetLabel(), "outcome", "rate_limited"):
			limited = metric.GetCounter().GetValue()
		}
	}
	if success != 2 || limited != 1 {
		t.Fatalf("expected success=2 limited=1, got %v %v", success, limited)
	}

	hist := findMetricFamily(mfs, "frostline_ai_call_duration_seconds")
	if hist == nil || hist.GetMetric()[0].GetHistogram().GetSampleCount() != 2 {
		t.Fatalf("expected two latency samples, got %v", hist)
	}

	gauge := findMetricFamily(mfs, "frostline_ai_breaker_open")
	if gauge == nil || gauge.GetMetric()[0].GetGauge().GetValue() != 1 {
		t.Fatalf("expected breaker gauge 1, got %v", gauge)
	}
}

func TestNilAIMetricsAreNoops(t *testing.T) {
	var m *AIMetrics
	m.ObserveCall("x", "success", time.Second)
	m.SetBreakerOpen("llm", false)
	NewAIMetrics(nil).ObserveCall("x", "success", time.Second)
}
