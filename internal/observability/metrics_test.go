package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRegisterOnIsolatedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWith("interviewer", reg)

	m.Turns.WithLabelValues("ok").Inc()
	m.Escalations.WithLabelValues("warn_80").Inc()
	m.ObserveModelLatency("mock", 1200*time.Millisecond)

	if got := testutil.ToFloat64(m.Turns.WithLabelValues("ok")); got != 1 {
		t.Fatalf("turns_total{ok} = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.ModelLatency); n != 1 {
		t.Fatalf("model_latency_ms series = %d, want 1", n)
	}

	// A second registry must accept the same names.
	_ = NewMetricsWith("interviewer", prometheus.NewRegistry())
}
