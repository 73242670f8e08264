package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementOutcome("loan", "approved", 92)
	m.IncrementOutcome("loan", "approved", 61)
	m.IncrementOutcome("fraud", "normal", 0)
	m.IncrementOverride("loan", "rejected")
	m.IncrementNarrationFailure()
	m.ObserveEvaluateLatency("loan", 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DecisionOutcome.WithLabelValues("loan", "approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecisionOutcome.WithLabelValues("fraud", "normal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Overrides.WithLabelValues("loan", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NarrationFailures))
	assert.Equal(t, 2, testutil.CollectAndCount(m.Confidence))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementOutcome("loan", "approved", 50)
		m.ObserveEvaluateLatency("fraud", time.Second)
		m.IncrementOverride("fraud", "normal")
		m.IncrementNarrationFailure()
	})
}
