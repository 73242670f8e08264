package compliance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks audit persistence. A nil *Metrics records nothing.
type Metrics struct {
	eventsEmitted   *prometheus.CounterVec
	persistFailures prometheus.Counter
	persistDuration prometheus.Histogram
}

// NewMetrics registers the audit collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		eventsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trustbank_audit_events_emitted_total",
			Help: "Audit events persisted, by action",
		}, []string{"action"}),
		persistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "trustbank_audit_persist_failures_total",
			Help: "Audit events that failed to persist",
		}),
		persistDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "trustbank_audit_persist_duration_seconds",
			Help:    "Time spent persisting an audit event",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}),
	}
}

func (m *Metrics) IncEventsEmitted(action string) {
	if m == nil {
		return
	}
	m.eventsEmitted.WithLabelValues(action).Inc()
}

func (m *Metrics) IncPersistFailures() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

func (m *Metrics) ObservePersistDuration(seconds float64) {
	if m == nil {
		return
	}
	m.persistDuration.Observe(seconds)
}
