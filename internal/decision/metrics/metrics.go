package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the decision module. A nil *Metrics
// records nothing.
type Metrics struct {
	// Decision outcomes by kind and result
	DecisionOutcome *prometheus.CounterVec

	// Confidence distribution by kind
	Confidence *prometheus.HistogramVec

	// End-to-end evaluation latency, including consent and profile lookups
	EvaluateLatency *prometheus.HistogramVec

	// Administrative overrides by kind and new result
	Overrides *prometheus.CounterVec

	// Narration hand-offs that failed
	NarrationFailures prometheus.Counter
}

// New registers the decision collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DecisionOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trustbank_decision_outcomes_total",
			Help: "Total decision outcomes by kind and result",
		}, []string{"kind", "result"}),

		Confidence: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trustbank_decision_confidence",
			Help:    "Confidence of evaluated decisions",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}, []string{"kind"}),

		EvaluateLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trustbank_decision_evaluate_duration_seconds",
			Help:    "Duration of a decision request including consent and profile lookups",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"kind"}),

		Overrides: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trustbank_decision_overrides_total",
			Help: "Administrative overrides by kind and new result",
		}, []string{"kind", "result"}),

		NarrationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "trustbank_decision_narration_failures_total",
			Help: "Explanations that could not be handed to the narration sink",
		}),
	}
}

// IncrementOutcome records a decision outcome and its confidence.
func (m *Metrics) IncrementOutcome(kind, result string, confidence float64) {
	if m != nil {
		m.DecisionOutcome.WithLabelValues(kind, result).Inc()
		m.Confidence.WithLabelValues(kind).Observe(confidence)
	}
}

// ObserveEvaluateLatency records the total evaluation duration.
func (m *Metrics) ObserveEvaluateLatency(kind string, d time.Duration) {
	if m != nil {
		m.EvaluateLatency.WithLabelValues(kind).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementOverride(kind, result string) {
	if m != nil {
		m.Overrides.WithLabelValues(kind, result).Inc()
	}
}

func (m *Metrics) IncrementNarrationFailure() {
	if m != nil {
		m.NarrationFailures.Inc()
	}
}
