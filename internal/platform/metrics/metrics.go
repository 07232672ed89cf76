package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	Verifications     *prometheus.CounterVec
	AccountsCreated   prometheus.Counter
	MergesCompleted   prometheus.Counter
	MergeStepFailures *prometheus.CounterVec
	TrustRecomputes   prometheus.Counter
	CompositeScore    prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustgate_verifications_total",
			Help: "Identity proof verifications by provider kind and outcome",
		}, []string{"provider", "outcome"}),
		AccountsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustgate_accounts_created_total",
			Help: "Total accounts provisioned by the resolver",
		}),
		MergesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustgate_merges_completed_total",
			Help: "Total account merges run to completion",
		}),
		MergeStepFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustgate_merge_step_failures_total",
			Help: "Merge step failures by step name",
		}, []string{"step"}),
		TrustRecomputes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustgate_trust_recomputes_total",
			Help: "Total trust score recomputations",
		}),
		CompositeScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "trustgate_trust_composite_score",
			Help:    "Distribution of recomputed composite trust scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
	}
}

// ObserveVerification records one verification attempt.
func (m *Metrics) ObserveVerification(provider, outcome string) {
	m.Verifications.WithLabelValues(provider, outcome).Inc()
}
