// Package metrics exposes Prometheus instrumentation for the decision
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors the pipeline increments. All collectors are
// registered against the registry passed to New.
type Metrics struct {
	DecisionsTotal     *prometheus.CounterVec
	DecisionCacheHits  prometheus.Counter
	BureauResultsTotal *prometheus.CounterVec
	RulesInferredTotal prometheus.Counter
	DecisionDuration   prometheus.Histogram
}

// New registers the pipeline collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		DecisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "creditd",
			Name:      "decisions_total",
			Help:      "Decisions produced, labelled by outcome.",
		}, []string{"decision"}),
		DecisionCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "creditd",
			Name:      "decision_cache_hits_total",
			Help:      "Evaluations answered from a previously stored decision.",
		}),
		BureauResultsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "creditd",
			Name:      "bureau_results_total",
			Help:      "Bureau results observed during evaluation, labelled by bureau and status.",
		}, []string{"bureau", "status"}),
		RulesInferredTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "creditd",
			Name:      "rules_inferred_total",
			Help:      "Model-proposed rules accepted into the rule store.",
		}),
		DecisionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "creditd",
			Name:      "decision_duration_seconds",
			Help:      "End-to-end evaluation latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
