// Package metricsvc exposes decision counters to Prometheus.
package metricsvc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kymanga/ruzuku/core"
)

type prometheusMetrics struct {
	decisions      *prometheus.CounterVec
	budgetExceeded *prometheus.CounterVec
}

var _ core.DecisionMetrics = (*prometheusMetrics)(nil)

func NewPrometheusMetrics() *prometheusMetrics {
	return newPrometheusMetrics(prometheus.DefaultRegisterer)
}

func newPrometheusMetrics(reg prometheus.Registerer) *prometheusMetrics {
	factory := promauto.With(reg)
	return &prometheusMetrics{
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ruzuku",
			Name:      "decisions_total",
			Help:      "Number of executive decisions, by request kind and outcome.",
		}, []string{"kind", "outcome"}),
		budgetExceeded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ruzuku",
			Name:      "budget_exceeded_total",
			Help:      "Number of approvals refused for lack of budget, by request kind.",
		}, []string{"kind"}),
	}
}

func (m *prometheusMetrics) RecordDecision(kind, outcome string) {
	m.decisions.WithLabelValues(kind, outcome).Inc()
}

func (m *prometheusMetrics) RecordBudgetExceeded(kind string) {
	m.budgetExceeded.WithLabelValues(kind).Inc()
}
