// internal/monitoring/metrics.go

// Package monitoring exposes Prometheus metrics for extraction and
// submission activity.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors the engine and CLI report into.
type Metrics struct {
	ExtractionsTotal   *prometheus.CounterVec
	FieldOutcomesTotal *prometheus.CounterVec
	ExtractionDuration prometheus.Histogram
	SubmissionsTotal   *prometheus.CounterVec
	RecipeRefreshTotal *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg and returns them.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ExtractionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pricescout",
			Name:      "extractions_total",
			Help:      "Extraction runs by merchant and outcome.",
		}, []string{"merchant", "outcome"}),
		FieldOutcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pricescout",
			Name:      "field_outcomes_total",
			Help:      "Per-field extraction outcomes.",
		}, []string{"field", "outcome"}),
		ExtractionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pricescout",
			Name:      "extraction_duration_seconds",
			Help:      "Wall time of one extraction pass.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		SubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pricescout",
			Name:      "submissions_total",
			Help:      "Record submissions by outcome.",
		}, []string{"outcome"}),
		RecipeRefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pricescout",
			Name:      "recipe_refresh_total",
			Help:      "Recipe cache refreshes by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.ExtractionsTotal,
		m.FieldOutcomesTotal,
		m.ExtractionDuration,
		m.SubmissionsTotal,
		m.RecipeRefreshTotal,
	)
	return m
}

// ObserveExtraction records one extraction run.
func (m *Metrics) ObserveExtraction(merchant, outcome string, seconds float64) {
	m.ExtractionsTotal.WithLabelValues(merchant, outcome).Inc()
	m.ExtractionDuration.Observe(seconds)
}

// ObserveField records one selector outcome.
func (m *Metrics) ObserveField(field, outcome string) {
	m.FieldOutcomesTotal.WithLabelValues(field, outcome).Inc()
}

// ObserveSubmission records one submission attempt.
func (m *Metrics) ObserveSubmission(outcome string) {
	m.SubmissionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRecipeRefresh records one cache refresh attempt.
func (m *Metrics) ObserveRecipeRefresh(outcome string) {
	m.RecipeRefreshTotal.WithLabelValues(outcome).Inc()
}
