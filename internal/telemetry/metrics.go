package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the experiment service.
type Metrics struct {
	ExperimentsTotal  *prometheus.CounterVec
	SamplesTotal      *prometheus.CounterVec
	TokensTotal       *prometheus.CounterVec
	CostUSDTotal      *prometheus.CounterVec
	RequestDurationMs *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		ExperimentsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "promptlab_experiments_total",
			Help: "Total number of experiments run.",
		}, []string{"model", "provider", "status"}),

		SamplesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "promptlab_samples_total",
			Help: "Total number of samples executed across all experiments.",
		}, []string{"model", "status"}),

		TokensTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "promptlab_tokens_total",
			Help: "Total tokens consumed by successful samples.",
		}, []string{"model"}),

		CostUSDTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "promptlab_cost_usd_total",
			Help: "Estimated total provider cost in USD.",
		}, []string{"model", "provider"}),

		RequestDurationMs: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "promptlab_request_duration_ms",
			Help:    "Experiment request duration in milliseconds (including provider latency).",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		}, []string{"model", "provider"}),
	}
}

// ExperimentLabels holds the values recorded for one finished experiment.
type ExperimentLabels struct {
	Model             string
	Provider          string
	Status            string
	SuccessfulSamples int
	FailedSamples     int
	Tokens            int
	CostUSD           float64
	DurationMs        float64
}

// RecordExperiment records metrics for a completed experiment run.
func (m *Metrics) RecordExperiment(labels ExperimentLabels) {
	m.ExperimentsTotal.WithLabelValues(labels.Model, labels.Provider, labels.Status).Inc()
	m.RequestDurationMs.WithLabelValues(labels.Model, labels.Provider).Observe(labels.DurationMs)

	if labels.SuccessfulSamples > 0 {
		m.SamplesTotal.WithLabelValues(labels.Model, "success").Add(float64(labels.SuccessfulSamples))
	}
	if labels.FailedSamples > 0 {
		m.SamplesTotal.WithLabelValues(labels.Model, "failure").Add(float64(labels.FailedSamples))
	}
	if labels.Tokens > 0 {
		m.TokensTotal.WithLabelValues(labels.Model).Add(float64(labels.Tokens))
	}
	if labels.CostUSD > 0 {
		m.CostUSDTotal.WithLabelValues(labels.Model, labels.Provider).Add(labels.CostUSD)
	}
}
