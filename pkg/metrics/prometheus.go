package metrics

import (
	"SignalDesk/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	analyses    *prometheus.CounterVec
	cacheLookup *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	probability *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		analyses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_analyses_total",
				Help: "Analyses served, by outcome",
			},
			[]string{"outcome"},
		),
		cacheLookup: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_result_cache_total",
				Help: "Result cache lookups, by result",
			},
			[]string{"result"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		probability: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signaldesk_probability_of_rise",
				Help: "Last computed probability of a higher next close",
			},
			[]string{"symbol"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signaldesk_operation_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordAnalysis counts one analysis outcome.
func (r *Recorder) RecordAnalysis(outcome string) {
	r.analyses.WithLabelValues(outcome).Inc()
}

// RecordCache counts one result cache lookup.
func (r *Recorder) RecordCache(result string) {
	r.cacheLookup.WithLabelValues(result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordProbability records the last probability for a symbol.
func (r *Recorder) RecordProbability(symbol string, p float64) {
	r.probability.WithLabelValues(symbol).Set(p)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

var _ repository.Metrics = (*Recorder)(nil)
