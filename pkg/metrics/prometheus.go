package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	entities      *prometheus.CounterVec
	flagged       *prometheus.CounterVec
	modelFailures *prometheus.CounterVec
	observations  *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
}

// New registers the detection metrics on reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricepulse_runs_total",
				Help: "Detection runs by final status",
			},
			[]string{"status"},
		),
		runDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pricepulse_run_duration_seconds",
				Help:    "Wall time of a detection run",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
		entities: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricepulse_entities_total",
				Help: "Entities evaluated by outcome",
			},
			[]string{"outcome"},
		),
		flagged: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricepulse_anomalies_flagged_total",
				Help: "Anomaly records emitted by direction",
			},
			[]string{"direction"},
		),
		modelFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricepulse_model_failures_total",
				Help: "Outlier model fits that failed and fell back to the manual rule",
			},
			[]string{"model"},
		),
		observations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricepulse_observations_ingested_total",
				Help: "Observations written to the store by source",
			},
			[]string{"source"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricepulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

func (r *Recorder) RecordRun(status string, seconds float64) {
	r.runs.WithLabelValues(status).Inc()
	r.runDuration.Observe(seconds)
}

func (r *Recorder) RecordEntity(outcome string) {
	r.entities.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordFlagged(direction string) {
	r.flagged.WithLabelValues(direction).Inc()
}

func (r *Recorder) RecordModelFailure(model string) {
	r.modelFailures.WithLabelValues(model).Inc()
}

func (r *Recorder) RecordObservations(source string, n int) {
	r.observations.WithLabelValues(source).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
