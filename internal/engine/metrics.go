package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const MetricsPrefix = "phononflow_engine_"

type metrics struct {
	submitted *prometheus.CounterVec
	finished  *prometheus.CounterVec
	busy      *prometheus.GaugeVec
	capacity  *prometheus.GaugeVec
	duration  *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		submitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: MetricsPrefix + "jobs_submitted_total",
			Help: "Number of jobs submitted to an executor",
		}, []string{"executor"}),
		finished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: MetricsPrefix + "jobs_finished_total",
			Help: "Number of jobs finished by an executor, by outcome",
		}, []string{"executor", "outcome"}),
		busy: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: MetricsPrefix + "workers_busy",
			Help: "Number of workers currently running a job",
		}, []string{"executor"}),
		capacity: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: MetricsPrefix + "workers_capacity",
			Help: "Maximum number of concurrent jobs of an executor",
		}, []string{"executor"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricsPrefix + "job_duration_seconds",
			Help:    "Job run time in seconds, excluding time spent waiting for a worker",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 20),
		}, []string{"executor", "outcome"}),
	}
}
