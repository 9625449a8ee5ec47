package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	JobOutcomeCompleted    = "completed"
	JobOutcomeRetried      = "retried"
	JobOutcomeDeadLettered = "dead_lettered"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "worker_jobs_completed_total",
			Help:      "Total number of jobs completed by the worker",
		},
		[]string{"queue", "job"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "worker_jobs_failed_total",
			Help:      "Total number of failed job runs",
		},
		[]string{"queue", "job", "outcome"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "worker_job_duration_seconds",
			Help:      "Duration of job processing in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"queue", "job"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "worker_jobs_active",
			Help:      "Number of jobs currently being processed",
		},
		[]string{"queue"},
	)
)
