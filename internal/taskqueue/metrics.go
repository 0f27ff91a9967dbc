package taskqueue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "herald",
		Name:      "jobs_total",
		Help:      "Jobs executed by the task runner, by outcome.",
	}, []string{"outcome"})

	jobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "herald",
		Name:      "job_duration_seconds",
		Help:      "Wall time spent executing a job.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
	})

	jobWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "herald",
		Name:      "job_wait_seconds",
		Help:      "Time between submission and the start of execution.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	activeJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "herald",
		Name:      "jobs_active",
		Help:      "Jobs currently executing.",
	})

	// QueueDepth is sampled by the API at submission time.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "herald",
		Name:      "queue_depth",
		Help:      "Jobs running, reserved or waiting at the last submission.",
	})
)
