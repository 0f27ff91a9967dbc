package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "herald",
			Name:      "agent_step_duration_seconds",
			Help:      "Duration of each agent step.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"phase"},
	)

	stepFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "herald",
			Name:      "agent_step_failures_total",
			Help:      "Steps that recorded an error.",
		},
		[]string{"phase"},
	)

	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "herald",
			Name:      "agent_runs_total",
			Help:      "Completed agent runs by outcome.",
		},
		[]string{"outcome"}, // clarified, published, not_published
	)

	qualityOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "herald",
			Name:      "agent_quality_reviews_total",
			Help:      "Quality gate verdicts.",
		},
		[]string{"status"},
	)

	researchSources = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "herald",
			Name:      "agent_research_sources",
			Help:      "Evidence blocks gathered per run.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		},
	)
)
