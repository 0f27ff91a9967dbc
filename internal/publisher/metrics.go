package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "herald",
		Name:      "publish_results_total",
		Help:      "Publish attempts by platform, status and error code.",
	}, []string{"platform", "status", "error_code"})

	publishDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "herald",
		Name:      "publish_duration_seconds",
		Help:      "Publish attempt latency including the token check.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"platform"})
)
