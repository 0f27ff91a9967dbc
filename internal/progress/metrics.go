package progress

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sseStreams = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "herald",
	Name:      "sse_streams_active",
	Help:      "Open progress streams.",
})
