package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	NextIntervalSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swaparb_scheduler_interval_seconds",
			Help:    "Wait drawn before the next cycle",
			Buckets: []float64{1, 2, 5, 10, 15, 20, 30, 60},
		},
		[]string{"pace"},
	)
)
