package publish

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	SnapshotsPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swaparb_redis_snapshots_published_total",
		Help: "Total number of snapshots published to Redis",
	})

	RecordsPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swaparb_redis_records_published_total",
		Help: "Total number of execution records appended to the Redis stream",
	})

	PublishErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swaparb_redis_publish_errors_total",
			Help: "Total number of failed Redis writes",
		},
		[]string{"kind"},
	)
)
