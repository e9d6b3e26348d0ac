package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// CyclesTotal counts finished cycles by outcome.
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swaparb_cycles_total",
			Help: "Total number of engine cycles by outcome",
		},
		[]string{"outcome"},
	)

	// CycleDurationSeconds tracks a full cycle from Scanning back to Idle.
	CycleDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swaparb_cycle_duration_seconds",
		Help:    "Duration of engine cycles",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 15, 30, 60},
	})

	// CurrentState mirrors the CycleState as a number.
	CurrentState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swaparb_engine_state",
		Help: "Current engine state (0=idle 1=scanning 2=selecting 3=executing 4=settling)",
	})

	// Running is 1 while the engine is started.
	Running = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swaparb_engine_running",
		Help: "Whether the engine is running (1) or paused (0)",
	})

	// ExecutionTimeoutsTotal counts executions that hit the deadline.
	ExecutionTimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swaparb_execution_timeouts_total",
		Help: "Total number of executions that did not settle in time",
	})

	// SubscribersActive tracks open snapshot subscriptions.
	SubscribersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swaparb_snapshot_subscribers",
		Help: "Number of active snapshot subscribers",
	})

	// SnapshotsDroppedTotal counts stale snapshots evicted from slow subscribers.
	SnapshotsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swaparb_snapshots_dropped_total",
		Help: "Total number of snapshots dropped for slow subscribers",
	})
)
