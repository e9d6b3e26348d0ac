package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// CandidatesPricedTotal tracks candidates that resolved into an opportunity.
	CandidatesPricedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swaparb_candidates_priced_total",
			Help: "Total number of candidates priced into opportunities",
		},
		[]string{"kind"},
	)

	// CandidateFailuresTotal tracks candidates dropped from a cycle.
	CandidateFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swaparb_candidate_failures_total",
			Help: "Total number of candidates that failed to price",
		},
		[]string{"reason"},
	)

	// OpportunitiesRejectedTotal tracks priced opportunities filtered before selection.
	OpportunitiesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swaparb_opportunities_rejected_total",
			Help: "Total number of priced opportunities rejected before selection",
		},
		[]string{"reason"},
	)

	// OpportunitiesSelectedTotal tracks selections by kind.
	OpportunitiesSelectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swaparb_opportunities_selected_total",
			Help: "Total number of opportunities selected for execution",
		},
		[]string{"kind"},
	)

	// NetProfitBPS tracks net profit after fees in basis points.
	NetProfitBPS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swaparb_net_profit_bps",
		Help:    "Priced opportunity net profit after fees in basis points",
		Buckets: []float64{-100, -25, 0, 10, 25, 50, 100, 200, 500},
	})

	// ScanDurationSeconds tracks the fan-out/fan-in duration of a scan.
	ScanDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swaparb_scan_duration_seconds",
		Help:    "Duration of one candidate evaluation pass",
		Buckets: prometheus.DefBuckets,
	})

	// RoutesDisabled tracks routes out of rotation after permanent quote failures.
	RoutesDisabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swaparb_routes_disabled",
		Help: "Number of routes disabled after permanent quote failures",
	})
)
