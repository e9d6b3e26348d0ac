package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TradesTotal tracks trade executions.
	TradesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swaparb_execution_trades_total",
			Help: "Total number of trades executed",
		},
		[]string{"mode", "result"},
	)

	// ProfitRealized tracks cumulative realized profit; it can go down on reverts.
	ProfitRealized = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "swaparb_execution_profit_realized",
			Help: "Cumulative profit realized in reference units (hypothetical for paper trading)",
		},
		[]string{"mode"},
	)

	// PaperBalance tracks the paper wallet.
	PaperBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swaparb_execution_paper_balance",
		Help: "Paper wallet balance in reference units",
	})

	// ExecutionDurationSeconds tracks execution latency.
	ExecutionDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swaparb_execution_duration_seconds",
			Help:    "Duration of trade execution",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 7.5, 10, 15, 30},
		},
		[]string{"mode"},
	)

	// ExecutionErrorsTotal tracks execution failures.
	ExecutionErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swaparb_execution_errors_total",
		Help: "Total number of execution errors",
	})
)
