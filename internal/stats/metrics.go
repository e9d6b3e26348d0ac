package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// TransactionsTotal counts settled executions by outcome.
	TransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swaparb_transactions_total",
			Help: "Total number of settled executions",
		},
		[]string{"outcome"},
	)

	// SuccessRatePercent mirrors RunningStats.SuccessRate.
	SuccessRatePercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swaparb_success_rate_percent",
		Help: "Percentage of successful executions",
	})

	// AverageProfit mirrors RunningStats.AverageProfit.
	AverageProfit = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swaparb_average_profit",
		Help: "Running mean of realized profit in reference units",
	})

	// TotalProfit mirrors RunningStats.TotalProfit.
	TotalProfit = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swaparb_total_profit",
		Help: "Cumulative realized profit in reference units",
	})
)
