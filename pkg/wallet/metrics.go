package wallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// NativeBalance tracks the native gas token balance.
	NativeBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swaparb_wallet_native_balance",
		Help: "Native gas token balance of the connected wallet",
	})

	// TokenBalance tracks the guarded ERC20 balance.
	TokenBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swaparb_wallet_token_balance",
		Help: "Guarded ERC20 token balance of the connected wallet",
	})

	// BalanceErrorsTotal counts failed balance fetches.
	BalanceErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swaparb_wallet_balance_errors_total",
		Help: "Total number of failed wallet balance fetches",
	})

	// BalanceCheckDuration tracks balance fetch latency.
	BalanceCheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swaparb_wallet_balance_check_duration_seconds",
		Help:    "Time taken to fetch the wallet token balance",
		Buckets: prometheus.DefBuckets,
	})
)
