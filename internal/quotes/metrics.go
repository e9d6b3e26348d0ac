package quotes

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// HTTPQuoteDurationSeconds tracks quote API round trips.
	HTTPQuoteDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swaparb_http_quote_duration_seconds",
		Help:    "Duration of quote API requests",
		Buckets: prometheus.DefBuckets,
	})

	// HTTPQuoteErrorsTotal tracks quote API failures by class.
	HTTPQuoteErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swaparb_http_quote_errors_total",
			Help: "Total number of failed quote API requests",
		},
		[]string{"reason"},
	)

	// QuoteCacheHitsTotal tracks quotes served from cache.
	QuoteCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swaparb_quote_cache_hits_total",
		Help: "Total number of quotes served from cache",
	})

	// QuoteCacheMissesTotal tracks quotes fetched upstream.
	QuoteCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swaparb_quote_cache_misses_total",
		Help: "Total number of quotes fetched from the upstream provider",
	})

	// RateLimitedWaitsTotal tracks limiter admissions and rejections.
	RateLimitedWaitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swaparb_quote_rate_limit_waits_total",
			Help: "Total number of quote rate limiter waits by result",
		},
		[]string{"result"},
	)

	// SimulatedFailuresTotal tracks injected failures of the simulated provider.
	SimulatedFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swaparb_simulated_quote_failures_total",
		Help: "Total number of simulated quote failures",
	})
)
