// Package stats keeps running aggregates over settled executions.
package stats

import (
	"sync"

	"github.com/mselser95/swap-arb/pkg/types"
	"github.com/shopspring/decimal"
)

const (
	DefaultMaxSeries  = 100
	DefaultMaxHistory = 20
)

var hundred = decimal.NewFromInt(100)

// Aggregator maintains RunningStats incrementally. RecordOutcome is the only mutator.
type Aggregator struct {
	mu         sync.RWMutex
	maxSeries  int
	maxHistory int

	total       int64
	successes   int64
	successRate decimal.Decimal // Percent, 0..100
	avgProfit   decimal.Decimal
	totalProfit decimal.Decimal
	series      []types.ProfitPoint     // Oldest first, capped at maxSeries
	recent      []types.ExecutionRecord // Oldest first, capped at maxHistory
}

// NewAggregator creates an empty aggregator. Non-positive caps fall back to defaults.
func NewAggregator(maxSeries, maxHistory int) *Aggregator {
	if maxSeries <= 0 {
		maxSeries = DefaultMaxSeries
	}
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}

	return &Aggregator{
		maxSeries:   maxSeries,
		maxHistory:  maxHistory,
		successRate: decimal.Zero,
		avgProfit:   decimal.Zero,
		totalProfit: decimal.Zero,
		series:      make([]types.ProfitPoint, 0, maxSeries),
		recent:      make([]types.ExecutionRecord, 0, maxHistory),
	}
}

// RecordOutcome folds one settled execution into the aggregates.
func (a *Aggregator) RecordOutcome(rec types.ExecutionRecord) {
	profit := rec.Profit()

	a.mu.Lock()
	defer a.mu.Unlock()

	next := decimal.NewFromInt(a.total + 1)

	// avg' = avg + (p - avg)/(n+1)
	a.avgProfit = a.avgProfit.Add(profit.Sub(a.avgProfit).Div(next))

	// rate = successes*100/n, always within [0,100].
	if rec.Success {
		a.successes++
	}
	a.successRate = decimal.NewFromInt(a.successes).Mul(hundred).Div(next)

	a.totalProfit = a.totalProfit.Add(profit)
	a.total++

	// Evict from the front, reusing the backing array
	a.series = append(a.series, types.ProfitPoint{Timestamp: rec.Timestamp, Profit: profit})
	if over := len(a.series) - a.maxSeries; over > 0 {
		a.series = append(a.series[:0], a.series[over:]...)
	}

	a.recent = append(a.recent, rec)
	if over := len(a.recent) - a.maxHistory; over > 0 {
		a.recent = append(a.recent[:0], a.recent[over:]...)
	}

	// Update metrics
	TransactionsTotal.WithLabelValues(outcomeLabel(rec.Success)).Inc()
	SuccessRatePercent.Set(a.successRate.InexactFloat64())
	AverageProfit.Set(a.avgProfit.InexactFloat64())
	TotalProfit.Set(a.totalProfit.InexactFloat64())
}

// Snapshot returns a deep copy of the current aggregates.
func (a *Aggregator) Snapshot() types.RunningStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return types.RunningStats{
		TotalTransactions: a.total,
		SuccessRate:       a.successRate,
		AverageProfit:     a.avgProfit,
		TotalProfit:       a.totalProfit,
		Series:            append([]types.ProfitPoint(nil), a.series...),
		Recent:            append([]types.ExecutionRecord(nil), a.recent...),
	}
}

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
