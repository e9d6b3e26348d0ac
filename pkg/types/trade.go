package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeResult is what a Trade Executor reports for one execution attempt.
type TradeResult struct {
	Success     bool
	FinalAmount decimal.Decimal
	Reference   string
	Error       string
}

// ExecutionRecord is the settled outcome of one cycle's execution attempt.
type ExecutionRecord struct {
	ID            string          `json:"id"`
	OpportunityID string          `json:"opportunity_id"`
	Route         string          `json:"route"`
	Kind          StrategyKind    `json:"kind"`
	Timestamp     time.Time       `json:"timestamp"`
	InputAmount   decimal.Decimal `json:"input_amount"`
	ResultAmount  decimal.Decimal `json:"result_amount"`
	Reference     string          `json:"reference,omitempty"`
	Success       bool            `json:"success"`
	Error         string          `json:"error,omitempty"`
}

// Profit is the realized profit in reference units.
func (r ExecutionRecord) Profit() decimal.Decimal {
	return r.ResultAmount.Sub(r.InputAmount)
}

// ProfitPoint is one entry of the charting series.
type ProfitPoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Profit    decimal.Decimal `json:"profit"`
}

// RunningStats is the aggregate view over all settled cycles.
type RunningStats struct {
	TotalTransactions int64             `json:"total_transactions"`
	SuccessRate       decimal.Decimal   `json:"success_rate"`
	AverageProfit     decimal.Decimal   `json:"average_profit"`
	TotalProfit       decimal.Decimal   `json:"total_profit"`
	Series            []ProfitPoint     `json:"series"`
	Recent            []ExecutionRecord `json:"recent"`
}
