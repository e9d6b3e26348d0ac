package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricedOpportunity is a route template evaluated against live quotes.
// Values are passed by copy and never mutated after creation.
type PricedOpportunity struct {
	ID    string       `json:"id"`
	Route string       `json:"route"`
	Kind  StrategyKind `json:"kind"`
	Hops  []string     `json:"hops"`
	// Venues is informational only.
	Venues []string `json:"venues,omitempty"`

	InputAmount  decimal.Decimal `json:"input_amount"`
	OutputAmount decimal.Decimal `json:"output_amount"`
	GrossProfit  decimal.Decimal `json:"gross_profit"`
	Fees         decimal.Decimal `json:"fees"`
	NetProfit    decimal.Decimal `json:"net_profit"`
	ProfitBps    int64           `json:"profit_bps"`

	EstimatedLatency time.Duration `json:"estimated_latency"`
	EvaluatedAt      time.Time     `json:"evaluated_at"`
}

// Actionable reports whether the opportunity clears epsilon with a positive profit.
func (o PricedOpportunity) Actionable(epsilon decimal.Decimal) bool {
	return o.NetProfit.IsPositive() && o.NetProfit.GreaterThanOrEqual(epsilon)
}

// Quote is a Quote Provider answer for a single leg.
type Quote struct {
	BuyAmount decimal.Decimal
	// EstimatedLatency is optional; zero means the caller measures it.
	EstimatedLatency time.Duration
	Venue            string
}
