package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/mselser95/swap-arb/pkg/types"
	"github.com/shopspring/decimal"
)

// StableTokens returns a token set where every token is worth one reference unit.
func StableTokens(symbols ...string) *types.TokenSet {
	tokens := make([]types.Token, 0, len(symbols)+1)
	tokens = append(tokens, types.Token{Symbol: "USDT", Decimals: 6, RefPrice: decimal.NewFromInt(1)})
	for _, sym := range symbols {
		if sym == "USDT" {
			continue
		}
		tokens = append(tokens, types.Token{Symbol: sym, Decimals: 6, RefPrice: decimal.NewFromInt(1)})
	}

	set, err := types.NewTokenSet("USDT", tokens)
	if err != nil {
		panic(err)
	}
	return set
}

// DirectRoute creates a two-hop direct template.
func DirectRoute(label, sell, buy string) types.RouteTemplate {
	return types.RouteTemplate{Label: label, Kind: types.KindDirect, Hops: []string{sell, buy}}
}

// HotRoute creates a two-hop hot template.
func HotRoute(label, sell, buy string) types.RouteTemplate {
	return types.RouteTemplate{Label: label, Kind: types.KindHot, Hops: []string{sell, buy}}
}

// TriangularRoute creates an A→B→C→A template.
func TriangularRoute(label, a, b, c string) types.RouteTemplate {
	return types.RouteTemplate{Label: label, Kind: types.KindTriangular, Hops: []string{a, b, c, a}}
}

// CreateTestOpportunity builds a priced opportunity with the given profit and latency.
func CreateTestOpportunity(route string, kind types.StrategyKind, netProfit string, latency time.Duration) types.PricedOpportunity {
	net := decimal.RequireFromString(netProfit)
	input := decimal.NewFromInt(100)
	return types.PricedOpportunity{
		ID:               uuid.New().String(),
		Route:            route,
		Kind:             kind,
		Hops:             []string{"USDT", "USDC"},
		InputAmount:      input,
		OutputAmount:     input.Add(net),
		GrossProfit:      net,
		NetProfit:        net,
		ProfitBps:        net.Mul(decimal.NewFromInt(100)).IntPart(),
		EstimatedLatency: latency,
		EvaluatedAt:      time.Now(),
	}
}
