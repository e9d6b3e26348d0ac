package arbitrage

import (
	"sort"

	"github.com/mselser95/swap-arb/pkg/types"
	"github.com/shopspring/decimal"
)

// Selector picks the single best opportunity of a cycle.
type Selector struct {
	// Epsilon is both the actionable floor and the profit tie window.
	Epsilon decimal.Decimal
	// MinEdgeBps drops opportunities whose ProfitBps is below it. Zero disables the check.
	MinEdgeBps int64
}

// Select returns the best actionable opportunity, or false when none qualifies.
// The result depends only on the set of opportunities, not their order.
func (s Selector) Select(opps []types.PricedOpportunity) (types.PricedOpportunity, bool) {
	eligible := make([]types.PricedOpportunity, 0, len(opps))
	for _, opp := range opps {
		if !opp.Actionable(s.Epsilon) {
			continue
		}
		if !s.meetsMinEdge(opp) {
			OpportunitiesRejectedTotal.WithLabelValues("below_min_edge").Inc()
			continue
		}
		eligible = append(eligible, opp)
	}

	if len(eligible) == 0 {
		return types.PricedOpportunity{}, false
	}

	maxProfit := eligible[0].NetProfit
	for _, opp := range eligible[1:] {
		if opp.NetProfit.GreaterThan(maxProfit) {
			maxProfit = opp.NetProfit
		}
	}

	floor := maxProfit.Sub(s.Epsilon)

	var best types.PricedOpportunity
	found := false
	for _, opp := range eligible {
		if opp.NetProfit.LessThan(floor) {
			continue
		}
		if !found || tieBreak(opp, best) {
			best = opp
			found = true
		}
	}

	return best, found
}

// Rank orders opportunities best first for display. Opportunities Select would
// consider come first, so the head of a non-empty ranking is always Select's pick.
func (s Selector) Rank(opps []types.PricedOpportunity) []types.PricedOpportunity {
	var eligible, rest []types.PricedOpportunity
	for _, opp := range opps {
		if opp.Actionable(s.Epsilon) && s.meetsMinEdge(opp) {
			eligible = append(eligible, opp)
		} else {
			rest = append(rest, opp)
		}
	}

	ranked := make([]types.PricedOpportunity, 0, len(opps))
	ranked = append(ranked, s.rankWithin(eligible)...)
	ranked = append(ranked, s.rankWithin(rest)...)
	return ranked
}

// rankWithin sorts by profit, then groups runs that sit within Epsilon of the
// run's leader and orders each group by tieBreak, matching Select's tie window.
func (s Selector) rankWithin(opps []types.PricedOpportunity) []types.PricedOpportunity {
	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].NetProfit.GreaterThan(opps[j].NetProfit)
	})

	for lo := 0; lo < len(opps); {
		floor := opps[lo].NetProfit.Sub(s.Epsilon)
		hi := lo + 1
		for hi < len(opps) && !opps[hi].NetProfit.LessThan(floor) {
			hi++
		}
		group := opps[lo:hi]
		sort.SliceStable(group, func(i, j int) bool {
			return tieBreak(group[i], group[j])
		})
		lo = hi
	}

	return opps
}

func (s Selector) meetsMinEdge(opp types.PricedOpportunity) bool {
	return s.MinEdgeBps <= 0 || opp.ProfitBps >= s.MinEdgeBps
}

// tieBreak reports whether a beats b among equally profitable opportunities:
// kind priority, then lower latency, then label, then ID.
func tieBreak(a, b types.PricedOpportunity) bool {
	if pa, pb := a.Kind.Priority(), b.Kind.Priority(); pa != pb {
		return pa > pb
	}
	if a.EstimatedLatency != b.EstimatedLatency {
		return a.EstimatedLatency < b.EstimatedLatency
	}
	if a.Route != b.Route {
		return a.Route < b.Route
	}
	return a.ID < b.ID
}
