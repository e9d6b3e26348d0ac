package arbitrage

import (
	"fmt"

	"github.com/mselser95/swap-arb/pkg/types"
	"github.com/shopspring/decimal"
)

// BuildCandidates binds every template to the trade amount, one candidate per template.
func BuildCandidates(templates []types.RouteTemplate, amount decimal.Decimal) ([]types.Candidate, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: trade amount must be positive, got %s", types.ErrInvalidAmount, amount)
	}

	candidates := make([]types.Candidate, 0, len(templates))
	for _, tmpl := range templates {
		candidates = append(candidates, types.Candidate{
			Template: tmpl,
			Amount:   amount,
		})
	}

	return candidates, nil
}
