package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Leg is one token-to-token conversion within a route.
type Leg struct {
	Sell string
	Buy  string
}

// RouteTemplate is the static description of one strategy instance.
type RouteTemplate struct {
	Label  string
	Kind   StrategyKind
	Hops   []string
	Venues []string
}

// Validate checks hop count and shape against the template's kind.
func (r RouteTemplate) Validate() error {
	if strings.TrimSpace(r.Label) == "" {
		return fmt.Errorf("%w: empty label", ErrInvalidRoute)
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: %s: unknown kind %q", ErrInvalidRoute, r.Label, r.Kind)
	}

	for _, hop := range r.Hops {
		if hop == "" {
			return fmt.Errorf("%w: %s: empty hop", ErrInvalidRoute, r.Label)
		}
	}

	switch r.Kind {
	case KindDirect, KindHot:
		if len(r.Hops) != 2 {
			return fmt.Errorf("%w: %s: %s route needs 2 hops, got %d", ErrInvalidRoute, r.Label, r.Kind, len(r.Hops))
		}
		if r.Hops[0] == r.Hops[1] {
			return fmt.Errorf("%w: %s: sell and buy token are equal", ErrInvalidRoute, r.Label)
		}
	case KindTriangular:
		if len(r.Hops) != 4 {
			return fmt.Errorf("%w: %s: triangular route needs 4 hops, got %d", ErrInvalidRoute, r.Label, len(r.Hops))
		}
		if r.Hops[0] != r.Hops[3] {
			return fmt.Errorf("%w: %s: triangular route must return to %s", ErrInvalidRoute, r.Label, r.Hops[0])
		}
	}

	return nil
}

// Legs returns the consecutive (sell, buy) pairs of the route.
func (r RouteTemplate) Legs() []Leg {
	if len(r.Hops) < 2 {
		return nil
	}

	legs := make([]Leg, 0, len(r.Hops)-1)
	for i := 0; i < len(r.Hops)-1; i++ {
		legs = append(legs, Leg{Sell: r.Hops[i], Buy: r.Hops[i+1]})
	}
	return legs
}

// Origin is the token the route starts from.
func (r RouteTemplate) Origin() string {
	if len(r.Hops) == 0 {
		return ""
	}
	return r.Hops[0]
}

// Candidate is an unevaluated template bound to a trade amount.
type Candidate struct {
	Template RouteTemplate
	Amount   decimal.Decimal
}
