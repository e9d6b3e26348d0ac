package types

import (
	"fmt"
	"strings"
)

// StrategyKind tags a route template with the arbitrage strategy it represents.
type StrategyKind string

const (
	KindDirect     StrategyKind = "direct"
	KindTriangular StrategyKind = "triangular"
	KindHot        StrategyKind = "hot"
)

// Priority ranks kinds for selection tie-breaks. Higher wins.
func (k StrategyKind) Priority() int {
	switch k {
	case KindHot:
		return 3
	case KindTriangular:
		return 2
	case KindDirect:
		return 1
	default:
		return 0
	}
}

// Valid reports whether k is one of the known kinds.
func (k StrategyKind) Valid() bool {
	return k.Priority() > 0
}

// ParseStrategyKind parses a kind name. "normal" is accepted as an alias of direct.
func ParseStrategyKind(s string) (StrategyKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "direct", "normal":
		return KindDirect, nil
	case "triangular":
		return KindTriangular, nil
	case "hot":
		return KindHot, nil
	default:
		return "", fmt.Errorf("%w: unknown strategy kind %q", ErrInvalidFilter, s)
	}
}

// StrategyFilter restricts which kinds take part in a cycle.
type StrategyFilter string

// FilterAll lets every kind through.
const FilterAll StrategyFilter = "all"

// ParseStrategyFilter parses "all" or any kind name.
func ParseStrategyFilter(s string) (StrategyFilter, error) {
	if strings.EqualFold(strings.TrimSpace(s), string(FilterAll)) || strings.TrimSpace(s) == "" {
		return FilterAll, nil
	}

	kind, err := ParseStrategyKind(s)
	if err != nil {
		return "", err
	}

	return StrategyFilter(kind), nil
}

// Allows reports whether templates of the given kind pass the filter.
func (f StrategyFilter) Allows(kind StrategyKind) bool {
	return f == FilterAll || StrategyKind(f) == kind
}

// Valid reports whether f is "all" or a known kind.
func (f StrategyFilter) Valid() bool {
	return f == FilterAll || StrategyKind(f).Valid()
}
