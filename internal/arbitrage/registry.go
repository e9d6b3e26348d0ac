package arbitrage

import (
	"sort"
	"sync"
	"time"

	"github.com/mselser95/swap-arb/pkg/types"
)

// DisabledRoute describes a route taken out of rotation after a permanent quote failure.
type DisabledRoute struct {
	Label  string    `json:"label"`
	Reason string    `json:"reason"`
	Since  time.Time `json:"since"`
}

// RouteRegistry tracks which routes are disabled. Safe for concurrent use.
type RouteRegistry struct {
	mu       sync.RWMutex
	disabled map[string]DisabledRoute
}

// NewRouteRegistry creates an empty registry.
func NewRouteRegistry() *RouteRegistry {
	return &RouteRegistry{
		disabled: make(map[string]DisabledRoute),
	}
}

// Disable takes a route out of rotation. Repeated calls keep the first reason.
func (r *RouteRegistry) Disable(label string, reason error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.disabled[label]; ok {
		return
	}

	msg := ""
	if reason != nil {
		msg = reason.Error()
	}

	r.disabled[label] = DisabledRoute{Label: label, Reason: msg, Since: time.Now()}
	RoutesDisabled.Set(float64(len(r.disabled)))
}

// Enable puts a route back into rotation. Returns false if it was not disabled.
func (r *RouteRegistry) Enable(label string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.disabled[label]; !ok {
		return false
	}

	delete(r.disabled, label)
	RoutesDisabled.Set(float64(len(r.disabled)))
	return true
}

// IsDisabled reports whether label is out of rotation.
func (r *RouteRegistry) IsDisabled(label string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.disabled[label]
	return ok
}

// Disabled lists disabled routes ordered by label.
func (r *RouteRegistry) Disabled() []DisabledRoute {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]DisabledRoute, 0, len(r.disabled))
	for _, d := range r.disabled {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Active returns the templates that pass filter and are not disabled, in input order.
func (r *RouteRegistry) Active(templates []types.RouteTemplate, filter types.StrategyFilter) []types.RouteTemplate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.RouteTemplate, 0, len(templates))
	for _, tmpl := range templates {
		if !filter.Allows(tmpl.Kind) {
			continue
		}
		if _, off := r.disabled[tmpl.Label]; off {
			continue
		}
		out = append(out, tmpl)
	}
	return out
}
