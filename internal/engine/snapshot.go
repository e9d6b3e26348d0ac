package engine

import (
	"time"

	"github.com/mselser95/swap-arb/internal/arbitrage"
	"github.com/mselser95/swap-arb/pkg/types"
	"github.com/shopspring/decimal"
)

// Snapshot is a read-only view of the engine for observers.
type Snapshot struct {
	State          CycleState                `json:"state"`
	Running        bool                      `json:"running"`
	Wallet         string                    `json:"wallet,omitempty"`
	TradeAmount    decimal.Decimal           `json:"trade_amount"`
	Filter         types.StrategyFilter      `json:"filter"`
	Stats          types.RunningStats        `json:"stats"`
	Opportunities  []types.PricedOpportunity `json:"opportunities"`
	Selected       *types.PricedOpportunity  `json:"selected,omitempty"`
	LastError      string                    `json:"last_error,omitempty"`
	DisabledRoutes []arbitrage.DisabledRoute `json:"disabled_routes"`
	CycleCount     int64                     `json:"cycle_count"`
	UpdatedAt      time.Time                 `json:"updated_at"`
}

// Snapshot returns the current engine view. The result shares no memory with the engine.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	snap := Snapshot{
		State:         e.state,
		Running:       e.running,
		Wallet:        e.wallet,
		TradeAmount:   e.tradeAmount,
		Filter:        e.filter,
		Opportunities: append([]types.PricedOpportunity(nil), e.opportunities...),
		LastError:     e.lastError,
		CycleCount:    e.cycleCount,
	}
	if e.selected != nil {
		sel := *e.selected
		snap.Selected = &sel
	}
	e.mu.Unlock()

	snap.Stats = e.stats.Snapshot()
	snap.DisabledRoutes = e.registry.Disabled()
	snap.UpdatedAt = e.now()
	return snap
}

// Subscribe returns a channel of snapshots and a cancel func.
// Delivery never blocks the engine: a full buffer drops its oldest snapshot.
func (e *Engine) Subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Snapshot, buffer)

	e.subMu.Lock()
	ch <- e.Snapshot()
	id := e.nextSubID
	e.nextSubID++
	e.subs[id] = ch
	SubscribersActive.Set(float64(len(e.subs)))
	e.subMu.Unlock()

	cancel := func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		if c, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(c)
			SubscribersActive.Set(float64(len(e.subs)))
		}
	}
	return ch, cancel
}

func (e *Engine) publish() {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	if len(e.subs) == 0 {
		return
	}

	snap := e.Snapshot()
	for _, ch := range e.subs {
		deliver(ch, snap)
	}
}

func deliver(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}

	select {
	case <-ch:
		SnapshotsDroppedTotal.Inc()
	default:
	}

	select {
	case ch <- snap:
	default:
		SnapshotsDroppedTotal.Inc()
	}
}
