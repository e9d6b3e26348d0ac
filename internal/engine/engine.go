// Package engine coordinates scan, selection and execution cycles and exposes
// the control surface used by the CLI and HTTP layers.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/swap-arb/internal/arbitrage"
	"github.com/mselser95/swap-arb/internal/scheduler"
	"github.com/mselser95/swap-arb/internal/stats"
	"github.com/mselser95/swap-arb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TradeExecutor settles a selected opportunity. It is called at most once per selection.
type TradeExecutor interface {
	Execute(ctx context.Context, opp types.PricedOpportunity, amount decimal.Decimal) (types.TradeResult, error)
}

// RecordStorage receives every settled execution record.
type RecordStorage interface {
	StoreRecord(ctx context.Context, rec types.ExecutionRecord) error
}

// ExecutionGuard can veto execution, e.g. a wallet balance circuit breaker.
type ExecutionGuard interface {
	IsEnabled() bool
	Reason() string
	RecordTrade(size decimal.Decimal)
}

// addressSetter is implemented by guards that follow the connected wallet.
type addressSetter interface {
	SetAddress(address common.Address)
}

// CycleRunner drives RunCycle on a schedule.
type CycleRunner interface {
	Run(ctx context.Context, cycle scheduler.CycleFunc)
}

// Engine is the single-flight execution coordinator.
type Engine struct {
	evaluator        *arbitrage.Evaluator
	selector         arbitrage.Selector
	registry         *arbitrage.RouteRegistry
	routes           []types.RouteTemplate
	executor         TradeExecutor
	stats            *stats.Aggregator
	storage          RecordStorage
	guard            ExecutionGuard
	runner           CycleRunner
	executionTimeout time.Duration
	logger           *zap.Logger
	now              func() time.Time

	mu            sync.Mutex
	state         CycleState
	running       bool
	wallet        string
	tradeAmount   decimal.Decimal
	filter        types.StrategyFilter
	opportunities []types.PricedOpportunity
	selected      *types.PricedOpportunity
	lastError     string
	cycleCount    int64
	// pauseEpoch counts pauses; cycleEpoch is its value when the in-flight cycle began.
	pauseEpoch uint64
	cycleEpoch uint64
	stopLoop   context.CancelFunc
	loops      sync.WaitGroup

	subMu     sync.Mutex
	subs      map[int]chan Snapshot
	nextSubID int
}

// Config holds engine configuration.
type Config struct {
	Evaluator *arbitrage.Evaluator
	Selector  arbitrage.Selector
	Registry  *arbitrage.RouteRegistry
	Routes    []types.RouteTemplate
	Executor  TradeExecutor
	Stats     *stats.Aggregator
	// Storage and Guard are optional.
	Storage RecordStorage
	Guard   ExecutionGuard
	// Runner is optional; without it cycles only run when RunCycle is called.
	Runner CycleRunner

	TradeAmount      decimal.Decimal
	Filter           types.StrategyFilter
	ExecutionTimeout time.Duration
	Logger           *zap.Logger
	Now              func() time.Time
}

// New creates a new engine in the Idle, paused state.
func New(cfg Config) (*Engine, error) {
	if cfg.Evaluator == nil {
		return nil, fmt.Errorf("evaluator cannot be nil")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor cannot be nil")
	}
	if cfg.Stats == nil {
		return nil, fmt.Errorf("stats aggregator cannot be nil")
	}
	if !cfg.TradeAmount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidAmount, cfg.TradeAmount)
	}
	if cfg.Filter == "" {
		cfg.Filter = types.FilterAll
	}
	if !cfg.Filter.Valid() {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidFilter, cfg.Filter)
	}
	if cfg.ExecutionTimeout <= 0 {
		return nil, fmt.Errorf("execution timeout must be positive")
	}
	if cfg.Registry == nil {
		cfg.Registry = arbitrage.NewRouteRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Engine{
		evaluator:        cfg.Evaluator,
		selector:         cfg.Selector,
		registry:         cfg.Registry,
		routes:           append([]types.RouteTemplate(nil), cfg.Routes...),
		executor:         cfg.Executor,
		stats:            cfg.Stats,
		storage:          cfg.Storage,
		guard:            cfg.Guard,
		runner:           cfg.Runner,
		executionTimeout: cfg.ExecutionTimeout,
		logger:           cfg.Logger,
		now:              cfg.Now,
		state:            StateIdle,
		tradeAmount:      cfg.TradeAmount,
		filter:           cfg.Filter,
		subs:             make(map[int]chan Snapshot),
	}, nil
}

// Start resumes cycling. It requires a connected wallet and is idempotent.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.wallet == "" {
		e.mu.Unlock()
		return types.ErrWalletNotConnected
	}
	if e.running {
		e.mu.Unlock()
		return nil
	}

	e.running = true
	e.lastError = ""
	Running.Set(1)

	if e.runner != nil {
		loopCtx, cancel := context.WithCancel(ctx)
		e.stopLoop = cancel
		e.loops.Add(1)
		go func() {
			defer e.loops.Done()
			e.runner.Run(loopCtx, e.tick)
		}()
	}
	e.mu.Unlock()

	e.logger.Info("engine-started")
	e.publish()
	return nil
}

// Pause stops new cycles. A cycle that is scanning or selecting is abandoned at its
// next transition, even if Start is called again first; one that is already
// executing settles and is recorded.
func (e *Engine) Pause() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.pauseLocked()
	state := e.state
	e.mu.Unlock()

	e.logger.Info("engine-paused", zap.Stringer("state", state))
	e.publish()
}

func (e *Engine) pauseLocked() {
	e.running = false
	e.pauseEpoch++
	Running.Set(0)
	if e.stopLoop != nil {
		e.stopLoop()
		e.stopLoop = nil
	}
}

// Wait blocks until every scheduler loop started by Start has returned.
func (e *Engine) Wait() {
	e.loops.Wait()
}

// SetTradeAmount changes the amount used from the next cycle on.
func (e *Engine) SetTradeAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s", types.ErrInvalidAmount, amount)
	}

	e.mu.Lock()
	e.tradeAmount = amount
	e.mu.Unlock()

	e.logger.Info("trade-amount-updated", zap.String("amount", amount.String()))
	e.publish()
	return nil
}

// SelectStrategyFilter restricts which kinds take part from the next cycle on.
func (e *Engine) SelectStrategyFilter(filter types.StrategyFilter) error {
	if !filter.Valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidFilter, filter)
	}

	e.mu.Lock()
	e.filter = filter
	e.mu.Unlock()

	e.logger.Info("strategy-filter-updated", zap.String("filter", string(filter)))
	e.publish()
	return nil
}

// ConnectWallet validates and stores the trading wallet address.
func (e *Engine) ConnectWallet(address string) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("%w: %q", types.ErrInvalidAddress, address)
	}
	addr := common.HexToAddress(address)

	e.mu.Lock()
	e.wallet = addr.Hex()
	e.mu.Unlock()

	if s, ok := e.guard.(addressSetter); ok {
		s.SetAddress(addr)
	}

	e.logger.Info("wallet-connected", zap.String("address", addr.Hex()))
	e.publish()
	return nil
}

// DisconnectWallet forgets the wallet and pauses the engine.
func (e *Engine) DisconnectWallet() {
	e.mu.Lock()
	e.wallet = ""
	if e.running {
		e.pauseLocked()
	}
	e.mu.Unlock()

	e.logger.Info("wallet-disconnected")
	e.publish()
}

// EnableRoute puts a disabled route back into rotation.
func (e *Engine) EnableRoute(label string) error {
	known := false
	for _, r := range e.routes {
		if r.Label == label {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: %q", types.ErrUnknownRoute, label)
	}

	if e.registry.Enable(label) {
		e.logger.Info("route-enabled", zap.String("route", label))
		e.publish()
	}
	return nil
}

// Routes returns the configured route templates.
func (e *Engine) Routes() []types.RouteTemplate {
	return append([]types.RouteTemplate(nil), e.routes...)
}

// tick adapts RunCycle to the scheduler's pacing.
func (e *Engine) tick(ctx context.Context) scheduler.Pace {
	if e.RunCycle(ctx) == OutcomeNoOpportunity {
		return scheduler.PaceIdle
	}
	return scheduler.PaceNormal
}
