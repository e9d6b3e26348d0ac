// Package execution settles selected opportunities against a paper wallet.
package execution

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mselser95/swap-arb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	ModePaper  = "paper"
	ModeDryRun = "dry-run"
)

// Executor executes trades for selected opportunities.
// Paper mode simulates network latency and occasional reverts against an in-memory balance;
// dry-run mode settles instantly at the quoted outcome.
type Executor struct {
	mode        string
	successRate float64
	minLatency  time.Duration
	maxLatency  time.Duration
	logger      *zap.Logger
	now         func() time.Time

	mu               sync.Mutex
	rng              *rand.Rand
	balance          decimal.Decimal
	cumulativeProfit decimal.Decimal
}

// Config holds executor configuration.
type Config struct {
	Mode string
	// SuccessRate is the probability a paper trade lands.
	SuccessRate float64
	MinLatency  time.Duration
	MaxLatency  time.Duration
	// StartingBalance seeds the paper wallet in reference units.
	StartingBalance decimal.Decimal
	Seed            int64
	Logger          *zap.Logger
	Now             func() time.Time
}

// New creates a new trade executor.
func New(cfg *Config) (*Executor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Mode != ModePaper && cfg.Mode != ModeDryRun {
		return nil, fmt.Errorf("unknown execution mode: %s", cfg.Mode)
	}
	if cfg.SuccessRate < 0 || cfg.SuccessRate > 1 {
		return nil, fmt.Errorf("success rate must be between 0 and 1, got %f", cfg.SuccessRate)
	}
	if cfg.MinLatency < 0 || cfg.MaxLatency < cfg.MinLatency {
		return nil, fmt.Errorf("invalid latency range [%s, %s]", cfg.MinLatency, cfg.MaxLatency)
	}
	if cfg.StartingBalance.IsNegative() {
		return nil, fmt.Errorf("starting balance cannot be negative")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	seed := uint64(cfg.Seed)
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	PaperBalance.Set(cfg.StartingBalance.InexactFloat64())

	return &Executor{
		mode:             cfg.Mode,
		successRate:      cfg.SuccessRate,
		minLatency:       cfg.MinLatency,
		maxLatency:       cfg.MaxLatency,
		logger:           cfg.Logger,
		now:              cfg.Now,
		rng:              rand.New(rand.NewPCG(seed, seed>>1|1)),
		balance:          cfg.StartingBalance,
		cumulativeProfit: decimal.Zero,
	}, nil
}

// Mode returns the execution mode.
func (e *Executor) Mode() string {
	return e.mode
}

// Execute settles opp for amount. It is called at most once per selected opportunity.
func (e *Executor) Execute(ctx context.Context, opp types.PricedOpportunity, amount decimal.Decimal) (types.TradeResult, error) {
	start := time.Now()
	defer func() {
		ExecutionDurationSeconds.WithLabelValues(e.mode).Observe(time.Since(start).Seconds())
	}()

	if !amount.IsPositive() {
		ExecutionErrorsTotal.Inc()
		return types.TradeResult{}, fmt.Errorf("%w: %s", types.ErrInvalidAmount, amount)
	}

	switch e.mode {
	case ModeDryRun:
		return e.executeDryRun(opp, amount), nil
	default:
		return e.executePaper(ctx, opp, amount)
	}
}

// executeDryRun settles at the quoted outcome without touching the balance.
func (e *Executor) executeDryRun(opp types.PricedOpportunity, amount decimal.Decimal) types.TradeResult {
	profit := expectedProfit(opp, amount)

	TradesTotal.WithLabelValues(ModeDryRun, "success").Inc()

	e.logger.Info("dry-run-trade-executed",
		zap.String("opportunity-id", opp.ID),
		zap.String("route", opp.Route),
		zap.String("amount", amount.String()),
		zap.String("expected-profit", profit.String()))

	return types.TradeResult{
		Success:     true,
		FinalAmount: amount.Add(profit),
		Reference:   "dry-run-" + opp.ID,
	}
}

// executePaper simulates submission latency, then lands or reverts the trade.
func (e *Executor) executePaper(ctx context.Context, opp types.PricedOpportunity, amount decimal.Decimal) (types.TradeResult, error) {
	e.mu.Lock()
	latencyDraw := e.rng.Float64()
	outcomeDraw := e.rng.Float64()
	e.mu.Unlock()

	latency := e.minLatency + time.Duration(latencyDraw*float64(e.maxLatency-e.minLatency))
	if latency > 0 {
		timer := time.NewTimer(latency)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			ExecutionErrorsTotal.Inc()
			return types.TradeResult{}, fmt.Errorf("await settlement: %w", ctx.Err())
		}
	}

	settledAt := e.now()
	reference := settlementReference(opp.ID, amount, settledAt)

	if outcomeDraw >= e.successRate {
		// A reverted swap still burns the fees.
		lost := scaleToAmount(opp.Fees, opp, amount)
		balance, cumulative := e.applyProfit(lost.Neg())

		TradesTotal.WithLabelValues(ModePaper, "reverted").Inc()

		e.logger.Warn("paper-trade-reverted",
			zap.String("opportunity-id", opp.ID),
			zap.String("route", opp.Route),
			zap.String("reference", reference),
			zap.String("fees-lost", lost.String()),
			zap.String("balance", balance.String()),
			zap.String("cumulative-profit", cumulative.String()))

		return types.TradeResult{
			Success:     false,
			FinalAmount: amount.Sub(lost),
			Reference:   reference,
			Error:       "transaction reverted",
		}, nil
	}

	profit := expectedProfit(opp, amount)
	balance, cumulative := e.applyProfit(profit)

	TradesTotal.WithLabelValues(ModePaper, "success").Inc()

	e.logger.Info("paper-trade-executed",
		zap.String("opportunity-id", opp.ID),
		zap.String("route", opp.Route),
		zap.String("kind", string(opp.Kind)),
		zap.String("reference", reference),
		zap.String("amount", amount.String()),
		zap.Int64("profit-bps", opp.ProfitBps),
		zap.String("profit", profit.String()),
		zap.Duration("latency", latency),
		zap.String("balance", balance.String()),
		zap.String("cumulative-profit", cumulative.String()))

	return types.TradeResult{
		Success:     true,
		FinalAmount: amount.Add(profit),
		Reference:   reference,
	}, nil
}

func (e *Executor) applyProfit(delta decimal.Decimal) (balance, cumulative decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.balance = e.balance.Add(delta)
	if e.balance.IsNegative() {
		e.balance = decimal.Zero
	}
	e.cumulativeProfit = e.cumulativeProfit.Add(delta)

	PaperBalance.Set(e.balance.InexactFloat64())
	ProfitRealized.WithLabelValues(e.mode).Set(e.cumulativeProfit.InexactFloat64())

	return e.balance, e.cumulativeProfit
}

// GetBalance reports the paper wallet balance in reference units.
// The paper wallet is shared, so address only scopes the log line.
func (e *Executor) GetBalance(_ context.Context, address common.Address) (decimal.Decimal, error) {
	e.mu.Lock()
	balance := e.balance
	e.mu.Unlock()

	e.logger.Debug("paper-balance-read",
		zap.String("address", address.Hex()),
		zap.String("balance", balance.String()))

	return balance, nil
}

// Close logs the session total.
func (e *Executor) Close() error {
	e.mu.Lock()
	finalProfit := e.cumulativeProfit
	balance := e.balance
	e.mu.Unlock()

	e.logger.Info("executor-closed",
		zap.String("total-profit", finalProfit.String()),
		zap.String("balance", balance.String()),
		zap.String("mode", e.mode))

	return nil
}

// expectedProfit scales the quoted net profit to the executed amount.
func expectedProfit(opp types.PricedOpportunity, amount decimal.Decimal) decimal.Decimal {
	return scaleToAmount(opp.NetProfit, opp, amount)
}

func scaleToAmount(v decimal.Decimal, opp types.PricedOpportunity, amount decimal.Decimal) decimal.Decimal {
	if !opp.InputAmount.IsPositive() || opp.InputAmount.Equal(amount) {
		return v
	}
	return v.Mul(amount).Div(opp.InputAmount)
}

// settlementReference derives a transaction-hash shaped reference for a paper trade.
func settlementReference(oppID string, amount decimal.Decimal, at time.Time) string {
	return crypto.Keccak256Hash(
		[]byte(oppID),
		[]byte(amount.String()),
		[]byte(at.UTC().Format(time.RFC3339Nano)),
	).Hex()
}
