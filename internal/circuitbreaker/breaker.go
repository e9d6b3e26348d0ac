// Package circuitbreaker halts execution when the trading wallet runs low.
package circuitbreaker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// tradeWindow is the number of recent trades averaged into the thresholds.
const tradeWindow = 20

// BalanceFetcher reads a wallet balance in reference units.
type BalanceFetcher interface {
	GetBalance(ctx context.Context, address common.Address) (decimal.Decimal, error)
}

// BalanceCircuitBreaker monitors wallet balance and gates trade execution.
// Thresholds follow the rolling average trade size; re-enabling needs a
// higher balance than disabling (hysteresis) so the state does not flap.
type BalanceCircuitBreaker struct {
	enabled atomic.Bool // Atomic for lock-free reads from the cycle

	// Configuration
	checkInterval   time.Duration
	wallet          BalanceFetcher
	logger          *zap.Logger
	tradeMultiplier decimal.Decimal // Multiplier for avg trade size
	minAbsolute     decimal.Decimal // Floor for the disable threshold
	hysteresisRatio decimal.Decimal // Re-enable at ratio * disable threshold

	// Protected by mutex
	mu               sync.RWMutex
	address          common.Address
	lastBalance      decimal.Decimal // Reference units
	lastCheck        time.Time
	recentTrades     []decimal.Decimal // Rolling window, oldest first
	disableThreshold decimal.Decimal
	enableThreshold  decimal.Decimal
}

// Config holds circuit breaker configuration.
type Config struct {
	CheckInterval   time.Duration
	TradeMultiplier float64
	MinAbsolute     float64
	HysteresisRatio float64
	Wallet          BalanceFetcher
	Address         common.Address
	Logger          *zap.Logger
}

// Status is a point-in-time view of the breaker.
type Status struct {
	Enabled          bool            `json:"enabled"`
	Address          string          `json:"address"`
	LastBalance      decimal.Decimal `json:"last_balance"`
	LastCheck        time.Time       `json:"last_check"`
	DisableThreshold decimal.Decimal `json:"disable_threshold"`
	EnableThreshold  decimal.Decimal `json:"enable_threshold"`
	AvgTradeSize     decimal.Decimal `json:"avg_trade_size"`
	RecentTradeCount int             `json:"recent_trade_count"`
}

// New creates a new circuit breaker with the given configuration.
func New(cfg *Config) (*BalanceCircuitBreaker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Wallet == nil {
		return nil, fmt.Errorf("wallet cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.CheckInterval <= 0 {
		return nil, fmt.Errorf("check interval must be positive")
	}
	if cfg.TradeMultiplier <= 0 {
		return nil, fmt.Errorf("trade multiplier must be positive")
	}
	if cfg.MinAbsolute <= 0 {
		return nil, fmt.Errorf("min absolute must be positive")
	}
	if cfg.HysteresisRatio < 1.0 {
		return nil, fmt.Errorf("hysteresis ratio must be >= 1.0")
	}

	minAbsolute := decimal.NewFromFloat(cfg.MinAbsolute)
	hysteresis := decimal.NewFromFloat(cfg.HysteresisRatio)

	b := &BalanceCircuitBreaker{
		checkInterval:    cfg.CheckInterval,
		wallet:           cfg.Wallet,
		address:          cfg.Address,
		logger:           cfg.Logger,
		tradeMultiplier:  decimal.NewFromFloat(cfg.TradeMultiplier),
		minAbsolute:      minAbsolute,
		hysteresisRatio:  hysteresis,
		recentTrades:     make([]decimal.Decimal, 0, tradeWindow),
		disableThreshold: minAbsolute, // Start with minimum until trades arrive
		enableThreshold:  minAbsolute.Mul(hysteresis),
	}

	// Start enabled by default; the first balance check may flip it.
	b.enabled.Store(true)

	// Initialize metrics
	CircuitBreakerEnabled.Set(1)
	CircuitBreakerDisableThreshold.Set(b.disableThreshold.InexactFloat64())
	CircuitBreakerEnableThreshold.Set(b.enableThreshold.InexactFloat64())
	CircuitBreakerAvgTradeSize.Set(0)

	return b, nil
}

// IsEnabled reports whether trades may execute. Lock-free.
func (b *BalanceCircuitBreaker) IsEnabled() bool {
	return b.enabled.Load()
}

// Reason describes why execution is blocked, or "" when enabled.
func (b *BalanceCircuitBreaker) Reason() string {
	if b.enabled.Load() {
		return ""
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	return fmt.Sprintf("wallet balance %s below threshold %s (re-enables at %s)",
		b.lastBalance.StringFixed(2), b.disableThreshold.StringFixed(2), b.enableThreshold.StringFixed(2))
}

// SetAddress points the breaker at a different wallet.
func (b *BalanceCircuitBreaker) SetAddress(address common.Address) {
	b.mu.Lock()
	b.address = address
	b.mu.Unlock()

	b.logger.Info("circuit-breaker-address-changed", zap.String("address", address.Hex()))
}

// RecordTrade adds a trade size to the rolling window and recalculates thresholds.
func (b *BalanceCircuitBreaker) RecordTrade(tradeSize decimal.Decimal) {
	if !tradeSize.IsPositive() {
		b.logger.Warn("invalid-trade-size", zap.String("size", tradeSize.String()))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Drop the oldest trade once the window is full
	b.recentTrades = append(b.recentTrades, tradeSize)
	if len(b.recentTrades) > tradeWindow {
		b.recentTrades = b.recentTrades[1:]
	}

	avg := average(b.recentTrades)

	// Large trades raise the bar, but never below the absolute minimum
	b.disableThreshold = decimal.Max(avg.Mul(b.tradeMultiplier), b.minAbsolute)
	b.enableThreshold = b.disableThreshold.Mul(b.hysteresisRatio)

	CircuitBreakerAvgTradeSize.Set(avg.InexactFloat64())
	CircuitBreakerDisableThreshold.Set(b.disableThreshold.InexactFloat64())
	CircuitBreakerEnableThreshold.Set(b.enableThreshold.InexactFloat64())

	b.logger.Debug("thresholds-updated",
		zap.String("avg-trade-size", avg.String()),
		zap.Int("trade-count", len(b.recentTrades)),
		zap.String("disable-threshold", b.disableThreshold.String()),
		zap.String("enable-threshold", b.enableThreshold.String()))
}

// CheckBalance fetches the balance and applies the hysteresis state transition.
func (b *BalanceCircuitBreaker) CheckBalance(ctx context.Context) error {
	start := time.Now()
	defer func() {
		CircuitBreakerCheckDuration.Observe(time.Since(start).Seconds())
	}()

	b.mu.RLock()
	address := b.address
	b.mu.RUnlock()

	balance, err := b.wallet.GetBalance(ctx, address)
	if err != nil {
		b.logger.Error("failed-to-check-balance",
			zap.Error(err),
			zap.String("address", address.Hex()))
		return fmt.Errorf("get balance: %w", err)
	}

	b.mu.Lock()
	b.lastBalance = balance
	b.lastCheck = time.Now()
	disableThreshold := b.disableThreshold
	enableThreshold := b.enableThreshold
	b.mu.Unlock()

	CircuitBreakerBalance.Set(balance.InexactFloat64())

	// Between the two thresholds the current state holds
	currentlyEnabled := b.enabled.Load()
	shouldDisable := currentlyEnabled && balance.LessThan(disableThreshold)
	shouldEnable := !currentlyEnabled && balance.GreaterThanOrEqual(enableThreshold)

	fields := []zap.Field{
		zap.String("balance", balance.String()),
		zap.String("disable-threshold", disableThreshold.String()),
		zap.String("enable-threshold", enableThreshold.String()),
	}

	switch {
	case shouldDisable:
		b.enabled.Store(false)
		CircuitBreakerEnabled.Set(0)
		CircuitBreakerStateChanges.Inc()
		b.logger.Warn("circuit-breaker-disabled", fields...)
	case shouldEnable:
		b.enabled.Store(true)
		CircuitBreakerEnabled.Set(1)
		CircuitBreakerStateChanges.Inc()
		b.logger.Info("circuit-breaker-enabled", fields...)
	default:
		b.logger.Debug("balance-checked", append(fields, zap.Bool("enabled", currentlyEnabled))...)
	}

	return nil
}

// Start checks the balance once, then keeps checking every interval until ctx is cancelled.
func (b *BalanceCircuitBreaker) Start(ctx context.Context) {
	b.logger.Info("circuit-breaker-started",
		zap.Duration("check-interval", b.checkInterval),
		zap.String("trade-multiplier", b.tradeMultiplier.String()),
		zap.String("min-absolute", b.minAbsolute.String()),
		zap.String("hysteresis-ratio", b.hysteresisRatio.String()))

	if err := b.CheckBalance(ctx); err != nil {
		b.logger.Error("initial-balance-check-failed", zap.Error(err))
	}

	go b.monitorLoop(ctx)
}

func (b *BalanceCircuitBreaker) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(b.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("circuit-breaker-stopped")
			return
		case <-ticker.C:
			if err := b.CheckBalance(ctx); err != nil {
				b.logger.Error("balance-check-error", zap.Error(err))
			}
		}
	}
}

// GetStatus returns the current breaker status.
func (b *BalanceCircuitBreaker) GetStatus() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return Status{
		Enabled:          b.enabled.Load(),
		Address:          b.address.Hex(),
		LastBalance:      b.lastBalance,
		LastCheck:        b.lastCheck,
		DisableThreshold: b.disableThreshold,
		EnableThreshold:  b.enableThreshold,
		AvgTradeSize:     average(b.recentTrades),
		RecentTradeCount: len(b.recentTrades),
	}
}

func average(xs []decimal.Decimal) decimal.Decimal {
	if len(xs) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(xs[0], xs[1:]...).Div(decimal.NewFromInt(int64(len(xs))))
}
