package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mselser95/swap-arb/internal/arbitrage"
	"github.com/mselser95/swap-arb/pkg/types"
	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("execution-mode", a.cfg.ExecutionMode),
		zap.String("quote-source", a.cfg.QuoteSource),
		zap.Int("routes", len(a.book.Routes)),
		zap.String("trade-amount", a.cfg.TradeAmount.String()),
		zap.String("log-level", a.cfg.LogLevel))

	err := a.startComponents()
	if err != nil {
		return err
	}

	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	if a.httpServer != nil {
		a.wg.Add(1)
		go a.runHTTPServer()

		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.httpServer.Hub().Run(a.ctx)
		}()

		// Give HTTP server a moment to start
		time.Sleep(100 * time.Millisecond)
	}

	if a.publisher != nil {
		snaps, unsubscribe := a.engine.Subscribe(16)
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			defer unsubscribe()
			a.publisher.Run(a.ctx, snaps)
		}()
	}

	if a.breaker != nil {
		a.breaker.Start(a.ctx)
	}

	if a.cfg.WalletAddress != "" {
		err := a.engine.ConnectWallet(a.cfg.WalletAddress)
		if err != nil {
			return fmt.Errorf("connect wallet: %w", err)
		}
	}

	if a.cfg.AutoStart {
		err := a.engine.Start(a.ctx)
		if err != nil {
			return fmt.Errorf("start engine: %w", err)
		}
	}

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}

// ScanReport is the result of a one-shot scan without execution.
type ScanReport struct {
	Result arbitrage.ScanResult
	Ranked []types.PricedOpportunity
	Best   *types.PricedOpportunity
}

// ScanOnce prices every active route once at the configured amount and filter.
// Nothing is executed or recorded.
func (a *App) ScanOnce(ctx context.Context) (ScanReport, error) {
	filter, err := types.ParseStrategyFilter(a.cfg.StrategyFilter)
	if err != nil {
		return ScanReport{}, err
	}

	candidates, err := arbitrage.BuildCandidates(a.registry.Active(a.book.Routes, filter), a.cfg.TradeAmount)
	if err != nil {
		return ScanReport{}, err
	}

	result := a.evaluator.EvaluateAll(ctx, candidates)
	report := ScanReport{
		Result: result,
		Ranked: a.selector.Rank(result.Opportunities),
	}
	if best, ok := a.selector.Select(result.Opportunities); ok {
		report.Best = &best
	}

	return report, nil
}
