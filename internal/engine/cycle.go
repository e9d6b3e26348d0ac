package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mselser95/swap-arb/internal/arbitrage"
	"github.com/mselser95/swap-arb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type executionResult struct {
	result types.TradeResult
	err    error
}

// RunCycle performs one Scanning → Selecting → Executing → Settling pass.
// It returns OutcomeSkipped without doing anything when a cycle is already in
// flight or the engine is paused; calls never queue.
func (e *Engine) RunCycle(ctx context.Context) CycleOutcome {
	e.mu.Lock()
	if e.state != StateIdle || !e.running {
		e.mu.Unlock()
		CyclesTotal.WithLabelValues(string(OutcomeSkipped)).Inc()
		return OutcomeSkipped
	}
	e.setStateLocked(StateScanning)
	e.cycleCount++
	e.cycleEpoch = e.pauseEpoch
	cycleNo := e.cycleCount
	amount := e.tradeAmount
	filter := e.filter
	e.mu.Unlock()

	start := time.Now()
	logger := e.logger.With(zap.Int64("cycle", cycleNo))
	logger.Debug("cycle-started",
		zap.String("amount", amount.String()),
		zap.String("filter", string(filter)))
	e.publish()

	outcome := e.runCycle(ctx, logger, amount, filter)

	CyclesTotal.WithLabelValues(string(outcome)).Inc()
	CycleDurationSeconds.Observe(time.Since(start).Seconds())
	logger.Debug("cycle-finished",
		zap.String("outcome", string(outcome)),
		zap.Duration("duration", time.Since(start)))

	return outcome
}

func (e *Engine) runCycle(ctx context.Context, logger *zap.Logger, amount decimal.Decimal, filter types.StrategyFilter) CycleOutcome {
	// Quotes already in flight finish even if the caller's ctx is cancelled; the
	// scan stays bounded by the evaluator's scan timeout.
	scanCtx := context.WithoutCancel(ctx)

	// Scanning
	templates := e.registry.Active(e.routes, filter)
	candidates, err := arbitrage.BuildCandidates(templates, amount)
	if err != nil {
		e.finish(StateIdle, err.Error())
		logger.Error("build-candidates-failed", zap.Error(err))
		return OutcomeAbandoned
	}

	scan := e.evaluator.EvaluateAll(scanCtx, candidates)
	logger.Debug("scan-complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("priced", len(scan.Opportunities)),
		zap.Int("failed", len(scan.Failures)),
		zap.Duration("duration", scan.Duration))

	// Selecting
	if !e.transition(StateSelecting) {
		logger.Info("cycle-abandoned", zap.Stringer("at", StateScanning))
		return OutcomeAbandoned
	}

	ranked := e.selector.Rank(scan.Opportunities)
	selected, ok := e.selector.Select(scan.Opportunities)

	e.mu.Lock()
	e.opportunities = ranked
	e.selected = nil
	if ok {
		e.selected = &selected
	}
	if n := len(scan.Failures); n > 0 {
		last := scan.Failures[n-1]
		e.lastError = fmt.Sprintf("%s: %v", last.Route, last.Err)
	}
	e.mu.Unlock()
	e.publish()

	if !ok {
		e.finish(StateIdle, "")
		logger.Debug("no-opportunity", zap.Int("priced", len(scan.Opportunities)))
		return OutcomeNoOpportunity
	}

	// Executing
	if !e.transition(StateExecuting) {
		logger.Info("cycle-abandoned", zap.Stringer("at", StateSelecting))
		return OutcomeAbandoned
	}

	if e.guard != nil && !e.guard.IsEnabled() {
		reason := e.guard.Reason()
		e.finish(StateIdle, "execution blocked: "+reason)
		logger.Warn("execution-guarded",
			zap.String("route", selected.Route),
			zap.String("reason", reason))
		return OutcomeGuarded
	}

	arbitrage.OpportunitiesSelectedTotal.WithLabelValues(string(selected.Kind)).Inc()
	logger.Info("opportunity-selected",
		zap.String("opportunity-id", selected.ID),
		zap.String("route", selected.Route),
		zap.String("kind", string(selected.Kind)),
		zap.String("net-profit", selected.NetProfit.String()),
		zap.Int64("profit-bps", selected.ProfitBps),
		zap.Duration("estimated-latency", selected.EstimatedLatency))

	res, execErr := e.execute(ctx, selected, amount)

	// Settling
	e.transition(StateSettling)
	rec := e.settle(ctx, logger, selected, amount, res, execErr)

	if rec.Success {
		return OutcomeExecuted
	}
	return OutcomeFailed
}

// execute runs the executor on a context detached from pause and shutdown, bounded
// by the execution timeout. An executor that ignores its context still times out.
func (e *Engine) execute(ctx context.Context, opp types.PricedOpportunity, amount decimal.Decimal) (types.TradeResult, error) {
	execCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.executionTimeout)
	defer cancel()

	done := make(chan executionResult, 1)
	go func() {
		result, err := e.executor.Execute(execCtx, opp, amount)
		done <- executionResult{result: result, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) && execCtx.Err() != nil {
			return types.TradeResult{}, fmt.Errorf("%w after %s", types.ErrExecutionTimeout, e.executionTimeout)
		}
		return r.result, r.err
	case <-execCtx.Done():
		return types.TradeResult{}, fmt.Errorf("%w after %s", types.ErrExecutionTimeout, e.executionTimeout)
	}
}

// settle folds the execution into stats, storage and the guard, then returns to Idle.
func (e *Engine) settle(
	ctx context.Context,
	logger *zap.Logger,
	opp types.PricedOpportunity,
	amount decimal.Decimal,
	res types.TradeResult,
	execErr error,
) types.ExecutionRecord {
	rec := types.ExecutionRecord{
		ID:            uuid.New().String(),
		OpportunityID: opp.ID,
		Route:         opp.Route,
		Kind:          opp.Kind,
		Timestamp:     e.now(),
		InputAmount:   amount,
		ResultAmount:  amount,
		Reference:     res.Reference,
	}

	switch {
	case execErr != nil && errors.Is(execErr, types.ErrExecutionTimeout):
		rec.Error = execErr.Error()
		ExecutionTimeoutsTotal.Inc()
		logger.Warn("execution-timeout",
			zap.String("opportunity-id", opp.ID),
			zap.String("route", opp.Route),
			zap.Duration("timeout", e.executionTimeout))
	case execErr != nil:
		rec.Error = fmt.Errorf("%w: %w", types.ErrExecutionFailed, execErr).Error()
		logger.Error("execution-failed",
			zap.String("opportunity-id", opp.ID),
			zap.String("route", opp.Route),
			zap.Error(execErr))
	case !res.Success:
		reason := res.Error
		if reason == "" {
			reason = "executor reported failure"
		}
		rec.Error = fmt.Errorf("%w: %s", types.ErrExecutionFailed, reason).Error()
		if res.FinalAmount.IsPositive() {
			rec.ResultAmount = res.FinalAmount
		}
		logger.Warn("execution-failed",
			zap.String("opportunity-id", opp.ID),
			zap.String("route", opp.Route),
			zap.String("reason", reason),
			zap.String("reference", res.Reference))
	default:
		rec.Success = true
		rec.ResultAmount = res.FinalAmount
		logger.Info("execution-settled",
			zap.String("opportunity-id", opp.ID),
			zap.String("route", opp.Route),
			zap.String("reference", res.Reference),
			zap.String("profit", rec.Profit().String()))
	}

	e.stats.RecordOutcome(rec)

	if e.storage != nil {
		if err := e.storage.StoreRecord(context.WithoutCancel(ctx), rec); err != nil {
			logger.Error("store-record-failed",
				zap.String("record-id", rec.ID),
				zap.Error(err))
		}
	}

	if e.guard != nil && rec.Success {
		e.guard.RecordTrade(amount)
	}

	e.finish(StateIdle, rec.Error)
	return rec
}

// transition moves to next unless the engine was paused since the cycle began, in
// which case the cycle is abandoned and the engine returns to Idle. A Start that
// follows the pause does not revive the cycle. Settling is always allowed.
func (e *Engine) transition(next CycleState) bool {
	e.mu.Lock()
	paused := !e.running || e.pauseEpoch != e.cycleEpoch
	if paused && next != StateSettling {
		e.setStateLocked(StateIdle)
		e.mu.Unlock()
		e.publish()
		return false
	}
	e.setStateLocked(next)
	e.mu.Unlock()
	e.publish()
	return true
}

// finish ends the cycle, surfacing errMsg as the last failure when non-empty.
func (e *Engine) finish(state CycleState, errMsg string) {
	e.mu.Lock()
	e.setStateLocked(state)
	if errMsg != "" {
		e.lastError = errMsg
	}
	e.mu.Unlock()
	e.publish()
}

func (e *Engine) setStateLocked(s CycleState) {
	e.state = s
	CurrentState.Set(float64(s))
}
