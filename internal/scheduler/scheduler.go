// Package scheduler drives engine cycles at jittered intervals.
package scheduler

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Pace tells the scheduler which interval band to draw the next wait from.
type Pace int

const (
	// PaceNormal follows a cycle that scanned and acted (or tried to).
	PaceNormal Pace = iota
	// PaceIdle follows a cycle that found nothing to execute.
	PaceIdle
)

func (p Pace) String() string {
	if p == PaceIdle {
		return "idle"
	}
	return "normal"
}

// CycleFunc runs one cycle to completion and reports how to pace the next one.
type CycleFunc func(ctx context.Context) Pace

// Scheduler fires cycles back to back with a uniform random gap.
type Scheduler struct {
	minInterval     time.Duration
	maxInterval     time.Duration
	idleMinInterval time.Duration
	idleMaxInterval time.Duration
	rand            func() float64
	logger          *zap.Logger
}

// Config holds scheduler configuration.
type Config struct {
	MinInterval     time.Duration
	MaxInterval     time.Duration
	IdleMinInterval time.Duration
	IdleMaxInterval time.Duration
	// Rand returns a value in [0,1). Defaults to math/rand/v2.
	Rand   func() float64
	Logger *zap.Logger
}

// New creates a new scheduler.
func New(cfg Config) (*Scheduler, error) {
	if cfg.MinInterval <= 0 {
		return nil, fmt.Errorf("min interval must be positive")
	}
	if cfg.MaxInterval < cfg.MinInterval {
		return nil, fmt.Errorf("max interval %s is below min interval %s", cfg.MaxInterval, cfg.MinInterval)
	}
	if cfg.IdleMinInterval <= 0 {
		cfg.IdleMinInterval = cfg.MinInterval
	}
	if cfg.IdleMaxInterval <= 0 {
		cfg.IdleMaxInterval = cfg.MaxInterval
	}
	if cfg.IdleMaxInterval < cfg.IdleMinInterval {
		return nil, fmt.Errorf("idle max interval %s is below idle min interval %s", cfg.IdleMaxInterval, cfg.IdleMinInterval)
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.Float64
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Scheduler{
		minInterval:     cfg.MinInterval,
		maxInterval:     cfg.MaxInterval,
		idleMinInterval: cfg.IdleMinInterval,
		idleMaxInterval: cfg.IdleMaxInterval,
		rand:            cfg.Rand,
		logger:          cfg.Logger,
	}, nil
}

// NextInterval draws the wait before the next cycle.
func (s *Scheduler) NextInterval(p Pace) time.Duration {
	lo, hi := s.minInterval, s.maxInterval
	if p == PaceIdle {
		lo, hi = s.idleMinInterval, s.idleMaxInterval
	}
	return lo + time.Duration(s.rand()*float64(hi-lo))
}

// Run fires the first cycle immediately and keeps going until ctx is cancelled.
// Cancellation is observed between cycles; a running cycle is never interrupted.
func (s *Scheduler) Run(ctx context.Context, cycle CycleFunc) {
	s.logger.Info("scheduler-started",
		zap.Duration("min-interval", s.minInterval),
		zap.Duration("max-interval", s.maxInterval),
		zap.Duration("idle-min-interval", s.idleMinInterval),
		zap.Duration("idle-max-interval", s.idleMaxInterval))

	for {
		if ctx.Err() != nil {
			s.logger.Info("scheduler-stopped")
			return
		}

		pace := cycle(ctx)
		wait := s.NextInterval(pace)
		NextIntervalSeconds.WithLabelValues(pace.String()).Observe(wait.Seconds())

		s.logger.Debug("next-cycle-scheduled",
			zap.Stringer("pace", pace),
			zap.Duration("wait", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler-stopped")
			return
		case <-timer.C:
		}
	}
}
