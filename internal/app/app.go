package app

import (
	"context"
	"sync"

	"github.com/mselser95/swap-arb/internal/arbitrage"
	"github.com/mselser95/swap-arb/internal/circuitbreaker"
	"github.com/mselser95/swap-arb/internal/engine"
	"github.com/mselser95/swap-arb/internal/execution"
	"github.com/mselser95/swap-arb/internal/publish"
	"github.com/mselser95/swap-arb/internal/scheduler"
	"github.com/mselser95/swap-arb/internal/stats"
	"github.com/mselser95/swap-arb/internal/storage"
	"github.com/mselser95/swap-arb/pkg/cache"
	"github.com/mselser95/swap-arb/pkg/config"
	"github.com/mselser95/swap-arb/pkg/healthprobe"
	"github.com/mselser95/swap-arb/pkg/httpserver"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	book          *config.RouteBook
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	quoteCache    *cache.RistrettoCache
	provider      arbitrage.QuoteProvider
	registry      *arbitrage.RouteRegistry
	evaluator     *arbitrage.Evaluator
	selector      arbitrage.Selector
	executor      *execution.Executor
	breaker       *circuitbreaker.BalanceCircuitBreaker
	stats         *stats.Aggregator
	storage       storage.Storage
	publisher     *publish.RedisPublisher
	scheduler     *scheduler.Scheduler
	engine        *engine.Engine
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Options holds application options.
type Options struct {
	// RoutesFile overrides cfg.RoutesFile when set.
	RoutesFile string
	// SkipHTTP builds the app without the HTTP server, for one-shot commands.
	SkipHTTP bool
}

// Engine exposes the execution coordinator.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// RouteBook exposes the loaded tokens and routes.
func (a *App) RouteBook() *config.RouteBook {
	return a.book
}
