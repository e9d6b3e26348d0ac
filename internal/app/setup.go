package app

import (
	"context"
	"fmt"

	"github.com/mselser95/swap-arb/internal/arbitrage"
	"github.com/mselser95/swap-arb/internal/circuitbreaker"
	"github.com/mselser95/swap-arb/internal/engine"
	"github.com/mselser95/swap-arb/internal/execution"
	"github.com/mselser95/swap-arb/internal/publish"
	"github.com/mselser95/swap-arb/internal/quotes"
	"github.com/mselser95/swap-arb/internal/scheduler"
	"github.com/mselser95/swap-arb/internal/stats"
	"github.com/mselser95/swap-arb/internal/storage"
	"github.com/mselser95/swap-arb/pkg/cache"
	"github.com/mselser95/swap-arb/pkg/config"
	"github.com/mselser95/swap-arb/pkg/healthprobe"
	"github.com/mselser95/swap-arb/pkg/httpserver"
	"github.com/mselser95/swap-arb/pkg/types"
	"github.com/mselser95/swap-arb/pkg/wallet"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (a *App, err error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	a = &App{
		cfg:    cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
	defer func() {
		if err != nil {
			a.closeResources()
			cancel()
		}
	}()

	routesFile := cfg.RoutesFile
	if opts.RoutesFile != "" {
		routesFile = opts.RoutesFile
	}
	a.book, err = config.LoadRouteBook(routesFile)
	if err != nil {
		return nil, fmt.Errorf("load route book: %w", err)
	}

	a.provider, err = a.setupQuoteProvider()
	if err != nil {
		return nil, fmt.Errorf("setup quote provider: %w", err)
	}

	a.registry = arbitrage.NewRouteRegistry()
	a.evaluator, err = arbitrage.NewEvaluator(arbitrage.EvaluatorConfig{
		Provider:       a.provider,
		Tokens:         a.book.Tokens,
		TakerFeeBps:    cfg.TakerFeeBps,
		Epsilon:        cfg.ProfitEpsilon,
		ScanTimeout:    cfg.ScanTimeout,
		MaxConcurrency: cfg.ScanConcurrency,
		Registry:       a.registry,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("setup evaluator: %w", err)
	}
	a.selector = arbitrage.Selector{Epsilon: cfg.ProfitEpsilon, MinEdgeBps: cfg.MinEdgeBps}

	a.executor, err = execution.New(&execution.Config{
		Mode:            cfg.ExecutionMode,
		SuccessRate:     cfg.PaperSuccessRate,
		MinLatency:      cfg.PaperMinLatency,
		MaxLatency:      cfg.PaperMaxLatency,
		StartingBalance: cfg.PaperStartingBalance,
		Seed:            cfg.QuoteSimSeed,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("setup executor: %w", err)
	}

	a.breaker, err = a.setupCircuitBreaker()
	if err != nil {
		return nil, fmt.Errorf("setup circuit breaker: %w", err)
	}

	a.stats = stats.NewAggregator(cfg.StatsMaxSeries, cfg.StatsMaxHistory)

	err = a.setupOutputs()
	if err != nil {
		return nil, fmt.Errorf("setup outputs: %w", err)
	}

	a.scheduler, err = scheduler.New(scheduler.Config{
		MinInterval:     cfg.CycleMinInterval,
		MaxInterval:     cfg.CycleMaxInterval,
		IdleMinInterval: cfg.CycleIdleMinInterval,
		IdleMaxInterval: cfg.CycleIdleMaxInterval,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("setup scheduler: %w", err)
	}

	a.engine, err = a.setupEngine()
	if err != nil {
		return nil, fmt.Errorf("setup engine: %w", err)
	}

	a.healthChecker = setupHealthChecker(a.engine)
	if !opts.SkipHTTP {
		a.httpServer = httpserver.New(&httpserver.Config{
			Port:          cfg.HTTPPort,
			Logger:        logger,
			HealthChecker: a.healthChecker,
			Controller:    a.engine,
			BaseContext:   ctx,
		})
	}

	return a, nil
}

// setupQuoteProvider chains source, rate limiter (http only) and cache.
// Cache hits never wait on the limiter.
func (a *App) setupQuoteProvider() (arbitrage.QuoteProvider, error) {
	cfg := a.cfg

	var source arbitrage.QuoteProvider
	switch cfg.QuoteSource {
	case "http":
		httpProvider, err := quotes.NewHTTPProvider(quotes.HTTPConfig{
			BaseURL: cfg.QuoteAPIURL,
			APIKey:  cfg.QuoteAPIKey,
			Tokens:  a.book.Tokens,
			Timeout: cfg.ScanTimeout,
			Logger:  a.logger,
		})
		if err != nil {
			return nil, err
		}
		source = quotes.NewRateLimitedProvider(httpProvider, cfg.QuoteRateLimit, cfg.QuoteBurst)
	default:
		sim, err := quotes.NewSimulatedProvider(quotes.SimulatedConfig{
			Tokens:       a.book.Tokens,
			EdgeBps:      a.book.EdgeBps,
			AmplitudeBps: cfg.QuoteSimWave,
			Period:       cfg.QuoteSimPeriod,
			NoiseBps:     cfg.QuoteSimNoise,
			FailureRate:  cfg.QuoteFailRate,
			Latency:      cfg.QuoteSimLatency,
			Seed:         cfg.QuoteSimSeed,
			Logger:       a.logger,
		})
		if err != nil {
			return nil, err
		}
		source = sim
	}

	if cfg.QuoteCacheTTL <= 0 {
		return source, nil
	}

	quoteCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: cfg.QuoteCacheSize * 10,
		MaxCost:     cfg.QuoteCacheSize,
		BufferItems: 64,
		Logger:      a.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create quote cache: %w", err)
	}
	a.quoteCache = quoteCache

	return quotes.NewCachedProvider(source, quoteCache, cfg.QuoteCacheTTL), nil
}

func (a *App) setupCircuitBreaker() (*circuitbreaker.BalanceCircuitBreaker, error) {
	if !a.cfg.CircuitBreakerEnabled {
		a.logger.Info("circuit-breaker-disabled")
		return nil, nil
	}

	var fetcher circuitbreaker.BalanceFetcher = a.executor
	if a.cfg.BalanceRPCURL != "" {
		client, err := wallet.NewClient(wallet.Config{
			RPCURL:        a.cfg.BalanceRPCURL,
			TokenAddress:  a.cfg.BalanceTokenAddress,
			TokenDecimals: int32(a.cfg.BalanceTokenDecimals),
			Logger:        a.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create wallet client: %w", err)
		}
		fetcher = client
		a.logger.Info("circuit-breaker-on-chain-balance",
			zap.String("token", a.cfg.BalanceTokenAddress))
	}

	return circuitbreaker.New(&circuitbreaker.Config{
		CheckInterval:   a.cfg.CircuitBreakerCheckInterval,
		TradeMultiplier: a.cfg.CircuitBreakerTradeMultiplier,
		MinAbsolute:     a.cfg.CircuitBreakerMinAbsolute,
		HysteresisRatio: a.cfg.CircuitBreakerHysteresisRatio,
		Wallet:          fetcher,
		Logger:          a.logger,
	})
}

// setupOutputs wires execution record storage and the optional Redis snapshot publisher.
func (a *App) setupOutputs() error {
	cfg := a.cfg

	if cfg.RedisAddr != "" {
		publisher, err := publish.NewRedisPublisher(a.ctx, publish.Config{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			Channel:      cfg.RedisChannel,
			StreamMaxLen: cfg.RedisStreamMaxLen,
			Logger:       a.logger,
		})
		if err != nil {
			return fmt.Errorf("create redis publisher: %w", err)
		}
		a.publisher = publisher
	}

	switch cfg.StorageMode {
	case "redis":
		a.storage = a.publisher
	case "none":
		a.storage = storage.NopStorage{}
	default:
		a.storage = storage.NewConsoleStorage(a.logger)
	}

	return nil
}

func (a *App) setupEngine() (*engine.Engine, error) {
	filter, err := types.ParseStrategyFilter(a.cfg.StrategyFilter)
	if err != nil {
		return nil, err
	}

	engCfg := engine.Config{
		Evaluator:        a.evaluator,
		Selector:         a.selector,
		Registry:         a.registry,
		Routes:           a.book.Routes,
		Executor:         a.executor,
		Stats:            a.stats,
		Storage:          a.storage,
		Runner:           a.scheduler,
		TradeAmount:      a.cfg.TradeAmount,
		Filter:           filter,
		ExecutionTimeout: a.cfg.ExecutionTimeout,
		Logger:           a.logger,
	}
	// A nil *BalanceCircuitBreaker must not become a non-nil interface.
	if a.breaker != nil {
		engCfg.Guard = a.breaker
	}

	return engine.New(engCfg)
}

func setupHealthChecker(eng *engine.Engine) *healthprobe.HealthChecker {
	hc := healthprobe.New()
	hc.SetStatusFunc(func() map[string]string {
		snap := eng.Snapshot()
		wallet := "disconnected"
		if snap.Wallet != "" {
			wallet = "connected"
		}
		running := "paused"
		if snap.Running {
			running = "running"
		}
		return map[string]string{
			"engine": snap.State.String(),
			"cycle":  running,
			"wallet": wallet,
		}
	})
	return hc
}
