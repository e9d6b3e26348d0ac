// Package quotes contains Quote Provider implementations and decorators.
package quotes

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/mselser95/swap-arb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var errSimulatedOutage = errors.New("simulated venue outage")

// SimulatedProvider quotes legs from reference prices plus a sine-wave "market volatility" edge.
type SimulatedProvider struct {
	tokens      *types.TokenSet
	edgeBps     map[types.Leg]float64
	amplitude   float64
	period      time.Duration
	noiseBps    float64
	failureRate float64
	latency     time.Duration
	now         func() time.Time
	logger      *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// SimulatedConfig holds simulated provider configuration.
type SimulatedConfig struct {
	Tokens *types.TokenSet
	// EdgeBps is the mean edge per leg. Legs not listed have no edge.
	EdgeBps map[types.Leg]float64
	// AmplitudeBps is the sine-wave swing around the mean edge.
	AmplitudeBps float64
	Period       time.Duration
	NoiseBps     float64
	FailureRate  float64
	// Latency is the mean simulated call latency; each call draws from [L/2, 3L/2].
	Latency time.Duration
	Seed    int64
	Now     func() time.Time
	Logger  *zap.Logger
}

// NewSimulatedProvider creates a simulated quote source.
func NewSimulatedProvider(cfg SimulatedConfig) (*SimulatedProvider, error) {
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token set cannot be nil")
	}
	if cfg.FailureRate < 0 || cfg.FailureRate > 1 {
		return nil, fmt.Errorf("failure rate must be between 0 and 1, got %f", cfg.FailureRate)
	}
	if cfg.Period <= 0 {
		cfg.Period = 100 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	seed := uint64(cfg.Seed)
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	edges := make(map[types.Leg]float64, len(cfg.EdgeBps))
	for leg, bps := range cfg.EdgeBps {
		edges[leg] = bps
	}

	return &SimulatedProvider{
		tokens:      cfg.Tokens,
		edgeBps:     edges,
		amplitude:   cfg.AmplitudeBps,
		period:      cfg.Period,
		noiseBps:    cfg.NoiseBps,
		failureRate: cfg.FailureRate,
		latency:     cfg.Latency,
		now:         cfg.Now,
		logger:      cfg.Logger,
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}, nil
}

// GetQuote returns amount converted at reference prices, skewed by the leg's current edge.
func (p *SimulatedProvider) GetQuote(ctx context.Context, sellToken, buyToken string, amount decimal.Decimal) (types.Quote, error) {
	sell, ok := p.tokens.Get(sellToken)
	if !ok {
		return types.Quote{}, types.NewPermanentQuoteError(sellToken, buyToken, fmt.Errorf("%w: %s", types.ErrUnknownToken, sellToken))
	}
	buy, ok := p.tokens.Get(buyToken)
	if !ok {
		return types.Quote{}, types.NewPermanentQuoteError(sellToken, buyToken, fmt.Errorf("%w: %s", types.ErrUnknownToken, buyToken))
	}
	if !amount.IsPositive() {
		return types.Quote{}, types.NewPermanentQuoteError(sellToken, buyToken, fmt.Errorf("%w: %s", types.ErrInvalidAmount, amount))
	}

	p.mu.Lock()
	latencyDraw := p.rng.Float64()
	failDraw := p.rng.Float64()
	noiseDraw := p.rng.Float64()*2 - 1
	p.mu.Unlock()

	latency := time.Duration(float64(p.latency) * (0.5 + latencyDraw))
	if latency > 0 {
		timer := time.NewTimer(latency)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return types.Quote{}, types.NewTransientQuoteError(sellToken, buyToken, ctx.Err())
		}
	}

	if failDraw < p.failureRate {
		SimulatedFailuresTotal.Inc()
		return types.Quote{}, types.NewTransientQuoteError(sellToken, buyToken, errSimulatedOutage)
	}

	edge := p.edgeAt(types.Leg{Sell: sellToken, Buy: buyToken}, noiseDraw)
	factor := decimal.NewFromFloat(1 + edge/10000)
	buyAmount := amount.Mul(sell.RefPrice).Mul(factor).Div(buy.RefPrice).Truncate(buy.Decimals)

	p.logger.Debug("simulated-quote",
		zap.String("sell", sellToken),
		zap.String("buy", buyToken),
		zap.String("amount", amount.String()),
		zap.String("buy-amount", buyAmount.String()),
		zap.Float64("edge-bps", edge))

	return types.Quote{
		BuyAmount:        buyAmount,
		EstimatedLatency: latency,
		Venue:            "simulated",
	}, nil
}

// edgeAt is the leg's edge in bps at the current time.
func (p *SimulatedProvider) edgeAt(leg types.Leg, noise float64) float64 {
	phase := float64(xxhash.Sum64String(leg.Sell+"/"+leg.Buy)%6283) / 1000
	t := float64(p.now().UnixNano()) / float64(p.period)
	wave := p.amplitude * math.Sin(2*math.Pi*t+phase)
	return p.edgeBps[leg] + wave + p.noiseBps*noise
}
