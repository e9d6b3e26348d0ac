package arbitrage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mselser95/swap-arb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// QuoteProvider prices a single leg. Implementations must be safe for concurrent use
// and should return *types.QuoteError so callers can tell transient from permanent failures.
type QuoteProvider interface {
	GetQuote(ctx context.Context, sellToken, buyToken string, amount decimal.Decimal) (types.Quote, error)
}

var bpsDivisor = decimal.NewFromInt(10000)

// Evaluator resolves candidates into priced opportunities.
type Evaluator struct {
	provider       QuoteProvider
	tokens         *types.TokenSet
	feeRate        decimal.Decimal
	epsilon        decimal.Decimal
	scanTimeout    time.Duration
	maxConcurrency int
	registry       *RouteRegistry
	logger         *zap.Logger
	now            func() time.Time
}

// EvaluatorConfig holds evaluator configuration.
type EvaluatorConfig struct {
	Provider       QuoteProvider
	Tokens         *types.TokenSet
	TakerFeeBps    int64
	Epsilon        decimal.Decimal
	ScanTimeout    time.Duration
	MaxConcurrency int
	// Registry, when set, receives routes that fail permanently.
	Registry *RouteRegistry
	Logger   *zap.Logger
	Now      func() time.Time
}

// Failure is a candidate that produced no opportunity this cycle.
type Failure struct {
	Route string
	Kind  types.StrategyKind
	Err   error
}

// ScanResult is the fan-in of one cycle's evaluations.
type ScanResult struct {
	Opportunities []types.PricedOpportunity
	Failures      []Failure
	Duration      time.Duration
}

// NewEvaluator creates a new profit evaluator.
func NewEvaluator(cfg EvaluatorConfig) (*Evaluator, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("quote provider cannot be nil")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token set cannot be nil")
	}
	if cfg.TakerFeeBps < 0 {
		return nil, fmt.Errorf("taker fee cannot be negative")
	}
	if cfg.ScanTimeout <= 0 {
		return nil, fmt.Errorf("scan timeout must be positive")
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Evaluator{
		provider:       cfg.Provider,
		tokens:         cfg.Tokens,
		feeRate:        decimal.NewFromInt(cfg.TakerFeeBps).Div(bpsDivisor),
		epsilon:        cfg.Epsilon.Abs(),
		scanTimeout:    cfg.ScanTimeout,
		maxConcurrency: cfg.MaxConcurrency,
		registry:       cfg.Registry,
		logger:         cfg.Logger,
		now:            cfg.Now,
	}, nil
}

type evaluation struct {
	idx int
	opp types.PricedOpportunity
	err error
}

// EvaluateAll prices every candidate concurrently and waits until each one has
// resolved or the scan deadline passes. Results arriving after the deadline are dropped.
func (e *Evaluator) EvaluateAll(ctx context.Context, candidates []types.Candidate) ScanResult {
	start := time.Now()
	defer func() {
		ScanDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	if len(candidates) == 0 {
		return ScanResult{}
	}

	scanCtx, cancel := context.WithTimeout(ctx, e.scanTimeout)
	defer cancel()

	// Buffered to len(candidates) so late writers never block after we stop reading.
	results := make(chan evaluation, len(candidates))

	go func() {
		g := new(errgroup.Group)
		g.SetLimit(e.maxConcurrency)
		for i, c := range candidates {
			g.Go(func() error {
				opp, err := e.Evaluate(scanCtx, c)
				results <- evaluation{idx: i, opp: opp, err: err}
				return nil
			})
		}
		_ = g.Wait()
	}()

	done := make([]*evaluation, len(candidates))
	received := 0

collect:
	for received < len(candidates) {
		select {
		case r := <-results:
			done[r.idx] = &r
			received++
		case <-scanCtx.Done():
			break collect
		}
	}

	// Keep anything that landed before the deadline fired.
drain:
	for received < len(candidates) {
		select {
		case r := <-results:
			done[r.idx] = &r
			received++
		default:
			break drain
		}
	}

	out := ScanResult{
		Opportunities: make([]types.PricedOpportunity, 0, len(candidates)),
	}

	for i, r := range done {
		tmpl := candidates[i].Template
		if r == nil {
			err := types.NewTransientQuoteError(tmpl.Origin(), "", fmt.Errorf("scan deadline exceeded: %w", context.DeadlineExceeded))
			out.Failures = append(out.Failures, Failure{Route: tmpl.Label, Kind: tmpl.Kind, Err: err})
			CandidateFailuresTotal.WithLabelValues("timeout").Inc()
			e.logger.Warn("candidate-timed-out",
				zap.String("route", tmpl.Label),
				zap.Duration("scan-timeout", e.scanTimeout))
			continue
		}

		if r.err != nil {
			out.Failures = append(out.Failures, Failure{Route: tmpl.Label, Kind: tmpl.Kind, Err: r.err})
			e.recordFailure(tmpl, r.err)
			continue
		}

		out.Opportunities = append(out.Opportunities, r.opp)
		CandidatesPricedTotal.WithLabelValues(string(tmpl.Kind)).Inc()
		NetProfitBPS.Observe(float64(r.opp.ProfitBps))
	}

	out.Duration = time.Since(start)
	return out
}

func (e *Evaluator) recordFailure(tmpl types.RouteTemplate, err error) {
	if types.IsPermanentQuoteError(err) {
		CandidateFailuresTotal.WithLabelValues("permanent").Inc()
		if e.registry != nil {
			e.registry.Disable(tmpl.Label, err)
		}
		e.logger.Warn("route-disabled",
			zap.String("route", tmpl.Label),
			zap.Error(err))
		return
	}

	CandidateFailuresTotal.WithLabelValues("transient").Inc()
	e.logger.Info("candidate-failed",
		zap.String("route", tmpl.Label),
		zap.String("kind", string(tmpl.Kind)),
		zap.Error(err))
}

// Evaluate prices one candidate. Legs run sequentially, each consuming the previous output;
// any failing leg fails the whole candidate.
func (e *Evaluator) Evaluate(ctx context.Context, c types.Candidate) (types.PricedOpportunity, error) {
	tmpl := c.Template
	legs := tmpl.Legs()
	if len(legs) == 0 {
		return types.PricedOpportunity{}, fmt.Errorf("%w: %s has no legs", types.ErrInvalidRoute, tmpl.Label)
	}
	if !c.Amount.IsPositive() {
		return types.PricedOpportunity{}, fmt.Errorf("%w: %s", types.ErrInvalidAmount, c.Amount)
	}

	amountIn, err := e.tokens.Round(tmpl.Origin(), c.Amount)
	if err != nil {
		return types.PricedOpportunity{}, types.NewPermanentQuoteError(tmpl.Origin(), legs[0].Buy, err)
	}

	current := amountIn
	fees := decimal.Zero
	var latency time.Duration

	for i, leg := range legs {
		err = ctx.Err()
		if err != nil {
			return types.PricedOpportunity{}, fmt.Errorf("leg %d: %w", i+1, types.NewTransientQuoteError(leg.Sell, leg.Buy, err))
		}

		var legInRef decimal.Decimal
		legInRef, err = e.tokens.ToReference(leg.Sell, current)
		if err != nil {
			return types.PricedOpportunity{}, fmt.Errorf("leg %d: %w", i+1, types.NewPermanentQuoteError(leg.Sell, leg.Buy, err))
		}
		fees = fees.Add(legInRef.Mul(e.feeRate))

		callStart := time.Now()
		var quote types.Quote
		quote, err = e.provider.GetQuote(ctx, leg.Sell, leg.Buy, current)
		elapsed := time.Since(callStart)
		if err != nil {
			var qe *types.QuoteError
			if !errors.As(err, &qe) {
				err = types.NewTransientQuoteError(leg.Sell, leg.Buy, err)
			}
			return types.PricedOpportunity{}, fmt.Errorf("leg %d: %w", i+1, err)
		}

		if !quote.BuyAmount.IsPositive() {
			return types.PricedOpportunity{}, fmt.Errorf("leg %d: %w", i+1,
				types.NewTransientQuoteError(leg.Sell, leg.Buy, fmt.Errorf("non-positive buy amount %s", quote.BuyAmount)))
		}

		current, err = e.tokens.Round(leg.Buy, quote.BuyAmount)
		if err != nil {
			return types.PricedOpportunity{}, fmt.Errorf("leg %d: %w", i+1, types.NewPermanentQuoteError(leg.Sell, leg.Buy, err))
		}

		if quote.EstimatedLatency > 0 {
			latency += quote.EstimatedLatency
		} else {
			latency += elapsed
		}
	}

	last := legs[len(legs)-1]
	inRef, err := e.tokens.ToReference(tmpl.Origin(), amountIn)
	if err != nil {
		return types.PricedOpportunity{}, types.NewPermanentQuoteError(tmpl.Origin(), last.Buy, err)
	}
	outRef, err := e.tokens.ToReference(last.Buy, current)
	if err != nil {
		return types.PricedOpportunity{}, types.NewPermanentQuoteError(last.Sell, last.Buy, err)
	}

	gross := outRef.Sub(inRef)
	net := gross.Sub(fees)
	if net.Abs().LessThan(e.epsilon) {
		net = decimal.Zero
	}

	profitBps := int64(0)
	if inRef.IsPositive() {
		profitBps = net.Mul(bpsDivisor).Div(inRef).IntPart()
	}

	return types.PricedOpportunity{
		ID:               uuid.New().String(),
		Route:            tmpl.Label,
		Kind:             tmpl.Kind,
		Hops:             append([]string(nil), tmpl.Hops...),
		Venues:           append([]string(nil), tmpl.Venues...),
		InputAmount:      amountIn,
		OutputAmount:     current,
		GrossProfit:      gross,
		Fees:             fees,
		NetProfit:        net,
		ProfitBps:        profitBps,
		EstimatedLatency: latency,
		EvaluatedAt:      e.now(),
	}, nil
}
