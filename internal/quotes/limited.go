package quotes

import (
	"context"

	"github.com/mselser95/swap-arb/internal/arbitrage"
	"github.com/mselser95/swap-arb/pkg/types"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// RateLimitedProvider caps the request rate towards the wrapped provider.
type RateLimitedProvider struct {
	next    arbitrage.QuoteProvider
	limiter *rate.Limiter
}

// NewRateLimitedProvider allows rps requests per second with the given burst.
func NewRateLimitedProvider(next arbitrage.QuoteProvider, rps float64, burst int) *RateLimitedProvider {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedProvider{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// GetQuote waits for a token and forwards the call.
// A wait cut short by ctx is a transient failure.
func (r *RateLimitedProvider) GetQuote(ctx context.Context, sellToken, buyToken string, amount decimal.Decimal) (types.Quote, error) {
	err := r.limiter.Wait(ctx)
	if err != nil {
		RateLimitedWaitsTotal.WithLabelValues("rejected").Inc()
		return types.Quote{}, types.NewTransientQuoteError(sellToken, buyToken, err)
	}
	RateLimitedWaitsTotal.WithLabelValues("admitted").Inc()

	return r.next.GetQuote(ctx, sellToken, buyToken, amount)
}
