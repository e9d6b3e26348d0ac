package quotes

import (
	"context"
	"fmt"
	"time"

	"github.com/mselser95/swap-arb/internal/arbitrage"
	"github.com/mselser95/swap-arb/pkg/cache"
	"github.com/mselser95/swap-arb/pkg/types"
	"github.com/shopspring/decimal"
)

// CachedProvider serves repeated identical leg requests from a short-lived cache.
// Failures are never cached.
type CachedProvider struct {
	next  arbitrage.QuoteProvider
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedProvider wraps next with cache.
func NewCachedProvider(next arbitrage.QuoteProvider, c cache.Cache, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		next:  next,
		cache: c,
		ttl:   ttl,
	}
}

// GetQuote implements arbitrage.QuoteProvider.
func (c *CachedProvider) GetQuote(ctx context.Context, sellToken, buyToken string, amount decimal.Decimal) (types.Quote, error) {
	if c.cache == nil || c.ttl <= 0 {
		return c.next.GetQuote(ctx, sellToken, buyToken, amount)
	}

	cacheKey := fmt.Sprintf("quote:%s:%s:%s", sellToken, buyToken, amount.String())
	if cached, ok := c.cache.Get(cacheKey); ok {
		if quote, ok := cached.(types.Quote); ok {
			QuoteCacheHitsTotal.Inc()
			return quote, nil
		}
	}
	QuoteCacheMissesTotal.Inc()

	quote, err := c.next.GetQuote(ctx, sellToken, buyToken, amount)
	if err != nil {
		return types.Quote{}, err
	}

	c.cache.Set(cacheKey, quote, c.ttl)
	return quote, nil
}
