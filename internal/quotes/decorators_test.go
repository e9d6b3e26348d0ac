package quotes

import (
	"context"
	"testing"
	"time"

	"github.com/mselser95/swap-arb/internal/testutil"
	"github.com/mselser95/swap-arb/pkg/cache"
	"github.com/mselser95/swap-arb/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedProvider(t *testing.T) {
	t.Parallel()

	c, err := cache.NewRistrettoCache(&cache.RistrettoConfig{NumCounters: 1000, MaxCost: 100, BufferItems: 64})
	require.NoError(t, err)
	defer c.Close()

	mock := testutil.NewMockQuoteProvider().SetRate("USDT", "USDC", "1.01")
	p := NewCachedProvider(mock, c, time.Minute)

	amount := decimal.NewFromInt(100)
	first, err := p.GetQuote(context.Background(), "USDT", "USDC", amount)
	require.NoError(t, err)
	c.Wait()

	second, err := p.GetQuote(context.Background(), "USDT", "USDC", amount)
	require.NoError(t, err)

	assert.True(t, first.BuyAmount.Equal(second.BuyAmount))
	if len(mock.Calls()) != 1 {
		t.Skip("ristretto admission dropped the quote")
	}

	t.Run("different-amount-misses", func(t *testing.T) {
		_, err := p.GetQuote(context.Background(), "USDT", "USDC", decimal.NewFromInt(101))
		require.NoError(t, err)
		assert.Len(t, mock.Calls(), 2)
	})
}

func TestCachedProvider_DoesNotCacheErrors(t *testing.T) {
	t.Parallel()

	c, err := cache.NewRistrettoCache(&cache.RistrettoConfig{NumCounters: 1000, MaxCost: 100, BufferItems: 64})
	require.NoError(t, err)
	defer c.Close()

	mock := testutil.NewMockQuoteProvider().
		SetError("USDT", "USDC", types.NewTransientQuoteError("USDT", "USDC", context.DeadlineExceeded))
	p := NewCachedProvider(mock, c, time.Minute)

	_, err = p.GetQuote(context.Background(), "USDT", "USDC", decimal.NewFromInt(1))
	require.Error(t, err)
	c.Wait()

	mock.ClearError("USDT", "USDC")
	_, err = p.GetQuote(context.Background(), "USDT", "USDC", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Len(t, mock.Calls(), 2)
}

func TestCachedProvider_Disabled(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockQuoteProvider()
	p := NewCachedProvider(mock, nil, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := p.GetQuote(context.Background(), "USDT", "USDC", decimal.NewFromInt(1))
		require.NoError(t, err)
	}
	assert.Len(t, mock.Calls(), 3)
}

func TestRateLimitedProvider(t *testing.T) {
	t.Parallel()

	t.Run("admits-within-burst", func(t *testing.T) {
		t.Parallel()

		mock := testutil.NewMockQuoteProvider()
		p := NewRateLimitedProvider(mock, 1, 3)

		for i := 0; i < 3; i++ {
			_, err := p.GetQuote(context.Background(), "USDT", "USDC", decimal.NewFromInt(1))
			require.NoError(t, err)
		}
		assert.Len(t, mock.Calls(), 3)
	})

	t.Run("wait-past-deadline-is-transient", func(t *testing.T) {
		t.Parallel()

		mock := testutil.NewMockQuoteProvider()
		p := NewRateLimitedProvider(mock, 0.1, 1)

		_, err := p.GetQuote(context.Background(), "USDT", "USDC", decimal.NewFromInt(1))
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err = p.GetQuote(ctx, "USDT", "USDC", decimal.NewFromInt(1))
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrQuoteUnavailable)
		assert.False(t, types.IsPermanentQuoteError(err))
		assert.Len(t, mock.Calls(), 1)
	})
}
