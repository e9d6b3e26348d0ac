package arbitrage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mselser95/swap-arb/internal/testutil"
	"github.com/mselser95/swap-arb/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestEvaluator(t *testing.T, provider QuoteProvider, tokens *types.TokenSet, registry *RouteRegistry) *Evaluator {
	t.Helper()

	ev, err := NewEvaluator(EvaluatorConfig{
		Provider:       provider,
		Tokens:         tokens,
		TakerFeeBps:    10,
		Epsilon:        decimal.RequireFromString("0.0001"),
		ScanTimeout:    500 * time.Millisecond,
		MaxConcurrency: 4,
		Registry:       registry,
		Logger:         zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	return ev
}

func candidate(tmpl types.RouteTemplate, amount string) types.Candidate {
	return types.Candidate{Template: tmpl, Amount: decimal.RequireFromString(amount)}
}

func TestNewEvaluator_Validation(t *testing.T) {
	t.Parallel()

	tokens := testutil.StableTokens("USDC")
	provider := testutil.NewMockQuoteProvider()

	tests := []struct {
		name string
		cfg  EvaluatorConfig
	}{
		{name: "nil-provider", cfg: EvaluatorConfig{Tokens: tokens, ScanTimeout: time.Second}},
		{name: "nil-tokens", cfg: EvaluatorConfig{Provider: provider, ScanTimeout: time.Second}},
		{name: "negative-fee", cfg: EvaluatorConfig{Provider: provider, Tokens: tokens, TakerFeeBps: -1, ScanTimeout: time.Second}},
		{name: "zero-timeout", cfg: EvaluatorConfig{Provider: provider, Tokens: tokens}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewEvaluator(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestEvaluator_DirectScenario(t *testing.T) {
	t.Parallel()

	provider := testutil.NewMockQuoteProvider().SetFixed("USDT", "USDC", "100.6")
	ev := newTestEvaluator(t, provider, testutil.StableTokens("USDC"), nil)

	opp, err := ev.Evaluate(context.Background(), candidate(testutil.DirectRoute("USDT → USDC", "USDT", "USDC"), "100"))
	require.NoError(t, err)

	assert.True(t, opp.GrossProfit.Equal(decimal.RequireFromString("0.6")), "gross %s", opp.GrossProfit)
	assert.True(t, opp.Fees.Equal(decimal.RequireFromString("0.1")), "fees %s", opp.Fees)
	assert.True(t, opp.NetProfit.Equal(decimal.RequireFromString("0.5")), "net %s", opp.NetProfit)
	assert.Equal(t, int64(50), opp.ProfitBps)
	assert.Equal(t, types.KindDirect, opp.Kind)
	assert.NotEmpty(t, opp.ID)

	got, ok := Selector{Epsilon: decimal.RequireFromString("0.0001")}.Select([]types.PricedOpportunity{opp})
	require.True(t, ok)
	assert.Equal(t, opp.ID, got.ID)
}

func TestEvaluator_UniqueIDPerEvaluation(t *testing.T) {
	t.Parallel()

	provider := testutil.NewMockQuoteProvider()
	ev := newTestEvaluator(t, provider, testutil.StableTokens("USDC"), nil)
	c := candidate(testutil.DirectRoute("d", "USDT", "USDC"), "10")

	first, err := ev.Evaluate(context.Background(), c)
	require.NoError(t, err)
	second, err := ev.Evaluate(context.Background(), c)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestEvaluator_TriangularChainsAmounts(t *testing.T) {
	t.Parallel()

	provider := testutil.NewMockQuoteProvider().
		SetRate("USDT", "BNB", "0.5").
		SetRate("BNB", "ETH", "4").
		SetRate("ETH", "USDT", "0.51")
	ev := newTestEvaluator(t, provider, testutil.StableTokens("BNB", "ETH"), nil)

	opp, err := ev.Evaluate(context.Background(), candidate(testutil.TriangularRoute("tri", "USDT", "BNB", "ETH"), "100"))
	require.NoError(t, err)

	// 100 -> 50 -> 200 -> 102
	calls := provider.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, types.Leg{Sell: "USDT", Buy: "BNB"}, calls[0])
	assert.Equal(t, types.Leg{Sell: "BNB", Buy: "ETH"}, calls[1])
	assert.Equal(t, types.Leg{Sell: "ETH", Buy: "USDT"}, calls[2])

	assert.True(t, opp.OutputAmount.Equal(decimal.NewFromInt(102)), "output %s", opp.OutputAmount)
	// Fee on each leg input: (100 + 50 + 200) * 0.001 = 0.35
	assert.True(t, opp.Fees.Equal(decimal.RequireFromString("0.35")), "fees %s", opp.Fees)
	assert.True(t, opp.NetProfit.Equal(decimal.RequireFromString("1.65")), "net %s", opp.NetProfit)
}

func TestEvaluator_TriangularSecondHopFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(p *testutil.MockQuoteProvider)
	}{
		{
			name: "second-hop-error",
			setup: func(p *testutil.MockQuoteProvider) {
				p.SetError("BNB", "ETH", types.NewTransientQuoteError("BNB", "ETH", errors.New("upstream 503")))
			},
		},
		{
			name: "second-hop-zero-then-error",
			setup: func(p *testutil.MockQuoteProvider) {
				p.SetFixed("BNB", "ETH", "0")
				p.SetError("ETH", "USDT", errors.New("no liquidity"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			provider := testutil.NewMockQuoteProvider().SetFixed("USDT", "BNB", "52.3")
			tt.setup(provider)
			ev := newTestEvaluator(t, provider, testutil.StableTokens("BNB", "ETH", "USDC"), nil)

			tri := testutil.TriangularRoute("A→B→C→A", "USDT", "BNB", "ETH")
			direct := testutil.DirectRoute("direct", "USDT", "USDC")
			provider.SetFixed("USDT", "USDC", "100.6")

			result := ev.EvaluateAll(context.Background(), []types.Candidate{
				candidate(tri, "100"),
				candidate(direct, "100"),
			})

			require.Len(t, result.Opportunities, 1)
			assert.Equal(t, "direct", result.Opportunities[0].Route)
			require.Len(t, result.Failures, 1)
			assert.Equal(t, "A→B→C→A", result.Failures[0].Route)
			assert.True(t, errors.Is(result.Failures[0].Err, types.ErrQuoteUnavailable))

			for _, opp := range result.Opportunities {
				assert.NotEqual(t, "A→B→C→A", opp.Route)
			}
		})
	}
}

func TestEvaluator_PermanentFailureDisablesRoute(t *testing.T) {
	t.Parallel()

	registry := NewRouteRegistry()
	provider := testutil.NewMockQuoteProvider().
		SetError("USDT", "DAI", types.NewPermanentQuoteError("USDT", "DAI", errors.New("pair not listed")))
	ev := newTestEvaluator(t, provider, testutil.StableTokens("DAI", "USDC"), registry)

	result := ev.EvaluateAll(context.Background(), []types.Candidate{
		candidate(testutil.HotRoute("hot", "USDT", "DAI"), "10"),
		candidate(testutil.DirectRoute("direct", "USDT", "USDC"), "10"),
	})

	assert.Len(t, result.Failures, 1)
	assert.True(t, registry.IsDisabled("hot"))
	assert.False(t, registry.IsDisabled("direct"))
}

func TestEvaluator_TransientFailureKeepsRoute(t *testing.T) {
	t.Parallel()

	registry := NewRouteRegistry()
	provider := testutil.NewMockQuoteProvider().SetError("USDT", "DAI", errors.New("timeout talking to venue"))
	ev := newTestEvaluator(t, provider, testutil.StableTokens("DAI"), registry)

	result := ev.EvaluateAll(context.Background(), []types.Candidate{candidate(testutil.HotRoute("hot", "USDT", "DAI"), "10")})

	require.Len(t, result.Failures, 1)
	assert.False(t, types.IsPermanentQuoteError(result.Failures[0].Err))
	assert.False(t, registry.IsDisabled("hot"))
}

func TestEvaluator_ScanTimeoutBoundsWait(t *testing.T) {
	t.Parallel()

	provider := testutil.NewMockQuoteProvider().SetDelay("USDT", "DAI", 2*time.Second)
	provider.IgnoreContext = true
	ev := newTestEvaluator(t, provider, testutil.StableTokens("DAI", "USDC"), nil)

	start := time.Now()
	result := ev.EvaluateAll(context.Background(), []types.Candidate{
		candidate(testutil.HotRoute("slow", "USDT", "DAI"), "10"),
		candidate(testutil.DirectRoute("fast", "USDT", "USDC"), "10"),
	})
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 1500*time.Millisecond)
	require.Len(t, result.Opportunities, 1)
	assert.Equal(t, "fast", result.Opportunities[0].Route)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "slow", result.Failures[0].Route)
	assert.True(t, errors.Is(result.Failures[0].Err, context.DeadlineExceeded))
}

func TestEvaluator_FanOutIsBounded(t *testing.T) {
	t.Parallel()

	provider := testutil.NewMockQuoteProvider()
	candidates := make([]types.Candidate, 0, 10)
	symbols := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}
	for _, sym := range symbols {
		provider.SetDelay("USDT", sym, 50*time.Millisecond)
		candidates = append(candidates, candidate(testutil.DirectRoute("to-"+sym, "USDT", sym), "1"))
	}

	ev, err := NewEvaluator(EvaluatorConfig{
		Provider:       provider,
		Tokens:         testutil.StableTokens(symbols...),
		ScanTimeout:    2 * time.Second,
		MaxConcurrency: 3,
		Logger:         zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	result := ev.EvaluateAll(context.Background(), candidates)

	assert.Len(t, result.Failures, 0)
	assert.Len(t, result.Opportunities, 10)
	assert.LessOrEqual(t, provider.MaxInFlight(), 3)
	assert.Greater(t, provider.MaxInFlight(), 1)

	for i, opp := range result.Opportunities {
		assert.Equal(t, candidates[i].Template.Label, opp.Route, "results keep candidate order")
	}
}

func TestEvaluator_EpsilonNormalisesDust(t *testing.T) {
	t.Parallel()

	provider := testutil.NewMockQuoteProvider().SetFixed("USDT", "USDC", "100.10005")
	ev := newTestEvaluator(t, provider, testutil.StableTokens("USDC"), nil)

	opp, err := ev.Evaluate(context.Background(), candidate(testutil.DirectRoute("d", "USDT", "USDC"), "100"))
	require.NoError(t, err)

	// gross 0.10005 - fee 0.1 = 0.00005 < epsilon
	assert.True(t, opp.NetProfit.IsZero(), "net %s", opp.NetProfit)
	assert.False(t, opp.Actionable(decimal.RequireFromString("0.0001")))
}

func TestEvaluator_TokenPrecisionAndReference(t *testing.T) {
	t.Parallel()

	tokens, err := types.NewTokenSet("USDT", []types.Token{
		{Symbol: "USDT", Decimals: 2, RefPrice: decimal.NewFromInt(1)},
		{Symbol: "ETH", Decimals: 4, RefPrice: decimal.NewFromInt(3000)},
	})
	require.NoError(t, err)

	provider := testutil.NewMockQuoteProvider().SetFixed("USDT", "ETH", "0.033456789")
	ev := newTestEvaluator(t, provider, tokens, nil)

	opp, err := ev.Evaluate(context.Background(), candidate(testutil.DirectRoute("to-eth", "USDT", "ETH"), "100.009"))
	require.NoError(t, err)

	assert.Equal(t, "100", opp.InputAmount.String())
	assert.Equal(t, "0.0334", opp.OutputAmount.String())
	// 0.0334 * 3000 = 100.2; gross 0.2, fee 0.1
	assert.True(t, opp.NetProfit.Equal(decimal.RequireFromString("0.1")), "net %s", opp.NetProfit)
}

func TestEvaluator_ReportedLatencySums(t *testing.T) {
	t.Parallel()

	provider := testutil.NewMockQuoteProvider().SetReportedLatency(100 * time.Millisecond)
	ev := newTestEvaluator(t, provider, testutil.StableTokens("BNB", "ETH"), nil)

	opp, err := ev.Evaluate(context.Background(), candidate(testutil.TriangularRoute("tri", "USDT", "BNB", "ETH"), "10"))
	require.NoError(t, err)

	assert.Equal(t, 300*time.Millisecond, opp.EstimatedLatency)
}

func TestEvaluator_EmptyCandidates(t *testing.T) {
	t.Parallel()

	ev := newTestEvaluator(t, testutil.NewMockQuoteProvider(), testutil.StableTokens(), nil)
	result := ev.EvaluateAll(context.Background(), nil)

	assert.Empty(t, result.Opportunities)
	assert.Empty(t, result.Failures)
}
