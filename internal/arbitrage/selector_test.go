package arbitrage

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/mselser95/swap-arb/internal/testutil"
	"github.com/mselser95/swap-arb/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelector_Select(t *testing.T) {
	t.Parallel()

	eps := decimal.RequireFromString("0.0001")

	tests := []struct {
		name      string
		opps      []types.PricedOpportunity
		wantRoute string
		wantNone  bool
	}{
		{
			name:     "empty",
			opps:     nil,
			wantNone: true,
		},
		{
			name: "max-profit-wins",
			opps: []types.PricedOpportunity{
				testutil.CreateTestOpportunity("hot", types.KindHot, "0.4", time.Second),
				testutil.CreateTestOpportunity("direct", types.KindDirect, "0.9", 5*time.Second),
				testutil.CreateTestOpportunity("tri", types.KindTriangular, "0.7", time.Second),
			},
			wantRoute: "direct",
		},
		{
			name: "tie-broken-by-kind",
			opps: []types.PricedOpportunity{
				testutil.CreateTestOpportunity("direct", types.KindDirect, "0.5", time.Millisecond),
				testutil.CreateTestOpportunity("tri", types.KindTriangular, "0.5", time.Millisecond),
				testutil.CreateTestOpportunity("hot", types.KindHot, "0.5", time.Second),
			},
			wantRoute: "hot",
		},
		{
			name: "tie-within-epsilon-counts-as-tie",
			opps: []types.PricedOpportunity{
				testutil.CreateTestOpportunity("direct", types.KindDirect, "0.50005", time.Millisecond),
				testutil.CreateTestOpportunity("tri", types.KindTriangular, "0.5", time.Millisecond),
			},
			wantRoute: "tri",
		},
		{
			name: "same-kind-tie-broken-by-latency",
			opps: []types.PricedOpportunity{
				testutil.CreateTestOpportunity("slow", types.KindTriangular, "0.5", 8*time.Second),
				testutil.CreateTestOpportunity("fast", types.KindTriangular, "0.5", 2*time.Second),
			},
			wantRoute: "fast",
		},
		{
			name: "non-positive-never-selected",
			opps: []types.PricedOpportunity{
				testutil.CreateTestOpportunity("zero", types.KindHot, "0", time.Millisecond),
				testutil.CreateTestOpportunity("loss", types.KindTriangular, "-1.5", time.Millisecond),
			},
			wantNone: true,
		},
		{
			name: "below-epsilon-never-selected",
			opps: []types.PricedOpportunity{
				testutil.CreateTestOpportunity("dust", types.KindHot, "0.00001", time.Millisecond),
			},
			wantNone: true,
		},
		{
			name: "loss-ignored-next-to-profit",
			opps: []types.PricedOpportunity{
				testutil.CreateTestOpportunity("loss", types.KindHot, "-3", time.Millisecond),
				testutil.CreateTestOpportunity("gain", types.KindDirect, "0.01", time.Second),
			},
			wantRoute: "gain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sel := Selector{Epsilon: eps}
			got, ok := sel.Select(tt.opps)
			if tt.wantNone {
				if ok {
					t.Fatalf("expected no selection, got %s", got.Route)
				}
				return
			}
			if !ok {
				t.Fatal("expected a selection, got none")
			}
			if got.Route != tt.wantRoute {
				t.Errorf("expected %s, got %s", tt.wantRoute, got.Route)
			}
		})
	}
}

func TestSelector_MinEdge(t *testing.T) {
	t.Parallel()

	sel := Selector{Epsilon: decimal.Zero, MinEdgeBps: 50}
	opps := []types.PricedOpportunity{
		testutil.CreateTestOpportunity("thin", types.KindHot, "0.3", time.Millisecond), // 30 bps
		testutil.CreateTestOpportunity("thick", types.KindDirect, "0.6", time.Second),  // 60 bps
	}

	got, ok := sel.Select(opps)
	if !ok || got.Route != "thick" {
		t.Fatalf("expected thick, got %v/%s", ok, got.Route)
	}

	_, ok = sel.Select(opps[:1])
	if ok {
		t.Error("expected thin edge to be rejected")
	}
}

func TestSelector_DeterministicUnderPermutation(t *testing.T) {
	t.Parallel()

	base := []types.PricedOpportunity{
		testutil.CreateTestOpportunity("d1", types.KindDirect, "1.0", time.Second),
		testutil.CreateTestOpportunity("d2", types.KindDirect, "1.0", time.Second),
		testutil.CreateTestOpportunity("t1", types.KindTriangular, "1.0", 3*time.Second),
		testutil.CreateTestOpportunity("t2", types.KindTriangular, "1.0", 2*time.Second),
		testutil.CreateTestOpportunity("h1", types.KindHot, "0.2", time.Millisecond),
		testutil.CreateTestOpportunity("loss", types.KindHot, "-1", time.Millisecond),
	}

	sel := Selector{Epsilon: decimal.RequireFromString("0.0001")}
	want, ok := sel.Select(base)
	if !ok || want.Route != "t2" {
		t.Fatalf("expected t2, got %v/%s", ok, want.Route)
	}

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		shuffled := append([]types.PricedOpportunity(nil), base...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, ok := sel.Select(shuffled)
		if !ok || got.ID != want.ID {
			t.Fatalf("permutation %d: expected %s, got %s", i, want.Route, got.Route)
		}
	}
}

func TestSelector_Rank(t *testing.T) {
	t.Parallel()

	opps := []types.PricedOpportunity{
		testutil.CreateTestOpportunity("low", types.KindHot, "0.1", time.Second),
		testutil.CreateTestOpportunity("high", types.KindDirect, "2", time.Second),
		testutil.CreateTestOpportunity("mid-direct", types.KindDirect, "1", time.Second),
		testutil.CreateTestOpportunity("mid-hot", types.KindHot, "1", time.Second),
	}

	ranked := Selector{}.Rank(opps)
	want := []string{"high", "mid-hot", "mid-direct", "low"}
	for i, route := range want {
		if ranked[i].Route != route {
			t.Errorf("position %d: expected %s, got %s", i, route, ranked[i].Route)
		}
	}

	if opps[0].Route != "low" {
		t.Error("expected Rank to leave its input untouched")
	}
}

func TestSelector_RankAgreesWithSelect(t *testing.T) {
	t.Parallel()

	lowEdge := testutil.CreateTestOpportunity("low-edge", types.KindTriangular, "2", time.Millisecond)
	lowEdge.ProfitBps = 10

	tests := []struct {
		name     string
		selector Selector
		opps     []types.PricedOpportunity
		want     []string
	}{
		{
			name:     "within-epsilon-tie",
			selector: Selector{Epsilon: decimal.RequireFromString("0.01")},
			opps: []types.PricedOpportunity{
				testutil.CreateTestOpportunity("direct", types.KindDirect, "1.005", time.Millisecond),
				testutil.CreateTestOpportunity("negative", types.KindHot, "-0.5", time.Millisecond),
				testutil.CreateTestOpportunity("hot", types.KindHot, "1", time.Second),
				testutil.CreateTestOpportunity("dust", types.KindHot, "0.004", time.Millisecond),
			},
			want: []string{"hot", "direct", "dust", "negative"},
		},
		{
			name:     "below-min-edge-ranked-after",
			selector: Selector{Epsilon: decimal.RequireFromString("0.0001"), MinEdgeBps: 50},
			opps: []types.PricedOpportunity{
				lowEdge,
				testutil.CreateTestOpportunity("solid", types.KindDirect, "0.8", time.Second),
			},
			want: []string{"solid", "low-edge"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ranked := tt.selector.Rank(tt.opps)
			require.Len(t, ranked, len(tt.want))
			for i, route := range tt.want {
				assert.Equal(t, route, ranked[i].Route, "position %d", i)
			}

			// Every input order must keep the head of the ranking equal to Select's pick.
			for shift := range tt.opps {
				rotated := append(append([]types.PricedOpportunity(nil), tt.opps[shift:]...), tt.opps[:shift]...)
				selected, ok := tt.selector.Select(rotated)
				require.True(t, ok)
				assert.Equal(t, selected.Route, tt.selector.Rank(rotated)[0].Route)
			}
		})
	}
}
