package stats

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mselser95/swap-arb/pkg/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(profit string, success bool, at time.Time) types.ExecutionRecord {
	in := decimal.NewFromInt(100)
	return types.ExecutionRecord{
		ID:           fmt.Sprintf("rec-%d", at.UnixNano()),
		Route:        "USDT → USDC",
		Kind:         types.KindDirect,
		Timestamp:    at,
		InputAmount:  in,
		ResultAmount: in.Add(decimal.RequireFromString(profit)),
		Success:      success,
	}
}

func TestAggregator_Empty(t *testing.T) {
	t.Parallel()

	a := NewAggregator(0, 0)
	s := a.Snapshot()

	assert.Zero(t, s.TotalTransactions)
	assert.True(t, s.SuccessRate.IsZero())
	assert.True(t, s.AverageProfit.IsZero())
	assert.Empty(t, s.Series)
	assert.Empty(t, s.Recent)
}

func TestAggregator_RunningMeanMatchesArithmeticMean(t *testing.T) {
	t.Parallel()

	profits := []string{"1.5", "-0.25", "3", "0", "2.75", "-1", "0.125", "4"}

	a := NewAggregator(100, 20)
	sum := decimal.Zero
	base := time.Unix(1700000000, 0)
	for i, p := range profits {
		a.RecordOutcome(record(p, true, base.Add(time.Duration(i)*time.Second)))
		sum = sum.Add(decimal.RequireFromString(p))
	}

	s := a.Snapshot()
	mean := sum.Div(decimal.NewFromInt(int64(len(profits))))

	assert.Equal(t, int64(len(profits)), s.TotalTransactions)
	assert.True(t, s.TotalProfit.Equal(sum), "total %s != %s", s.TotalProfit, sum)
	assert.True(t, s.AverageProfit.Sub(mean).Abs().LessThan(decimal.New(1, -12)),
		"running mean %s != arithmetic mean %s", s.AverageProfit, mean)
}

func TestAggregator_SuccessRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		outcomes []bool
		expected string
	}{
		{name: "all-success", outcomes: []bool{true, true, true}, expected: "100"},
		{name: "all-failure", outcomes: []bool{false, false}, expected: "0"},
		{name: "three-of-four", outcomes: []bool{true, false, true, true}, expected: "75"},
		{name: "one-of-two", outcomes: []bool{false, true}, expected: "50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := NewAggregator(10, 10)
			for i, ok := range tt.outcomes {
				a.RecordOutcome(record("0", ok, time.Unix(int64(i), 0)))
			}

			s := a.Snapshot()
			assert.True(t, s.SuccessRate.Equal(decimal.RequireFromString(tt.expected)),
				"expected %s, got %s", tt.expected, s.SuccessRate)
			assert.True(t, s.SuccessRate.GreaterThanOrEqual(decimal.Zero))
			assert.True(t, s.SuccessRate.LessThanOrEqual(hundred))
		})
	}
}

func TestAggregator_SeriesCap(t *testing.T) {
	t.Parallel()

	a := NewAggregator(5, 3)
	base := time.Unix(1700000000, 0)
	for i := 0; i < 12; i++ {
		a.RecordOutcome(record(fmt.Sprintf("%d", i), true, base.Add(time.Duration(i)*time.Second)))
	}

	s := a.Snapshot()
	require.Len(t, s.Series, 5)
	require.Len(t, s.Recent, 3)
	assert.Equal(t, int64(12), s.TotalTransactions)

	// oldest evicted first
	for i, p := range s.Series {
		assert.True(t, p.Profit.Equal(decimal.NewFromInt(int64(7+i))), "series[%d] = %s", i, p.Profit)
	}
	assert.True(t, s.Recent[2].Profit().Equal(decimal.NewFromInt(11)))
}

func TestAggregator_SnapshotIsDeepCopy(t *testing.T) {
	t.Parallel()

	a := NewAggregator(5, 5)
	a.RecordOutcome(record("1", true, time.Unix(1, 0)))

	s := a.Snapshot()
	s.Series[0].Profit = decimal.NewFromInt(999)
	s.Recent[0].Route = "mutated"

	fresh := a.Snapshot()
	assert.True(t, fresh.Series[0].Profit.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "USDT → USDC", fresh.Recent[0].Route)
}

func TestAggregator_ConcurrentReaders(t *testing.T) {
	t.Parallel()

	a := NewAggregator(50, 20)
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = a.Snapshot()
			}
		}()
	}

	for i := 0; i < 100; i++ {
		a.RecordOutcome(record("0.5", i%2 == 0, time.Unix(int64(i), 0)))
	}
	wg.Wait()

	s := a.Snapshot()
	assert.Equal(t, int64(100), s.TotalTransactions)
	assert.True(t, s.SuccessRate.Equal(decimal.NewFromInt(50)))
}

func TestAggregator_Metrics(t *testing.T) {
	t.Parallel()

	before := testutil.ToFloat64(TransactionsTotal.WithLabelValues("failure"))

	a := NewAggregator(5, 5)
	a.RecordOutcome(record("0", false, time.Unix(1, 0)))

	assert.Equal(t, before+1, testutil.ToFloat64(TransactionsTotal.WithLabelValues("failure")))
}
