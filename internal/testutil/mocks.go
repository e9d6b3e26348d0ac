package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/mselser95/swap-arb/pkg/types"
	"github.com/shopspring/decimal"
)

// MockQuoteProvider is a scripted quote source keyed by leg.
// Unscripted legs answer with a 1:1 rate.
type MockQuoteProvider struct {
	mu      sync.Mutex
	rates   map[types.Leg]decimal.Decimal
	fixed   map[types.Leg]decimal.Decimal
	errs    map[types.Leg]error
	delays  map[types.Leg]time.Duration
	latency time.Duration

	// IgnoreContext makes delays uninterruptible, like a provider that never checks ctx.
	IgnoreContext bool

	calls       []types.Leg
	inFlight    int
	maxInFlight int
}

// NewMockQuoteProvider creates an empty mock provider.
func NewMockQuoteProvider() *MockQuoteProvider {
	return &MockQuoteProvider{
		rates:  make(map[types.Leg]decimal.Decimal),
		fixed:  make(map[types.Leg]decimal.Decimal),
		errs:   make(map[types.Leg]error),
		delays: make(map[types.Leg]time.Duration),
	}
}

// SetRate answers amount*rate for the leg.
func (m *MockQuoteProvider) SetRate(sell, buy, rate string) *MockQuoteProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates[types.Leg{Sell: sell, Buy: buy}] = decimal.RequireFromString(rate)
	return m
}

// SetFixed answers a fixed buy amount for the leg regardless of input.
func (m *MockQuoteProvider) SetFixed(sell, buy, amount string) *MockQuoteProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fixed[types.Leg{Sell: sell, Buy: buy}] = decimal.RequireFromString(amount)
	return m
}

// SetError makes the leg fail with err.
func (m *MockQuoteProvider) SetError(sell, buy string, err error) *MockQuoteProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[types.Leg{Sell: sell, Buy: buy}] = err
	return m
}

// ClearError removes a scripted failure.
func (m *MockQuoteProvider) ClearError(sell, buy string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.errs, types.Leg{Sell: sell, Buy: buy})
}

// SetDelay makes the leg take d before answering.
func (m *MockQuoteProvider) SetDelay(sell, buy string, d time.Duration) *MockQuoteProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays[types.Leg{Sell: sell, Buy: buy}] = d
	return m
}

// SetReportedLatency sets the EstimatedLatency returned with every quote.
func (m *MockQuoteProvider) SetReportedLatency(d time.Duration) *MockQuoteProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = d
	return m
}

// GetQuote implements the quote provider contract.
func (m *MockQuoteProvider) GetQuote(ctx context.Context, sell, buy string, amount decimal.Decimal) (types.Quote, error) {
	leg := types.Leg{Sell: sell, Buy: buy}

	m.mu.Lock()
	m.calls = append(m.calls, leg)
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	delay := m.delays[leg]
	err := m.errs[leg]
	rate, hasRate := m.rates[leg]
	fixed, hasFixed := m.fixed[leg]
	latency := m.latency
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if delay > 0 {
		if m.IgnoreContext {
			time.Sleep(delay)
		} else {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return types.Quote{}, types.NewTransientQuoteError(sell, buy, ctx.Err())
			}
		}
	}

	if err != nil {
		return types.Quote{}, err
	}

	buyAmount := amount
	switch {
	case hasFixed:
		buyAmount = fixed
	case hasRate:
		buyAmount = amount.Mul(rate)
	}

	return types.Quote{BuyAmount: buyAmount, EstimatedLatency: latency}, nil
}

// Calls returns every leg requested so far.
func (m *MockQuoteProvider) Calls() []types.Leg {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.Leg(nil), m.calls...)
}

// MaxInFlight is the highest number of concurrent GetQuote calls observed.
func (m *MockQuoteProvider) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

// MockTradeExecutor is a scripted trade executor.
// With no scripted result it settles successfully at amount + opportunity net profit.
type MockTradeExecutor struct {
	mu     sync.Mutex
	result *types.TradeResult
	err    error

	// Started receives one value per Execute call when non-nil.
	Started chan struct{}
	// Release, when non-nil, blocks Execute until closed.
	Release chan struct{}
	// IgnoreContext keeps Execute blocked on Release even after ctx is done.
	IgnoreContext bool

	calls       int
	inFlight    int
	maxInFlight int
}

// NewMockTradeExecutor creates a mock executor that always succeeds.
func NewMockTradeExecutor() *MockTradeExecutor {
	return &MockTradeExecutor{}
}

// SetResult scripts the result returned by every call.
func (m *MockTradeExecutor) SetResult(result types.TradeResult, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = &result
	m.err = err
}

// Execute implements the trade executor contract.
func (m *MockTradeExecutor) Execute(ctx context.Context, opp types.PricedOpportunity, amount decimal.Decimal) (types.TradeResult, error) {
	m.mu.Lock()
	m.calls++
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	result := m.result
	err := m.err
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if m.Started != nil {
		select {
		case m.Started <- struct{}{}:
		default:
		}
	}

	if m.Release != nil {
		if m.IgnoreContext {
			<-m.Release
		} else {
			select {
			case <-m.Release:
			case <-ctx.Done():
				return types.TradeResult{}, ctx.Err()
			}
		}
	}

	if result != nil || err != nil {
		if result == nil {
			return types.TradeResult{}, err
		}
		return *result, err
	}

	return types.TradeResult{
		Success:     true,
		FinalAmount: amount.Add(opp.NetProfit),
		Reference:   "mock-ref-" + opp.ID,
	}, nil
}

// Calls returns the number of Execute calls.
func (m *MockTradeExecutor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MaxInFlight is the highest number of concurrent Execute calls observed.
func (m *MockTradeExecutor) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

// MockRecordStorage keeps execution records in memory.
type MockRecordStorage struct {
	mu      sync.Mutex
	records []types.ExecutionRecord
	closed  bool
}

// NewMockRecordStorage creates an empty record sink.
func NewMockRecordStorage() *MockRecordStorage {
	return &MockRecordStorage{}
}

// StoreRecord appends rec.
func (m *MockRecordStorage) StoreRecord(ctx context.Context, rec types.ExecutionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// Records returns a copy of everything stored.
func (m *MockRecordStorage) Records() []types.ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.ExecutionRecord(nil), m.records...)
}

// Close marks the sink closed.
func (m *MockRecordStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
