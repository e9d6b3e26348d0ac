package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/mselser95/swap-arb/internal/arbitrage"
	"github.com/mselser95/swap-arb/internal/engine"
	"github.com/mselser95/swap-arb/pkg/healthprobe"
	"github.com/mselser95/swap-arb/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeController struct {
	mu       sync.Mutex
	snap     engine.Snapshot
	routes   []types.RouteTemplate
	startCtx context.Context
	updates  chan engine.Snapshot
}

func newFakeController() *fakeController {
	return &fakeController{
		snap: engine.Snapshot{
			State:       engine.StateIdle,
			TradeAmount: decimal.NewFromInt(100),
			Filter:      types.FilterAll,
		},
		routes: []types.RouteTemplate{
			{Label: "USDC-DAI", Kind: types.KindDirect, Hops: []string{"USDC", "DAI"}},
			{Label: "USDC-ETH-DAI", Kind: types.KindTriangular, Hops: []string{"USDC", "ETH", "DAI"}},
		},
		updates: make(chan engine.Snapshot, 4),
	}
}

func (f *fakeController) Snapshot() engine.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeController) Subscribe(int) (<-chan engine.Snapshot, func()) {
	return f.updates, func() {}
}

func (f *fakeController) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snap.Wallet == "" {
		return types.ErrWalletNotConnected
	}
	f.startCtx = ctx
	f.snap.Running = true
	return nil
}

func (f *fakeController) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.Running = false
}

func (f *fakeController) SetTradeAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s", types.ErrInvalidAmount, amount)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.TradeAmount = amount
	return nil
}

func (f *fakeController) SelectStrategyFilter(filter types.StrategyFilter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.Filter = filter
	return nil
}

func (f *fakeController) ConnectWallet(address string) error {
	if !strings.HasPrefix(address, "0x") || len(address) != 42 {
		return fmt.Errorf("%w: %q", types.ErrInvalidAddress, address)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.Wallet = address
	return nil
}

func (f *fakeController) DisconnectWallet() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.Wallet = ""
	f.snap.Running = false
}

func (f *fakeController) EnableRoute(label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.routes {
		if r.Label == label {
			f.snap.DisabledRoutes = nil
			return nil
		}
	}
	return fmt.Errorf("%w: %q", types.ErrUnknownRoute, label)
}

func (f *fakeController) Routes() []types.RouteTemplate {
	return f.routes
}

func newTestServer(t *testing.T, c Controller) *Server {
	t.Helper()

	return New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: healthprobe.New(),
		Controller:    c,
	})
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var out map[string]interface{}
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		controller Controller
		wantHub    bool
	}{
		{name: "minimal", controller: nil, wantHub: false},
		{name: "with-controller", controller: newFakeController(), wantHub: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestServer(t, tt.controller)
			require.NotNil(t, s)
			assert.Equal(t, tt.wantHub, s.Hub() != nil)

			rec, _ := do(t, s, http.MethodGet, "/api/snapshot", "")
			if tt.wantHub {
				assert.Equal(t, http.StatusOK, rec.Code)
			} else {
				assert.Equal(t, http.StatusNotFound, rec.Code)
			}
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)

	rec, _ := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, s, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, _ = do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_Snapshot(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, newFakeController())

	rec, body := do(t, s, http.MethodGet, "/api/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "idle", body["state"])
	assert.Equal(t, "all", body["filter"])
	assert.Equal(t, "100", body["trade_amount"])
}

func TestAPI_Opportunities_EmptyIsArray(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, newFakeController())

	rec, _ := do(t, s, http.MethodGet, "/api/opportunities", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestAPI_Routes(t *testing.T) {
	t.Parallel()

	fc := newFakeController()
	fc.snap.DisabledRoutes = []arbitrage.DisabledRoute{{Label: "USDC-ETH-DAI", Reason: "unknown token"}}
	s := newTestServer(t, fc)

	rec, _ := do(t, s, http.MethodGet, "/api/routes", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var routes []RouteView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &routes))
	require.Len(t, routes, 2)
	assert.False(t, routes[0].Disabled)
	assert.True(t, routes[1].Disabled)
	assert.Equal(t, "unknown token", routes[1].DisabledReason)
}

func TestAPI_Control(t *testing.T) {
	t.Parallel()

	const wallet = "0x52908400098527886E0F7030069857D2E4169EE7"

	tests := []struct {
		name       string
		setup      func(fc *fakeController)
		method     string
		path       string
		body       string
		wantStatus int
		check      func(t *testing.T, fc *fakeController, body map[string]interface{})
	}{
		{
			name:       "start-without-wallet",
			method:     http.MethodPost,
			path:       "/api/control/start",
			wantStatus: http.StatusConflict,
			check: func(t *testing.T, _ *fakeController, body map[string]interface{}) {
				assert.Contains(t, body["error"], "wallet not connected")
			},
		},
		{
			name:       "start-with-wallet",
			setup:      func(fc *fakeController) { fc.snap.Wallet = wallet },
			method:     http.MethodPost,
			path:       "/api/control/start",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, fc *fakeController, body map[string]interface{}) {
				assert.Equal(t, true, body["running"])
				require.NotNil(t, fc.startCtx)
				assert.NoError(t, fc.startCtx.Err())
			},
		},
		{
			name:       "pause",
			setup:      func(fc *fakeController) { fc.snap.Running = true },
			method:     http.MethodPost,
			path:       "/api/control/pause",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, _ *fakeController, body map[string]interface{}) {
				assert.Equal(t, false, body["running"])
			},
		},
		{
			name:       "set-amount",
			method:     http.MethodPut,
			path:       "/api/control/amount",
			body:       `{"amount":"250.5"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, fc *fakeController, _ map[string]interface{}) {
				assert.Equal(t, "250.5", fc.snap.TradeAmount.String())
			},
		},
		{
			name:       "set-amount-negative",
			method:     http.MethodPut,
			path:       "/api/control/amount",
			body:       `{"amount":"-1"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "set-amount-malformed",
			method:     http.MethodPut,
			path:       "/api/control/amount",
			body:       `{"amount":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "set-filter",
			method:     http.MethodPut,
			path:       "/api/control/filter",
			body:       `{"filter":"triangular"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, fc *fakeController, _ map[string]interface{}) {
				assert.Equal(t, types.StrategyFilter(types.KindTriangular), fc.snap.Filter)
			},
		},
		{
			name:       "set-filter-normal-alias",
			method:     http.MethodPut,
			path:       "/api/control/filter",
			body:       `{"filter":"normal"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, fc *fakeController, _ map[string]interface{}) {
				assert.Equal(t, types.StrategyFilter(types.KindDirect), fc.snap.Filter)
			},
		},
		{
			name:       "set-filter-unknown",
			method:     http.MethodPut,
			path:       "/api/control/filter",
			body:       `{"filter":"sideways"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "connect-wallet",
			method:     http.MethodPost,
			path:       "/api/wallet/connect",
			body:       `{"address":"` + wallet + `"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, _ *fakeController, body map[string]interface{}) {
				assert.Equal(t, wallet, body["wallet"])
			},
		},
		{
			name:       "connect-wallet-invalid",
			method:     http.MethodPost,
			path:       "/api/wallet/connect",
			body:       `{"address":"not-a-wallet"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "disconnect-wallet",
			setup:      func(fc *fakeController) { fc.snap.Wallet = wallet; fc.snap.Running = true },
			method:     http.MethodPost,
			path:       "/api/wallet/disconnect",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, _ *fakeController, body map[string]interface{}) {
				assert.Nil(t, body["wallet"])
				assert.Equal(t, false, body["running"])
			},
		},
		{
			name:       "enable-route",
			method:     http.MethodPost,
			path:       "/api/routes/USDC-DAI/enable",
			wantStatus: http.StatusOK,
		},
		{
			name:       "enable-unknown-route",
			method:     http.MethodPost,
			path:       "/api/routes/NOPE/enable",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fc := newFakeController()
			if tt.setup != nil {
				tt.setup(fc)
			}
			s := newTestServer(t, fc)

			rec, body := do(t, s, tt.method, tt.path, tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus >= http.StatusBadRequest {
				assert.NotEmpty(t, body["error"])
			}
			if tt.check != nil {
				tt.check(t, fc, body)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "invalid-amount", err: fmt.Errorf("wrap: %w", types.ErrInvalidAmount), want: http.StatusBadRequest},
		{name: "invalid-filter", err: types.ErrInvalidFilter, want: http.StatusBadRequest},
		{name: "invalid-address", err: types.ErrInvalidAddress, want: http.StatusBadRequest},
		{name: "wallet-not-connected", err: types.ErrWalletNotConnected, want: http.StatusConflict},
		{name: "unknown-route", err: types.ErrUnknownRoute, want: http.StatusNotFound},
		{name: "other", err: fmt.Errorf("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestStream(t *testing.T) {
	t.Parallel()

	fc := newFakeController()
	s := newTestServer(t, fc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Hub().Run(ctx)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	readMessage := func() map[string]interface{} {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, readErr := conn.ReadMessage()
		require.NoError(t, readErr)

		var msg map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "snapshot", msg["type"])
		return msg["payload"].(map[string]interface{})
	}

	first := readMessage()
	assert.Equal(t, "idle", first["state"])

	require.Eventually(t, func() bool { return s.Hub().ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	fc.updates <- engine.Snapshot{State: engine.StateExecuting, CycleCount: 7}

	second := readMessage()
	assert.Equal(t, "executing", second["state"])
	assert.EqualValues(t, 7, second["cycle_count"])

	cancel()
	require.Eventually(t, func() bool { return s.Hub().ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
