package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mselser95/swap-arb/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRouteBook_Default(t *testing.T) {
	t.Parallel()

	book, err := LoadRouteBook("")
	require.NoError(t, err)

	require.Len(t, book.Routes, 7)
	assert.Equal(t, "USDT", book.Tokens.Reference())

	kinds := map[types.StrategyKind]int{}
	for _, r := range book.Routes {
		kinds[r.Kind]++
	}
	assert.Equal(t, 3, kinds[types.KindTriangular])
	assert.Equal(t, 2, kinds[types.KindDirect])
	assert.Equal(t, 2, kinds[types.KindHot])

	// USDT → DAI is only used by the hot route, 180 bps over one leg.
	assert.InDelta(t, 180.0, book.EdgeBps[types.Leg{Sell: "USDT", Buy: "DAI"}], 1e-9)
}

func TestLoadRouteBook_File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "routes.yaml")
	content := `
reference: USDT
tokens:
  - {symbol: USDT, decimals: 6, ref_price: "1"}
  - {symbol: USDC, decimals: 6, ref_price: "1"}
routes:
  - label: "USDT → USDC"
    kind: normal
    hops: [USDT, USDC]
    edge_bps: 20
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	book, err := LoadRouteBook(path)
	require.NoError(t, err)
	require.Len(t, book.Routes, 1)
	assert.Equal(t, types.KindDirect, book.Routes[0].Kind)
}

func TestParseRouteBook_ReferenceMustBeUnitPriced(t *testing.T) {
	t.Parallel()

	_, err := ParseRouteBook([]byte(`
reference: USDT
tokens: [{symbol: USDT, decimals: 6, ref_price: "1.02"}, {symbol: DAI, decimals: 18, ref_price: "1"}]
routes: [{label: a, kind: direct, hops: [USDT, DAI]}]
`))
	require.ErrorContains(t, err, "reference price must be 1")
}

func TestParseRouteBook_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name: "unknown-token-in-hop",
			yaml: `
reference: USDT
tokens: [{symbol: USDT, decimals: 6, ref_price: "1"}]
routes: [{label: a, kind: direct, hops: [USDT, DOGE]}]
`,
			wantErr: types.ErrUnknownToken,
		},
		{
			name: "duplicate-label",
			yaml: `
reference: USDT
tokens: [{symbol: USDT, decimals: 6, ref_price: "1"}, {symbol: DAI, decimals: 18, ref_price: "1"}]
routes:
  - {label: a, kind: direct, hops: [USDT, DAI]}
  - {label: a, kind: hot, hops: [USDT, DAI]}
`,
			wantErr: types.ErrInvalidRoute,
		},
		{
			name: "not-starting-at-reference",
			yaml: `
reference: USDT
tokens: [{symbol: USDT, decimals: 6, ref_price: "1"}, {symbol: DAI, decimals: 18, ref_price: "1"}]
routes: [{label: a, kind: direct, hops: [DAI, USDT]}]
`,
			wantErr: types.ErrInvalidRoute,
		},
		{
			name: "no-routes",
			yaml: `
reference: USDT
tokens: [{symbol: USDT, decimals: 6, ref_price: "1"}]
`,
			wantErr: types.ErrInvalidRoute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseRouteBook([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}
