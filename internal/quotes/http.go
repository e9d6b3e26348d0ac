package quotes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/mselser95/swap-arb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// HTTPProvider quotes legs from a 0x-style swap price API.
// Amounts cross the wire in base units (amount * 10^decimals).
type HTTPProvider struct {
	baseURL    string
	apiKey     string
	tokens     *types.TokenSet
	httpClient *http.Client
	logger     *zap.Logger
}

// HTTPConfig holds HTTP provider configuration.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Tokens  *types.TokenSet
	Timeout time.Duration
	Logger  *zap.Logger
}

type priceResponse struct {
	BuyAmount      string `json:"buyAmount"`
	Price          string `json:"price"`
	EstimatedGas   string `json:"estimatedGas"`
	LiquidityAvail *bool  `json:"liquidityAvailable,omitempty"`
}

type apiError struct {
	Code   int    `json:"code"`
	Reason string `json:"reason"`
}

// NewHTTPProvider creates a new HTTP quote client.
func NewHTTPProvider(cfg HTTPConfig) (*HTTPProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url cannot be empty")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token set cannot be nil")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &HTTPProvider{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		tokens:  cfg.Tokens,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: cfg.Logger,
	}, nil
}

// GetQuote requests an indicative price for selling amount of sellToken.
func (p *HTTPProvider) GetQuote(ctx context.Context, sellToken, buyToken string, amount decimal.Decimal) (types.Quote, error) {
	sell, ok := p.tokens.Get(sellToken)
	if !ok {
		return types.Quote{}, types.NewPermanentQuoteError(sellToken, buyToken, fmt.Errorf("%w: %s", types.ErrUnknownToken, sellToken))
	}
	buy, ok := p.tokens.Get(buyToken)
	if !ok {
		return types.Quote{}, types.NewPermanentQuoteError(sellToken, buyToken, fmt.Errorf("%w: %s", types.ErrUnknownToken, buyToken))
	}

	sellBaseUnits := amount.Shift(sell.Decimals).Truncate(0)
	if !sellBaseUnits.IsPositive() {
		return types.Quote{}, types.NewPermanentQuoteError(sellToken, buyToken, fmt.Errorf("%w: %s", types.ErrInvalidAmount, amount))
	}

	params := url.Values{}
	params.Add("sellToken", sellToken)
	params.Add("buyToken", buyToken)
	params.Add("sellAmount", sellBaseUnits.String())

	requestURL := fmt.Sprintf("%s/swap/v1/price?%s", p.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return types.Quote{}, types.NewPermanentQuoteError(sellToken, buyToken, fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "swap-arb/1.0")
	if p.apiKey != "" {
		req.Header.Set("0x-api-key", p.apiKey)
	}

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	elapsed := time.Since(start)
	HTTPQuoteDurationSeconds.Observe(elapsed.Seconds())
	if err != nil {
		HTTPQuoteErrorsTotal.WithLabelValues("transport").Inc()
		return types.Quote{}, types.NewTransientQuoteError(sellToken, buyToken, fmt.Errorf("do request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		HTTPQuoteErrorsTotal.WithLabelValues("read").Inc()
		return types.Quote{}, types.NewTransientQuoteError(sellToken, buyToken, fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return types.Quote{}, p.statusError(sellToken, buyToken, resp.StatusCode, body)
	}

	var pr priceResponse
	err = json.Unmarshal(body, &pr)
	if err != nil {
		HTTPQuoteErrorsTotal.WithLabelValues("decode").Inc()
		return types.Quote{}, types.NewTransientQuoteError(sellToken, buyToken, fmt.Errorf("unmarshal response: %w", err))
	}

	if pr.LiquidityAvail != nil && !*pr.LiquidityAvail {
		HTTPQuoteErrorsTotal.WithLabelValues("no_liquidity").Inc()
		return types.Quote{}, types.NewTransientQuoteError(sellToken, buyToken, errors.New("no liquidity available"))
	}

	buyBaseUnits, err := decimal.NewFromString(pr.BuyAmount)
	if err != nil {
		HTTPQuoteErrorsTotal.WithLabelValues("decode").Inc()
		return types.Quote{}, types.NewTransientQuoteError(sellToken, buyToken, fmt.Errorf("parse buyAmount %q: %w", pr.BuyAmount, err))
	}

	p.logger.Debug("http-quote",
		zap.String("sell", sellToken),
		zap.String("buy", buyToken),
		zap.String("sell-amount", sellBaseUnits.String()),
		zap.String("buy-amount", pr.BuyAmount),
		zap.Duration("elapsed", elapsed))

	return types.Quote{
		BuyAmount:        buyBaseUnits.Shift(-buy.Decimals),
		EstimatedLatency: elapsed,
		Venue:            p.baseURL,
	}, nil
}

// statusError maps HTTP status codes onto transient or permanent quote failures.
func (p *HTTPProvider) statusError(sellToken, buyToken string, status int, body []byte) error {
	reason := string(body)
	var ae apiError
	if json.Unmarshal(body, &ae) == nil && ae.Reason != "" {
		reason = ae.Reason
	}

	err := fmt.Errorf("unexpected status code %d: %s", status, reason)

	switch {
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		HTTPQuoteErrorsTotal.WithLabelValues("transient_status").Inc()
		return types.NewTransientQuoteError(sellToken, buyToken, err)
	case status == http.StatusBadRequest || status == http.StatusNotFound || status == http.StatusUnprocessableEntity:
		HTTPQuoteErrorsTotal.WithLabelValues("permanent_status").Inc()
		return types.NewPermanentQuoteError(sellToken, buyToken, err)
	default:
		HTTPQuoteErrorsTotal.WithLabelValues("transient_status").Inc()
		return types.NewTransientQuoteError(sellToken, buyToken, err)
	}
}
