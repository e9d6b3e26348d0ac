// Package wallet reads on-chain balances for the execution guard.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const balanceOfABI = `[{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}]`

// Client fetches a wallet's native and ERC20 balances over JSON-RPC.
type Client struct {
	rpcURL   string
	token    common.Address
	decimals int32
	timeout  time.Duration
	abi      abi.ABI
	logger   *zap.Logger
}

// Config holds client configuration.
type Config struct {
	RPCURL string
	// TokenAddress is the ERC20 contract whose balance guards execution.
	TokenAddress  string
	TokenDecimals int32
	// Timeout bounds each balance call. Defaults to 15s.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Balances holds on-chain balances in token units.
type Balances struct {
	Native decimal.Decimal
	Token  decimal.Decimal
}

// NewClient creates a new wallet client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, errors.New("rpc url cannot be empty")
	}
	if !common.IsHexAddress(cfg.TokenAddress) {
		return nil, fmt.Errorf("invalid token address %q", cfg.TokenAddress)
	}
	if cfg.TokenDecimals < 0 {
		return nil, errors.New("token decimals cannot be negative")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	parsed, err := abi.JSON(strings.NewReader(balanceOfABI))
	if err != nil {
		return nil, fmt.Errorf("parse ABI: %w", err)
	}

	return &Client{
		rpcURL:   cfg.RPCURL,
		token:    common.HexToAddress(cfg.TokenAddress),
		decimals: cfg.TokenDecimals,
		timeout:  cfg.Timeout,
		abi:      parsed,
		logger:   cfg.Logger,
	}, nil
}

// GetBalance returns the guarded token balance of owner in whole token units.
func (c *Client) GetBalance(ctx context.Context, owner common.Address) (decimal.Decimal, error) {
	start := time.Now()
	defer func() {
		BalanceCheckDuration.Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, c.rpcURL)
	if err != nil {
		BalanceErrorsTotal.Inc()
		return decimal.Zero, fmt.Errorf("dial RPC: %w", err)
	}
	defer client.Close()

	raw, err := c.tokenBalance(ctx, client, owner)
	if err != nil {
		BalanceErrorsTotal.Inc()
		return decimal.Zero, err
	}

	balance := decimal.NewFromBigInt(raw, -c.decimals)
	TokenBalance.Set(balance.InexactFloat64())
	return balance, nil
}

// GetBalances returns both the native gas balance and the token balance.
func (c *Client) GetBalances(ctx context.Context, owner common.Address) (*Balances, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, c.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial RPC: %w", err)
	}
	defer client.Close()

	native, err := client.BalanceAt(ctx, owner, nil)
	if err != nil {
		return nil, fmt.Errorf("get native balance: %w", err)
	}

	token, err := c.tokenBalance(ctx, client, owner)
	if err != nil {
		return nil, err
	}

	balances := &Balances{
		Native: decimal.NewFromBigInt(native, -18),
		Token:  decimal.NewFromBigInt(token, -c.decimals),
	}

	NativeBalance.Set(balances.Native.InexactFloat64())
	TokenBalance.Set(balances.Token.InexactFloat64())

	c.logger.Debug("wallet-balances-fetched",
		zap.String("address", owner.Hex()),
		zap.String("native", balances.Native.String()),
		zap.String("token", balances.Token.String()))

	return balances, nil
}

func (c *Client) tokenBalance(ctx context.Context, client *ethclient.Client, owner common.Address) (*big.Int, error) {
	data, err := c.abi.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("pack ABI: %w", err)
	}

	msg := ethereum.CallMsg{
		To:   &c.token,
		Data: data,
	}

	result, err := client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call balanceOf: %w", err)
	}

	return new(big.Int).SetBytes(result), nil
}
