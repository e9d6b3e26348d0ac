package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel  string
	HTTPPort  string
	AutoStart bool

	// Routes
	RoutesFile string

	// Trading
	TradeAmount    decimal.Decimal
	StrategyFilter string
	TakerFeeBps    int64
	MinEdgeBps     int64
	ProfitEpsilon  decimal.Decimal

	// Scanning
	ScanTimeout     time.Duration
	ScanConcurrency int

	// Quote source
	QuoteSource     string // "simulated" or "http"
	QuoteAPIURL     string
	QuoteAPIKey     string
	QuoteRateLimit  float64
	QuoteBurst      int
	QuoteCacheTTL   time.Duration
	QuoteCacheSize  int64
	QuoteSimSeed    int64
	QuoteFailRate   float64
	QuoteSimLatency time.Duration
	QuoteSimWave    float64 // amplitude in bps
	QuoteSimPeriod  time.Duration
	QuoteSimNoise   float64 // bps

	// Execution
	ExecutionMode        string // "paper" or "dry-run"
	ExecutionTimeout     time.Duration
	PaperSuccessRate     float64
	PaperMinLatency      time.Duration
	PaperMaxLatency      time.Duration
	PaperStartingBalance decimal.Decimal
	WalletAddress        string

	// Scheduling
	CycleMinInterval     time.Duration
	CycleMaxInterval     time.Duration
	CycleIdleMinInterval time.Duration
	CycleIdleMaxInterval time.Duration

	// Stats
	StatsMaxSeries  int
	StatsMaxHistory int

	// Circuit Breaker
	CircuitBreakerEnabled         bool
	CircuitBreakerCheckInterval   time.Duration
	CircuitBreakerTradeMultiplier float64
	CircuitBreakerMinAbsolute     float64
	CircuitBreakerHysteresisRatio float64
	// BalanceRPCURL, when set, guards on an on-chain ERC20 balance instead of the paper wallet.
	BalanceRPCURL        string
	BalanceTokenAddress  string
	BalanceTokenDecimals int

	// Outputs
	StorageMode       string // "console", "redis" or "none"
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RedisChannel      string
	RedisStreamMaxLen int64
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort:  getEnvOrDefault("HTTP_PORT", "8080"),
		AutoStart: getBoolOrDefault("AUTO_START", false),

		RoutesFile: os.Getenv("ROUTES_FILE"),

		// Trading defaults
		TradeAmount:    getDecimalOrDefault("TRADE_AMOUNT", decimal.NewFromInt(50)),
		StrategyFilter: getEnvOrDefault("STRATEGY_FILTER", "all"),
		TakerFeeBps:    int64(getIntOrDefault("TAKER_FEE_BPS", 10)), // 0.1% spot taker fee
		MinEdgeBps:     int64(getIntOrDefault("MIN_EDGE_BPS", 0)),
		ProfitEpsilon:  getDecimalOrDefault("PROFIT_EPSILON", decimal.RequireFromString("0.0001")),

		// Scanning defaults
		ScanTimeout:     getDurationOrDefault("SCAN_TIMEOUT", 5*time.Second),
		ScanConcurrency: getIntOrDefault("SCAN_CONCURRENCY", 8),

		// Quote source defaults
		QuoteSource:     getEnvOrDefault("QUOTE_SOURCE", "simulated"),
		QuoteAPIURL:     getEnvOrDefault("QUOTE_API_URL", "https://api.0x.org"),
		QuoteAPIKey:     os.Getenv("QUOTE_API_KEY"),
		QuoteRateLimit:  getFloat64OrDefault("QUOTE_RATE_LIMIT", 10),
		QuoteBurst:      getIntOrDefault("QUOTE_BURST", 5),
		QuoteCacheTTL:   getDurationOrDefault("QUOTE_CACHE_TTL", 2*time.Second),
		QuoteCacheSize:  int64(getIntOrDefault("QUOTE_CACHE_SIZE", 10000)),
		QuoteSimSeed:    int64(getIntOrDefault("QUOTE_SIM_SEED", 0)),
		QuoteFailRate:   getFloat64OrDefault("QUOTE_SIM_FAILURE_RATE", 0.02),
		QuoteSimLatency: getDurationOrDefault("QUOTE_SIM_LATENCY", 150*time.Millisecond),
		QuoteSimWave:    getFloat64OrDefault("QUOTE_SIM_AMPLITUDE_BPS", 40),
		QuoteSimPeriod:  getDurationOrDefault("QUOTE_SIM_PERIOD", 3*time.Minute),
		QuoteSimNoise:   getFloat64OrDefault("QUOTE_SIM_NOISE_BPS", 5),

		// Execution defaults
		ExecutionMode:        getEnvOrDefault("EXECUTION_MODE", "paper"),
		ExecutionTimeout:     getDurationOrDefault("EXECUTION_TIMEOUT", 30*time.Second),
		PaperSuccessRate:     getFloat64OrDefault("PAPER_SUCCESS_RATE", 0.95),
		PaperMinLatency:      getDurationOrDefault("PAPER_MIN_LATENCY", 5*time.Second),
		PaperMaxLatency:      getDurationOrDefault("PAPER_MAX_LATENCY", 10*time.Second),
		PaperStartingBalance: getDecimalOrDefault("PAPER_STARTING_BALANCE", decimal.NewFromInt(1000)),
		WalletAddress:        os.Getenv("WALLET_ADDRESS"),

		// Scheduling defaults
		CycleMinInterval:     getDurationOrDefault("CYCLE_MIN_INTERVAL", 15*time.Second),
		CycleMaxInterval:     getDurationOrDefault("CYCLE_MAX_INTERVAL", 20*time.Second),
		CycleIdleMinInterval: getDurationOrDefault("CYCLE_IDLE_MIN_INTERVAL", 5*time.Second),
		CycleIdleMaxInterval: getDurationOrDefault("CYCLE_IDLE_MAX_INTERVAL", 10*time.Second),

		// Stats defaults
		StatsMaxSeries:  getIntOrDefault("STATS_MAX_SERIES", 100),
		StatsMaxHistory: getIntOrDefault("STATS_MAX_HISTORY", 20),

		// Circuit breaker defaults
		CircuitBreakerEnabled:         getBoolOrDefault("CIRCUIT_BREAKER_ENABLED", true),
		CircuitBreakerCheckInterval:   getDurationOrDefault("CIRCUIT_BREAKER_CHECK_INTERVAL", 30*time.Second),
		CircuitBreakerTradeMultiplier: getFloat64OrDefault("CIRCUIT_BREAKER_TRADE_MULTIPLIER", 3.0),
		CircuitBreakerMinAbsolute:     getFloat64OrDefault("CIRCUIT_BREAKER_MIN_ABSOLUTE", 5.0),
		CircuitBreakerHysteresisRatio: getFloat64OrDefault("CIRCUIT_BREAKER_HYSTERESIS_RATIO", 1.5),
		BalanceRPCURL:                 os.Getenv("BALANCE_RPC_URL"),
		BalanceTokenAddress:           os.Getenv("BALANCE_TOKEN_ADDRESS"),
		BalanceTokenDecimals:          getIntOrDefault("BALANCE_TOKEN_DECIMALS", 6),

		// Output defaults
		StorageMode:       getEnvOrDefault("STORAGE_MODE", "console"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getIntOrDefault("REDIS_DB", 0),
		RedisChannel:      getEnvOrDefault("REDIS_CHANNEL", "swap-arb:snapshots"),
		RedisStreamMaxLen: int64(getIntOrDefault("REDIS_STREAM_MAX_LEN", 10000)),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if !c.TradeAmount.IsPositive() {
		return fmt.Errorf("TRADE_AMOUNT must be positive, got %s", c.TradeAmount)
	}

	if c.TakerFeeBps < 0 || c.TakerFeeBps >= 10000 {
		return fmt.Errorf("TAKER_FEE_BPS must be in [0, 10000), got %d", c.TakerFeeBps)
	}

	if c.MinEdgeBps < 0 {
		return fmt.Errorf("MIN_EDGE_BPS cannot be negative, got %d", c.MinEdgeBps)
	}

	if c.ProfitEpsilon.IsNegative() {
		return fmt.Errorf("PROFIT_EPSILON cannot be negative, got %s", c.ProfitEpsilon)
	}

	if c.ScanTimeout <= 0 {
		return fmt.Errorf("SCAN_TIMEOUT must be positive, got %v", c.ScanTimeout)
	}

	if c.ScanConcurrency <= 0 {
		return fmt.Errorf("SCAN_CONCURRENCY must be positive, got %d", c.ScanConcurrency)
	}

	if c.QuoteSource != "simulated" && c.QuoteSource != "http" {
		return fmt.Errorf("QUOTE_SOURCE must be 'simulated' or 'http', got %q", c.QuoteSource)
	}

	if c.QuoteSource == "http" && c.QuoteAPIURL == "" {
		return fmt.Errorf("QUOTE_API_URL cannot be empty when QUOTE_SOURCE=http")
	}

	if c.QuoteRateLimit <= 0 {
		return fmt.Errorf("QUOTE_RATE_LIMIT must be positive, got %f", c.QuoteRateLimit)
	}

	if c.QuoteFailRate < 0 || c.QuoteFailRate > 1 {
		return fmt.Errorf("QUOTE_SIM_FAILURE_RATE must be between 0 and 1, got %f", c.QuoteFailRate)
	}

	if c.ExecutionMode != "paper" && c.ExecutionMode != "dry-run" {
		return fmt.Errorf("EXECUTION_MODE must be 'paper' or 'dry-run', got %q", c.ExecutionMode)
	}

	if c.ExecutionTimeout <= 0 {
		return fmt.Errorf("EXECUTION_TIMEOUT must be positive, got %v", c.ExecutionTimeout)
	}

	if c.PaperSuccessRate < 0 || c.PaperSuccessRate > 1 {
		return fmt.Errorf("PAPER_SUCCESS_RATE must be between 0 and 1, got %f", c.PaperSuccessRate)
	}

	if c.PaperMinLatency < 0 || c.PaperMaxLatency < c.PaperMinLatency {
		return fmt.Errorf("PAPER_MIN_LATENCY/PAPER_MAX_LATENCY must satisfy 0 <= min <= max, got %v/%v",
			c.PaperMinLatency, c.PaperMaxLatency)
	}

	if c.CycleMinInterval <= 0 || c.CycleMaxInterval < c.CycleMinInterval {
		return fmt.Errorf("CYCLE_MIN_INTERVAL/CYCLE_MAX_INTERVAL must satisfy 0 < min <= max, got %v/%v",
			c.CycleMinInterval, c.CycleMaxInterval)
	}

	if c.CycleIdleMinInterval <= 0 || c.CycleIdleMaxInterval < c.CycleIdleMinInterval {
		return fmt.Errorf("CYCLE_IDLE_MIN_INTERVAL/CYCLE_IDLE_MAX_INTERVAL must satisfy 0 < min <= max, got %v/%v",
			c.CycleIdleMinInterval, c.CycleIdleMaxInterval)
	}

	if c.StatsMaxSeries <= 0 || c.StatsMaxHistory <= 0 {
		return fmt.Errorf("STATS_MAX_SERIES and STATS_MAX_HISTORY must be positive")
	}

	switch c.StorageMode {
	case "console", "none":
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR cannot be empty when STORAGE_MODE=redis")
		}
	default:
		return fmt.Errorf("STORAGE_MODE must be 'console', 'redis' or 'none', got %q", c.StorageMode)
	}

	if c.BalanceRPCURL != "" && c.BalanceTokenAddress == "" {
		return fmt.Errorf("BALANCE_TOKEN_ADDRESS cannot be empty when BALANCE_RPC_URL is set")
	}

	if c.QuoteCacheTTL > 0 && c.QuoteCacheSize <= 0 {
		return fmt.Errorf("QUOTE_CACHE_SIZE must be positive when QUOTE_CACHE_TTL is set, got %d", c.QuoteCacheSize)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

// getDecimalOrDefault parses a decimal amount without going through float64.
func getDecimalOrDefault(key string, defaultValue decimal.Decimal) decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	dec, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}

	return dec
}
