package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/chattrade/internal/constants"
	"github.com/aman-zulfiqar/chattrade/internal/models"
)

type Config struct {
	// Chain settings
	RPCUrl               string
	RouterAddress        string
	TokenAddress         string
	TokenSymbol          string
	TokenDecimals        int
	WrappedNativeAddress string

	// Wallet
	WalletPrivateKey       string
	WalletKeystorePath     string
	WalletKeystorePassword string
	WalletAddress          string // read-only balance lookups when no key is set

	// Remote read settings
	RPCMaxAttempts    int
	RPCRetryDelay     time.Duration
	RPCAttemptTimeout time.Duration

	// Swap settings
	ReceiptTimeout time.Duration
	SwapDeadline   time.Duration
	SlippageBps    int
	FallbackBps    int

	// Risk limits, 0 disables
	MaxSwapETH    float64
	DailyLimitETH float64

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// LLM settings
	OpenRouterAPIKey string
	OpenRouterModel  string

	// Chat sessions
	MaxSessions    int
	SessionIdleTTL time.Duration

	// API server
	APIAddr  string
	APIKey   string
	DevMode  bool
	LogLevel string
}

func Load() *Config {
	return &Config{
		// Chain
		RPCUrl:               getEnv("ARBITRUM_RPC_URL", constants.DefaultRPCURL),
		RouterAddress:        getEnv("ROUTER_ADDRESS", constants.CamelotRouter),
		TokenAddress:         getEnv("TOKEN_ADDRESS", constants.USDCAddress),
		TokenSymbol:          strings.ToUpper(getEnv("TOKEN_SYMBOL", "USDC")),
		TokenDecimals:        getIntEnv("TOKEN_DECIMALS", 6),
		WrappedNativeAddress: getEnv("WRAPPED_NATIVE_ADDRESS", constants.WETHAddress),

		// Wallet
		WalletPrivateKey:       os.Getenv("WALLET_PRIVATE_KEY"),
		WalletKeystorePath:     os.Getenv("WALLET_KEYSTORE_PATH"),
		WalletKeystorePassword: os.Getenv("WALLET_KEYSTORE_PASSWORD"),
		WalletAddress:          os.Getenv("WALLET_ADDRESS"),

		// Remote reads
		RPCMaxAttempts:    getIntEnv("RPC_MAX_ATTEMPTS", 3),
		RPCRetryDelay:     getDurationEnv("RPC_RETRY_DELAY", 1*time.Second),
		RPCAttemptTimeout: getDurationEnv("RPC_ATTEMPT_TIMEOUT", 20*time.Second),

		// Swap
		ReceiptTimeout: getDurationEnv("RECEIPT_TIMEOUT", 60*time.Second),
		SwapDeadline:   getDurationEnv("SWAP_DEADLINE", 20*time.Minute),
		SlippageBps:    getIntEnv("SLIPPAGE_BPS", 50),
		FallbackBps:    getIntEnv("FALLBACK_PENALTY_BPS", 200),

		// Risk
		MaxSwapETH:    getFloatEnv("MAX_SWAP_ETH", 0),
		DailyLimitETH: getFloatEnv("DAILY_LIMIT_ETH", 0),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		// ClickHouse
		ClickHouseAddr:     os.Getenv("CLICKHOUSE_ADDR"),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "chattrade"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// LLM
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:  getEnv("OPENROUTER_MODEL", "openai/gpt-4.1-mini"),

		// Sessions
		MaxSessions:    getIntEnv("MAX_SESSIONS", 1000),
		SessionIdleTTL: getDurationEnv("SESSION_IDLE_TTL", 30*time.Minute),

		// API
		APIAddr:  getEnv("API_ADDR", ":8090"),
		APIKey:   os.Getenv("API_KEY"),
		DevMode:  getBoolEnv("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate rejects settings that would make every swap or read fail.
func (c *Config) Validate() error {
	if c.RPCUrl == "" {
		return fmt.Errorf("ARBITRUM_RPC_URL is required")
	}
	for name, addr := range map[string]string{
		"ROUTER_ADDRESS":         c.RouterAddress,
		"TOKEN_ADDRESS":          c.TokenAddress,
		"WRAPPED_NATIVE_ADDRESS": c.WrappedNativeAddress,
	} {
		if err := models.ValidateAddress(addr); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.WalletAddress != "" {
		if err := models.ValidateAddress(c.WalletAddress); err != nil {
			return fmt.Errorf("WALLET_ADDRESS: %w", err)
		}
	}
	if c.TokenSymbol == "" || c.TokenSymbol == "ETH" {
		return fmt.Errorf("TOKEN_SYMBOL must be set and differ from ETH")
	}
	if c.TokenDecimals < 0 || c.TokenDecimals > 36 {
		return fmt.Errorf("TOKEN_DECIMALS out of range: %d", c.TokenDecimals)
	}
	if c.RPCMaxAttempts < 1 {
		return fmt.Errorf("RPC_MAX_ATTEMPTS must be >= 1")
	}
	if c.SlippageBps < 0 || c.SlippageBps >= 10000 {
		return fmt.Errorf("SLIPPAGE_BPS out of range: %d", c.SlippageBps)
	}
	if c.FallbackBps < 0 || c.FallbackBps >= 10000 {
		return fmt.Errorf("FALLBACK_PENALTY_BPS out of range: %d", c.FallbackBps)
	}
	if c.ReceiptTimeout <= 0 || c.SwapDeadline <= 0 {
		return fmt.Errorf("RECEIPT_TIMEOUT and SWAP_DEADLINE must be positive")
	}
	if c.MaxSwapETH < 0 || c.DailyLimitETH < 0 {
		return fmt.Errorf("risk limits must be >= 0")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
