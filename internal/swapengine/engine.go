package swapengine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aman-zulfiqar/chattrade/internal/amount"
	"github.com/aman-zulfiqar/chattrade/internal/cache"
	"github.com/aman-zulfiqar/chattrade/internal/config"
	"github.com/aman-zulfiqar/chattrade/internal/constants"
	"github.com/aman-zulfiqar/chattrade/internal/errs"
	"github.com/aman-zulfiqar/chattrade/internal/models"
	"github.com/aman-zulfiqar/chattrade/internal/rpc"
	"github.com/aman-zulfiqar/chattrade/internal/storage"
	"github.com/aman-zulfiqar/chattrade/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// Wallet is a Transactor that can also send plain native transfers.
// *wallet.Wallet satisfies it.
type Wallet interface {
	Transactor
	Transfer(ctx context.Context, to, amountETH string) (common.Hash, error)
}

// Engine is the main orchestrator for swap operations
type Engine struct {
	client   *ethclient.Client // nil when a Backend was injected
	reader   *rpc.Reader
	wallet   Wallet
	registry *TokenRegistry

	redisCache storage.SwapCache
	clickhouse storage.SwapStore

	decisionEngine *DecisionEngine
	quoter         *Quoter
	executor       *Executor
	riskManager    *RiskManager

	walletAddress string
	logger        *logrus.Logger
}

// EngineConfig holds configuration for the swap engine
type EngineConfig struct {
	// Chain
	RPCURL        string
	RetryPolicy   rpc.RetryPolicy
	RouterAddress string
	Registry      *TokenRegistry

	// Wallet: private key wins over keystore; WalletAddress is used for
	// read-only balance lookups when neither is set
	WalletPrivateKey       string
	WalletKeystorePath     string
	WalletKeystorePassword string
	WalletAddress          string

	// Swap
	SlippageBps    uint16
	FallbackBps    uint16
	ReceiptTimeout time.Duration
	Deadline       time.Duration

	// Storage, both optional
	RedisAddr          string
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// Risk management
	RiskConfig RiskConfig

	// Injected collaborators, mostly for tests. When set they replace the
	// dialled client, the key-derived wallet and the storage connections.
	Backend rpc.Backend
	Wallet  Wallet
	Cache   storage.SwapCache
	Store   storage.SwapStore

	Logger *logrus.Logger
}

// DefaultEngineConfig returns Arbitrum Sepolia defaults
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		RPCURL:         constants.DefaultRPCURL,
		RetryPolicy:    rpc.DefaultRetryPolicy(),
		RouterAddress:  constants.CamelotRouter,
		Registry:       DefaultTokenRegistry(),
		SlippageBps:    50,
		FallbackBps:    200,
		ReceiptTimeout: 60 * time.Second,
		Deadline:       20 * time.Minute,
		RiskConfig:     DefaultRiskConfig(),
	}
}

// EngineConfigFromConfig maps the process configuration onto an EngineConfig
func EngineConfigFromConfig(cfg *config.Config, logger *logrus.Logger) EngineConfig {
	ec := DefaultEngineConfig()
	ec.RPCURL = cfg.RPCUrl
	ec.RetryPolicy = rpc.RetryPolicy{
		MaxAttempts:    cfg.RPCMaxAttempts,
		BaseDelay:      cfg.RPCRetryDelay,
		AttemptTimeout: cfg.RPCAttemptTimeout,
	}
	ec.RouterAddress = cfg.RouterAddress
	ec.Registry = NewTokenRegistry(Token{
		Symbol:   cfg.TokenSymbol,
		Address:  cfg.TokenAddress,
		Decimals: uint8(cfg.TokenDecimals),
	}, cfg.WrappedNativeAddress)
	ec.WalletPrivateKey = cfg.WalletPrivateKey
	ec.WalletKeystorePath = cfg.WalletKeystorePath
	ec.WalletKeystorePassword = cfg.WalletKeystorePassword
	ec.WalletAddress = cfg.WalletAddress
	ec.SlippageBps = uint16(cfg.SlippageBps)
	ec.FallbackBps = uint16(cfg.FallbackBps)
	ec.ReceiptTimeout = cfg.ReceiptTimeout
	ec.Deadline = cfg.SwapDeadline
	ec.RedisAddr = cfg.RedisAddr
	ec.ClickHouseAddr = cfg.ClickHouseAddr
	ec.ClickHouseDatabase = cfg.ClickHouseDatabase
	ec.ClickHouseUsername = cfg.ClickHouseUsername
	ec.ClickHousePassword = cfg.ClickHousePassword
	ec.RiskConfig = RiskConfig{
		MaxSwapAmountETH: cfg.MaxSwapETH,
		DailyLimitETH:    cfg.DailyLimitETH,
	}
	ec.Logger = logger
	return ec
}

// NewEngine creates a new swap engine with all dependencies
func NewEngine(ctx context.Context, cfg EngineConfig) (*Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Registry == nil {
		cfg.Registry = DefaultTokenRegistry()
	}
	if err := models.ValidateAddress(cfg.RouterAddress); err != nil {
		return nil, fmt.Errorf("router address: %w", err)
	}

	e := &Engine{
		registry:      cfg.Registry,
		walletAddress: cfg.WalletAddress,
		logger:        cfg.Logger,
	}

	// 1. Chain client
	backend := cfg.Backend
	if backend == nil {
		client, err := rpc.Dial(ctx, cfg.RPCURL)
		if err != nil {
			return nil, err
		}
		e.client = client
		backend = client
	}

	// 2. Resilient reader
	retrier := rpc.NewRetrier(rpc.RetrierConfig{Policy: cfg.RetryPolicy, Logger: cfg.Logger})
	e.reader = rpc.NewReader(backend, retrier, cfg.Logger)

	// 3. Wallet, optional
	e.wallet = cfg.Wallet
	if e.wallet == nil && e.client != nil {
		w, err := newKeyWallet(e.client, cfg)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("failed to create wallet: %w", err)
		}
		if w != nil {
			e.wallet = w
		}
	}
	if e.wallet != nil {
		e.walletAddress = e.wallet.Address().Hex()
	}

	// 4. Redis cache
	e.redisCache = cfg.Cache
	if e.redisCache == nil && cfg.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: cfg.RedisAddr, Logger: cfg.Logger})
		if err != nil {
			cfg.Logger.WithError(err).Warn("redis unavailable, swap journal disabled")
		} else {
			e.redisCache = rc
		}
	}

	// 5. ClickHouse
	e.clickhouse = cfg.Store
	if e.clickhouse == nil && cfg.ClickHouseAddr != "" {
		ch, err := cache.NewClickHouseStore(ctx, cache.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   cfg.Logger,
		})
		if err != nil {
			cfg.Logger.WithError(err).Warn("clickhouse unavailable, swap history disabled")
		} else {
			e.clickhouse = ch
		}
	}

	// 6. Decision engine
	e.decisionEngine = NewDecisionEngine(cfg.Registry)

	// 7. Risk manager
	e.riskManager = NewRiskManager(cfg.RiskConfig)

	// 8. Quoter
	e.quoter = NewQuoter(QuoterConfig{
		Reader:      e.reader,
		Registry:    cfg.Registry,
		Router:      cfg.RouterAddress,
		SlippageBps: cfg.SlippageBps,
		FallbackBps: cfg.FallbackBps,
		Logger:      cfg.Logger,
	})

	// 9. Executor
	var tx Transactor
	if e.wallet != nil {
		tx = e.wallet
	}
	e.executor = NewExecutor(ExecutorConfig{
		Transactor:     tx,
		Router:         cfg.RouterAddress,
		ReceiptTimeout: cfg.ReceiptTimeout,
		Deadline:       cfg.Deadline,
		Cache:          e.redisCache,
		Store:          e.clickhouse,
		Risk:           e.riskManager,
		Logger:         cfg.Logger,
	})

	return e, nil
}

// NewEngineFromEnv creates an engine using environment variables
func NewEngineFromEnv(ctx context.Context, logger *logrus.Logger) (*Engine, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return NewEngine(ctx, EngineConfigFromConfig(cfg, logger))
}

func newKeyWallet(client *ethclient.Client, cfg EngineConfig) (*wallet.Wallet, error) {
	var signer wallet.Signer
	switch {
	case strings.TrimSpace(cfg.WalletPrivateKey) != "":
		s, err := wallet.NewLocalSigner(cfg.WalletPrivateKey)
		if err != nil {
			return nil, err
		}
		signer = s
	case cfg.WalletKeystorePath != "":
		s, err := wallet.NewLocalSignerFromKeystore(cfg.WalletKeystorePath, cfg.WalletKeystorePassword)
		if err != nil {
			return nil, err
		}
		signer = s
	default:
		return nil, nil
	}
	return wallet.NewWallet(wallet.WalletConfig{Backend: client, Signer: signer, Logger: cfg.Logger})
}

// Quote validates a swap intent and prices it without executing
func (e *Engine) Quote(ctx context.Context, intent *SwapIntent) (*models.SwapQuote, error) {
	// 1. Validate and resolve symbols, before any network call
	params, err := e.decisionEngine.ParseIntent(intent)
	if err != nil {
		return nil, err
	}

	// 2. Price it
	quote, err := e.quoter.Quote(ctx, params.From.Address, params.To.Address, params.Amount)
	if err != nil {
		return nil, err
	}

	// 3. Risk limits
	if check := e.riskManager.CheckSwap(quote); !check.Allowed {
		return nil, fmt.Errorf("%w: %s", errs.ErrRiskRejected, check.Reason)
	}

	return quote, nil
}

// Execute runs a previously produced quote
func (e *Engine) Execute(ctx context.Context, quote *models.SwapQuote) (*SwapExecution, error) {
	return e.executor.Execute(ctx, quote)
}

// Balance reads the native balance of address, or its token balance when
// token is a supported token symbol or address.
func (e *Engine) Balance(ctx context.Context, address, token string) (models.TokenBalance, error) {
	tokenAddr := ""
	if token != "" {
		if t, ok := e.registry.BySymbol(token); ok {
			tokenAddr = t.Address
		} else {
			tokenAddr = token
		}
		if IsNative(tokenAddr) {
			tokenAddr = ""
		}
	}
	return e.reader.ReadBalance(ctx, address, tokenAddr)
}

// Transfer sends native currency from the engine's wallet. Transfers count
// against the same ETH limits as swaps.
func (e *Engine) Transfer(ctx context.Context, to, amountETH string) (string, error) {
	if e.wallet == nil {
		return "", errs.ErrNoSigner
	}
	if err := models.ValidateAddress(to); err != nil {
		return "", err
	}
	wei, err := amount.ParseUnits(amountETH, constants.NativeDecimals)
	if err != nil {
		return "", err
	}

	release, err := e.riskManager.Reserve(weiToETH(wei))
	if err != nil {
		return "", err
	}
	hash, err := e.wallet.Transfer(ctx, to, amountETH)
	if err != nil {
		release()
		return "", err
	}
	return hash.Hex(), nil
}

// RecentSwaps returns journaled swaps, newest first. Empty without Redis.
func (e *Engine) RecentSwaps(ctx context.Context, limit int64) ([]*models.SwapEvent, error) {
	if e.redisCache == nil {
		return []*models.SwapEvent{}, nil
	}
	return e.redisCache.GetRecentSwaps(ctx, limit)
}

// WalletAddress is the signer's address, or the configured read-only address.
func (e *Engine) WalletAddress() string {
	return e.walletAddress
}

func (e *Engine) HasSigner() bool {
	return e.executor.HasSigner()
}

func (e *Engine) Registry() *TokenRegistry {
	return e.registry
}

func (e *Engine) Cache() storage.SwapCache {
	return e.redisCache
}

// GetRiskStatus returns current risk limits and usage
func (e *Engine) GetRiskStatus() *RiskStatus {
	cfg := e.riskManager.Config()
	used := e.riskManager.DailyUsage()
	status := &RiskStatus{
		MaxSwapAmountETH: cfg.MaxSwapAmountETH,
		DailyLimitETH:    cfg.DailyLimitETH,
		DailyUsedETH:     used,
	}
	if cfg.DailyLimitETH > 0 {
		status.DailyRemainingETH = cfg.DailyLimitETH - used
	}
	return status
}

// Close cleans up all resources
func (e *Engine) Close() error {
	var closeErrs []error

	if e.redisCache != nil {
		if err := e.redisCache.Close(); err != nil {
			closeErrs = append(closeErrs, fmt.Errorf("redis close: %w", err))
		}
	}

	if e.clickhouse != nil {
		if err := e.clickhouse.Close(); err != nil {
			closeErrs = append(closeErrs, fmt.Errorf("clickhouse close: %w", err))
		}
	}

	if e.client != nil {
		e.client.Close()
	}

	if len(closeErrs) > 0 {
		return fmt.Errorf("close errors: %v", closeErrs)
	}

	return nil
}

type RiskStatus struct {
	MaxSwapAmountETH  float64 `json:"max_swap_amount_eth"`
	DailyLimitETH     float64 `json:"daily_limit_eth"`
	DailyUsedETH      float64 `json:"daily_used_eth"`
	DailyRemainingETH float64 `json:"daily_remaining_eth"`
}
