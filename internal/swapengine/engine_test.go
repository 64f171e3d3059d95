package swapengine

import (
	"context"
	"strings"
	"testing"

	"github.com/aman-zulfiqar/chattrade/internal/config"
	"github.com/aman-zulfiqar/chattrade/internal/constants"
	"github.com/aman-zulfiqar/chattrade/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, mutate func(*EngineConfig)) (*Engine, *routerBackend, *fakeTransactor) {
	t.Helper()
	b := newRouterBackend()
	tx := newFakeTransactor()

	cfg := DefaultEngineConfig()
	cfg.Backend = b
	cfg.Wallet = tx
	cfg.Logger = quietLogger()
	if mutate != nil {
		mutate(&cfg)
	}

	e, err := NewEngine(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e, b, tx
}

func TestEngine_QuoteAndExecute(t *testing.T) {
	journal := &memJournal{}
	e, _, tx := newTestEngine(t, func(c *EngineConfig) {
		c.Cache = journal
		c.Store = journal
	})
	ctx := context.Background()

	assert.True(t, e.HasSigner())
	assert.Equal(t, tx.Address().Hex(), e.WalletAddress())

	quote, err := e.Quote(ctx, &SwapIntent{InputToken: "ETH", OutputToken: "USDC", Amount: "1"})
	require.NoError(t, err)
	assert.Equal(t, "1850.123456", quote.OutputAmount)

	exec, err := e.Execute(ctx, quote)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, exec.State)

	recent, err := e.RecentSwaps(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, exec.TxHash, recent[0].TxHash)

	status := e.GetRiskStatus()
	assert.InDelta(t, 1.0, status.DailyUsedETH, 1e-9)
}

func TestEngine_QuoteValidatesBeforeNetwork(t *testing.T) {
	e, b, _ := newTestEngine(t, nil)

	_, err := e.Quote(context.Background(), &SwapIntent{InputToken: "ETH", OutputToken: "ETH", Amount: "1"})
	assert.ErrorIs(t, err, ErrSameToken)
	assert.Zero(t, b.callCount())
}

func TestEngine_RiskRejection(t *testing.T) {
	e, _, tx := newTestEngine(t, func(c *EngineConfig) {
		c.RiskConfig = RiskConfig{MaxSwapAmountETH: 0.5}
	})

	_, err := e.Quote(context.Background(), &SwapIntent{InputToken: "ETH", OutputToken: "USDC", Amount: "2"})
	assert.ErrorIs(t, err, errs.ErrRiskRejected)
	assert.Empty(t, tx.methods())
}

func TestEngine_WithoutWallet(t *testing.T) {
	e, _, _ := newTestEngine(t, func(c *EngineConfig) {
		c.Wallet = nil
		c.WalletAddress = "0x" + "11" + constants.NativeToken[4:]
	})
	ctx := context.Background()

	assert.False(t, e.HasSigner())
	assert.Equal(t, "0x"+"11"+constants.NativeToken[4:], e.WalletAddress())

	_, err := e.Transfer(ctx, constants.USDCAddress, "1")
	assert.ErrorIs(t, err, errs.ErrNoSigner)

	recent, err := e.RecentSwaps(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestEngine_TransferCountsAgainstLimits(t *testing.T) {
	e, _, tx := newTestEngine(t, func(c *EngineConfig) {
		c.RiskConfig = RiskConfig{MaxSwapAmountETH: 1, DailyLimitETH: 1.5}
	})
	ctx := context.Background()
	to := "0x" + strings.Repeat("cd", 20)

	_, err := e.Transfer(ctx, to, "5")
	assert.ErrorIs(t, err, errs.ErrRiskRejected)
	assert.Empty(t, tx.methods())

	hash, err := e.Transfer(ctx, to, "1")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.InDelta(t, 1.0, e.GetRiskStatus().DailyUsedETH, 1e-9)

	// the transfer used the daily headroom a swap would need
	_, err = e.Transfer(ctx, to, "0.75")
	assert.ErrorIs(t, err, errs.ErrRiskRejected)
	assert.Len(t, tx.methods(), 1)

	_, err = e.Transfer(ctx, "0x1234", "0.1")
	assert.ErrorIs(t, err, errs.ErrInvalidAddress)
	_, err = e.Transfer(ctx, to, "abc")
	assert.ErrorIs(t, err, errs.ErrInvalidAmount)
}

func TestEngine_Balance(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)

	bal, err := e.Balance(context.Background(), e.WalletAddress(), "")
	require.NoError(t, err)
	assert.Equal(t, "ETH", bal.Symbol)
	assert.Equal(t, "0", bal.Balance)

	bal, err = e.Balance(context.Background(), e.WalletAddress(), "eth")
	require.NoError(t, err)
	assert.Equal(t, "ETH", bal.Symbol)

	_, err = e.Balance(context.Background(), "0x123", "")
	assert.ErrorIs(t, err, errs.ErrInvalidAddress)
}

func TestNewEngine_RejectsBadRouter(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.Backend = newRouterBackend()
	cfg.RouterAddress = "camelot"
	_, err := NewEngine(context.Background(), cfg)
	assert.ErrorIs(t, err, errs.ErrInvalidAddress)
}

func TestEngineConfigFromConfig(t *testing.T) {
	cfg := config.Load()
	cfg.SlippageBps = 75
	cfg.MaxSwapETH = 2

	ec := EngineConfigFromConfig(cfg, quietLogger())
	assert.Equal(t, uint16(75), ec.SlippageBps)
	assert.Equal(t, 2.0, ec.RiskConfig.MaxSwapAmountETH)
	assert.Equal(t, cfg.TokenSymbol, ec.Registry.Reference().Symbol)
	assert.Equal(t, cfg.RPCMaxAttempts, ec.RetryPolicy.MaxAttempts)
}
