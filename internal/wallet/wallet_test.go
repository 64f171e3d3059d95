package wallet

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aman-zulfiqar/chattrade/internal/errs"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

type fakeTxBackend struct {
	mu sync.Mutex

	sent        []*types.Transaction
	sendErr     error
	notFoundFor int // TransactionReceipt returns NotFound this many times
	receipt     *types.Receipt
	polls       int
}

func (f *fakeTxBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(421614), nil
}

func (f *fakeTxBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.sent)), nil
}

func (f *fakeTxBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 100_000, nil
}

func (f *fakeTxBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return nil, errors.New("not supported")
}

func (f *fakeTxBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: big.NewInt(100_000_000)}, nil
}

func (f *fakeTxBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeTxBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.receipt == nil || f.polls <= f.notFoundFor {
		return nil, ethereum.NotFound
	}
	return f.receipt, nil
}

func newTestWallet(t *testing.T, b *fakeTxBackend) *Wallet {
	t.Helper()
	signer, err := NewLocalSigner(testKey)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	w, err := NewWallet(WalletConfig{
		Backend:      b,
		Signer:       signer,
		PollInterval: time.Millisecond,
		MaxPoll:      2 * time.Millisecond,
		Logger:       logger,
	})
	require.NoError(t, err)
	return w
}

func TestNewLocalSigner(t *testing.T) {
	s, err := NewLocalSigner(testKey)
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"), strings.ToLower(s.Address().Hex()))

	_, err = NewLocalSigner("")
	assert.Error(t, err)
	_, err = NewLocalSigner("0xzz")
	assert.Error(t, err)
}

func TestNewWallet_RequiresSigner(t *testing.T) {
	_, err := NewWallet(WalletConfig{Backend: &fakeTxBackend{}})
	assert.ErrorIs(t, err, errs.ErrNoSigner)
}

func TestTransact_BuildsSignedDynamicFeeTx(t *testing.T) {
	b := &fakeTxBackend{}
	w := newTestWallet(t, b)
	to := common.HexToAddress("0x" + strings.Repeat("ab", 20))

	hash, err := w.Transact(context.Background(), to, []byte{0x01, 0x02}, big.NewInt(5))
	require.NoError(t, err)
	require.Len(t, b.sent, 1)

	tx := b.sent[0]
	assert.Equal(t, hash, tx.Hash())
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	assert.Equal(t, uint64(120_000), tx.Gas())
	assert.Equal(t, big.NewInt(2_000_000_000), tx.GasTipCap())
	assert.Equal(t, big.NewInt(2_200_000_000), tx.GasFeeCap())
	assert.Equal(t, big.NewInt(5), tx.Value())
	assert.Equal(t, &to, tx.To())

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(421614)), tx)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), sender)
}

func TestTransact_BroadcastErrorIsNotRetried(t *testing.T) {
	b := &fakeTxBackend{sendErr: errors.New("nonce too low")}
	w := newTestWallet(t, b)

	_, err := w.Transact(context.Background(), common.Address{}, nil, nil)
	assert.ErrorContains(t, err, "nonce too low")
	assert.Empty(t, b.sent)
}

func TestTransfer_Validates(t *testing.T) {
	w := newTestWallet(t, &fakeTxBackend{})

	_, err := w.Transfer(context.Background(), "0x123", "1")
	assert.ErrorIs(t, err, errs.ErrInvalidAddress)

	_, err = w.Transfer(context.Background(), "0x"+strings.Repeat("ab", 20), "0")
	assert.ErrorIs(t, err, errs.ErrInvalidAmount)
}

func TestWaitMined_PollsUntilReceipt(t *testing.T) {
	b := &fakeTxBackend{notFoundFor: 2, receipt: &types.Receipt{Status: types.ReceiptStatusSuccessful}}
	w := newTestWallet(t, b)

	r, err := w.WaitMined(context.Background(), common.Hash{1}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, r.Status)
	assert.Equal(t, 3, b.polls)
}

func TestWaitMined_Timeout(t *testing.T) {
	w := newTestWallet(t, &fakeTxBackend{})

	_, err := w.WaitMined(context.Background(), common.Hash{2}, 20*time.Millisecond)
	assert.ErrorIs(t, err, errs.ErrTimeout)
}
