package rpc

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aman-zulfiqar/chattrade/internal/contracts"
	"github.com/aman-zulfiqar/chattrade/internal/errs"
	"github.com/aman-zulfiqar/chattrade/internal/models"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testOwner = "0x" + strings.Repeat("11", 20)
	testToken = "0x" + strings.Repeat("22", 20)

	errFlaky = errors.New("connection reset")
)

type fakeBackend struct {
	mu sync.Mutex

	balance     *big.Int
	balanceErrs int // fail this many BalanceAt calls first
	code        []byte
	callErr     error
	outputs     map[string][]byte // keyed by method name

	balanceCalls int
	codeCalls    int
	callCalls    int
}

func (f *fakeBackend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balanceCalls++
	if f.balanceCalls <= f.balanceErrs {
		return nil, errFlaky
	}
	return f.balance, nil
}

func (f *fakeBackend) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codeCalls++
	return f.code, nil
}

func (f *fakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCalls++
	if f.callErr != nil {
		return nil, f.callErr
	}
	for name, method := range contracts.ERC20.Methods {
		if bytes.HasPrefix(call.Data, method.ID) {
			return f.outputs[name], nil
		}
	}
	return nil, errors.New("unexpected call")
}

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balanceCalls + f.codeCalls + f.callCalls
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func newTestReader(b Backend, rec *sleepRecorder) *Reader {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	retrier := NewRetrier(RetrierConfig{
		Policy: DefaultRetryPolicy(),
		Sleep:  rec.Sleep,
		Logger: logger,
	})
	return NewReader(b, retrier, logger)
}

func packOutput(t *testing.T, method string, v any) []byte {
	t.Helper()
	out, err := contracts.ERC20.Methods[method].Outputs.Pack(v)
	require.NoError(t, err)
	return out
}

func TestReadBalance_InvalidAddressMakesNoCalls(t *testing.T) {
	b := &fakeBackend{}
	r := newTestReader(b, &sleepRecorder{})

	_, err := r.ReadBalance(context.Background(), "0x123", "")
	assert.ErrorIs(t, err, errs.ErrInvalidAddress)

	_, err = r.ReadBalance(context.Background(), "0x123", testToken)
	assert.ErrorIs(t, err, errs.ErrInvalidAddress)

	assert.Zero(t, b.calls())
}

func TestReadBalance_Native(t *testing.T) {
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	b := &fakeBackend{balance: wei}
	r := newTestReader(b, &sleepRecorder{})

	bal, err := r.ReadBalance(context.Background(), testOwner, "")
	require.NoError(t, err)
	assert.Equal(t, models.TokenBalance{Symbol: "ETH", Balance: "1.5", Decimals: 18}, bal)
}

func TestReadBalance_NativeRetriesWithLinearBackoff(t *testing.T) {
	b := &fakeBackend{balance: big.NewInt(0), balanceErrs: 2}
	rec := &sleepRecorder{}
	r := newTestReader(b, rec)

	bal, err := r.ReadBalance(context.Background(), testOwner, "")
	require.NoError(t, err)
	assert.Equal(t, "0", bal.Balance)
	assert.Equal(t, 3, b.balanceCalls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.delays)
}

func TestReadBalance_NativeExhaustedPropagates(t *testing.T) {
	b := &fakeBackend{balanceErrs: 100}
	rec := &sleepRecorder{}
	r := newTestReader(b, rec)

	_, err := r.ReadBalance(context.Background(), testOwner, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrNetworkExhausted)
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 3, b.balanceCalls)
	assert.Len(t, rec.delays, 2)
}

func TestReadBalance_TokenWithoutCodeIsUnknown(t *testing.T) {
	b := &fakeBackend{code: nil}
	r := newTestReader(b, &sleepRecorder{})

	bal, err := r.ReadBalance(context.Background(), testOwner, testToken)
	require.NoError(t, err)
	assert.Equal(t, models.TokenBalance{Symbol: "UNKNOWN", Balance: "0", Decimals: 18}, bal)
	assert.Zero(t, b.callCalls)
}

func TestReadBalance_Token(t *testing.T) {
	b := &fakeBackend{
		code: []byte{0x60, 0x80},
		outputs: map[string][]byte{
			"balanceOf": packOutput(t, "balanceOf", big.NewInt(12_345_000)),
			"symbol":    packOutput(t, "symbol", "USDC"),
			"decimals":  packOutput(t, "decimals", uint8(6)),
		},
	}
	r := newTestReader(b, &sleepRecorder{})

	bal, err := r.ReadBalance(context.Background(), testOwner, testToken)
	require.NoError(t, err)
	assert.Equal(t, models.TokenBalance{Symbol: "USDC", Balance: "12.345", Decimals: 6}, bal)
	assert.Equal(t, 3, b.callCalls)
}

func TestReadBalance_TokenCallFailureIsUnknown(t *testing.T) {
	b := &fakeBackend{code: []byte{0x60}, callErr: errFlaky}
	r := newTestReader(b, &sleepRecorder{})

	bal, err := r.ReadBalance(context.Background(), testOwner, testToken)
	require.NoError(t, err)
	assert.True(t, bal.IsUnknown())
}

func TestReadBalance_MalformedTokenIsUnknown(t *testing.T) {
	b := &fakeBackend{}
	r := newTestReader(b, &sleepRecorder{})

	bal, err := r.ReadBalance(context.Background(), testOwner, "0xnope")
	require.NoError(t, err)
	assert.True(t, bal.IsUnknown())
	assert.Zero(t, b.calls())
}

func TestReadContractValue_InvalidContract(t *testing.T) {
	r := newTestReader(&fakeBackend{}, &sleepRecorder{})
	_, err := r.ReadContractValue(context.Background(), "bad", contracts.ERC20, "symbol")
	assert.ErrorIs(t, err, errs.ErrInvalidAddress)
}
