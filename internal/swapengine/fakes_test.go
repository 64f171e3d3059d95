package swapengine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/aman-zulfiqar/chattrade/internal/constants"
	"github.com/aman-zulfiqar/chattrade/internal/contracts"
	"github.com/aman-zulfiqar/chattrade/internal/errs"
	"github.com/aman-zulfiqar/chattrade/internal/models"
	"github.com/aman-zulfiqar/chattrade/internal/rpc"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

var errRPCDown = errors.New("dial tcp: connection refused")

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// routerBackend answers getAmountsOut with a fixed rate per input token.
type routerBackend struct {
	mu sync.Mutex

	// output units per whole input unit, keyed by checksummed path[0]
	rates map[string]*big.Int
	err   error
	calls int
}

func newRouterBackend() *routerBackend {
	return &routerBackend{rates: map[string]*big.Int{
		// 1 ETH -> 1850.123456 USDC
		checksum(constants.WETHAddress): big.NewInt(1_850_123_456),
		// 1 USDC -> 0.0005 ETH
		checksum(constants.USDCAddress): big.NewInt(500_000_000_000_000),
	}}
}

func (b *routerBackend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (b *routerBackend) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (b *routerBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.err != nil {
		return nil, b.err
	}

	method := contracts.Router.Methods["getAmountsOut"]
	if !bytes.HasPrefix(call.Data, method.ID) {
		return nil, errors.New("unexpected call")
	}
	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}
	in := args[0].(*big.Int)
	path := args[1].([]common.Address)

	rate, ok := b.rates[checksum(path[0].Hex())]
	if !ok {
		return nil, fmt.Errorf("no pool for %s", path[0].Hex())
	}
	scale := constants.NativeDecimals
	if !bytes.Equal(path[0].Bytes(), common.HexToAddress(constants.WETHAddress).Bytes()) {
		scale = 6
	}
	out := new(big.Int).Mul(in, rate)
	out.Quo(out, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil))

	return method.Outputs.Pack([]*big.Int{in, out})
}

func (b *routerBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func newTestQuoter(b rpc.Backend) *Quoter {
	logger := quietLogger()
	retrier := rpc.NewRetrier(rpc.RetrierConfig{
		Policy: rpc.DefaultRetryPolicy(),
		Sleep:  func(ctx context.Context, d time.Duration) error { return ctx.Err() },
		Logger: logger,
	})
	return NewQuoter(QuoterConfig{
		Reader:      rpc.NewReader(b, retrier, logger),
		Registry:    DefaultTokenRegistry(),
		Router:      constants.CamelotRouter,
		SlippageBps: 50,
		FallbackBps: 200,
		Logger:      logger,
	})
}

type sentTx struct {
	to    common.Address
	data  []byte
	value *big.Int
}

func (s sentTx) method() string {
	for name, m := range contracts.Router.Methods {
		if bytes.HasPrefix(s.data, m.ID) {
			return name
		}
	}
	for name, m := range contracts.ERC20.Methods {
		if bytes.HasPrefix(s.data, m.ID) {
			return name
		}
	}
	return "unknown"
}

// fakeTransactor records submissions and mines them with scripted statuses.
type fakeTransactor struct {
	mu sync.Mutex

	from      common.Address
	sent      []sentTx
	submitErr map[string]error  // by method
	statuses  map[string]uint64 // by method, default success
	waitErr   error
	hashes    map[common.Hash]string
}

func newFakeTransactor() *fakeTransactor {
	return &fakeTransactor{
		from:      common.HexToAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"),
		submitErr: map[string]error{},
		statuses:  map[string]uint64{},
		hashes:    map[common.Hash]string{},
	}
}

func (f *fakeTransactor) Address() common.Address { return f.from }

func (f *fakeTransactor) Transact(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx := sentTx{to: to, data: data, value: value}
	if err := f.submitErr[tx.method()]; err != nil {
		return common.Hash{}, err
	}
	f.sent = append(f.sent, tx)
	hash := common.BigToHash(big.NewInt(int64(len(f.sent))))
	f.hashes[hash] = tx.method()
	return hash, nil
}

func (f *fakeTransactor) WaitMined(ctx context.Context, hash common.Hash, timeout time.Duration) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	status, ok := f.statuses[f.hashes[hash]]
	if !ok {
		status = types.ReceiptStatusSuccessful
	}
	return &types.Receipt{TxHash: hash, Status: status}, nil
}

// Transfer lets fakeTransactor stand in for a full Wallet.
func (f *fakeTransactor) Transfer(ctx context.Context, to, amountETH string) (common.Hash, error) {
	if err := models.ValidateAddress(to); err != nil {
		return common.Hash{}, err
	}
	return f.Transact(ctx, common.HexToAddress(to), nil, big.NewInt(1))
}

func (f *fakeTransactor) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, s := range f.sent {
		out[i] = s.method()
	}
	return out
}

// memJournal is an in-memory SwapCache and SwapStore.
type memJournal struct {
	mu     sync.Mutex
	recent []*models.SwapEvent
	pubs   int
	rows   int
}

func (m *memJournal) AddRecentSwap(ctx context.Context, ev *models.SwapEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recent = append([]*models.SwapEvent{ev}, m.recent...)
	return nil
}

func (m *memJournal) GetRecentSwaps(ctx context.Context, limit int64) ([]*models.SwapEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int64(len(m.recent)) < limit {
		limit = int64(len(m.recent))
	}
	return m.recent[:limit], nil
}

func (m *memJournal) PublishSwap(ctx context.Context, ev *models.SwapEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pubs++
	return nil
}

func (m *memJournal) SubscribeSwaps(ctx context.Context) (<-chan *models.SwapEvent, error) {
	return nil, errs.ErrSwapsDisabled
}

func (m *memJournal) InsertSwap(ctx context.Context, ev *models.SwapEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows++
	return nil
}

func (m *memJournal) Ping(ctx context.Context) error { return nil }
func (m *memJournal) Close() error                   { return nil }

func checksum(s string) string {
	return common.HexToAddress(s).Hex()
}
