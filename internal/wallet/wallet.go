package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/aman-zulfiqar/chattrade/internal/amount"
	"github.com/aman-zulfiqar/chattrade/internal/errs"
	"github.com/aman-zulfiqar/chattrade/internal/models"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// TxBackend is the write side of an EVM JSON-RPC endpoint. *ethclient.Client
// satisfies it.
type TxBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

var _ TxBackend = (*ethclient.Client)(nil)

// WalletConfig holds configuration for a Wallet
type WalletConfig struct {
	Backend       TxBackend
	Signer        Signer
	GasMultiplier float64       // applied to eth_estimateGas, default 1.2
	PollInterval  time.Duration // first receipt poll delay, doubles up to MaxPoll
	MaxPoll       time.Duration
	Logger        *logrus.Logger
}

// Wallet submits transactions from one account. Submissions are serialised
// so concurrent callers never race on the pending nonce.
type Wallet struct {
	backend       TxBackend
	signer        Signer
	gasMultiplier float64
	pollInterval  time.Duration
	maxPoll       time.Duration
	logger        *logrus.Logger

	mu      sync.Mutex
	chainID *big.Int
}

func NewWallet(cfg WalletConfig) (*Wallet, error) {
	if cfg.Backend == nil {
		return nil, errors.New("wallet backend is nil")
	}
	if cfg.Signer == nil {
		return nil, errs.ErrNoSigner
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.GasMultiplier <= 0 {
		cfg.GasMultiplier = 1.2
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.MaxPoll <= 0 {
		cfg.MaxPoll = 4 * time.Second
	}

	return &Wallet{
		backend:       cfg.Backend,
		signer:        cfg.Signer,
		gasMultiplier: cfg.GasMultiplier,
		pollInterval:  cfg.PollInterval,
		maxPoll:       cfg.MaxPoll,
		logger:        cfg.Logger,
	}, nil
}

func (w *Wallet) Address() common.Address {
	return w.signer.Address()
}

// Transact builds, signs and broadcasts an EIP-1559 transaction. It is
// never retried here; a failed broadcast is returned as is.
func (w *Wallet) Transact(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if value == nil {
		value = new(big.Int)
	}
	from := w.signer.Address()

	chainID, err := w.chainIDLocked(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	msg := ethereum.CallMsg{From: from, To: &to, Value: value, Data: data}
	gasLimit, err := w.backend.EstimateGas(ctx, msg)
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}
	gasLimit = uint64(float64(gasLimit) * w.gasMultiplier)

	tipCap, err := w.backend.SuggestGasTipCap(ctx)
	if err != nil {
		tipCap = big.NewInt(2_000_000_000) // 2 gwei
	}
	header, err := w.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("fetch latest header: %w", err)
	}
	baseFee := header.BaseFee
	if baseFee == nil {
		baseFee = big.NewInt(1_000_000_000)
	}
	feeCap := new(big.Int).Mul(baseFee, big.NewInt(2))
	feeCap.Add(feeCap, tipCap)

	nonce, err := w.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("fetch nonce: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &to,
		Value:     value,
		Data:      data,
	})
	signed, err := w.signer.SignTx(chainID, tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}
	if err := w.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("broadcast transaction: %w", err)
	}

	w.logger.WithFields(logrus.Fields{
		"tx_hash": signed.Hash().Hex(),
		"to":      to.Hex(),
		"nonce":   nonce,
		"gas":     gasLimit,
	}).Info("transaction submitted")

	return signed.Hash(), nil
}

// Transfer sends native currency. amountETH is in human units.
func (w *Wallet) Transfer(ctx context.Context, to, amountETH string) (common.Hash, error) {
	if err := models.ValidateAddress(to); err != nil {
		return common.Hash{}, err
	}
	wei, err := amount.ParseUnits(amountETH, 18)
	if err != nil {
		return common.Hash{}, err
	}
	if wei.Sign() == 0 {
		return common.Hash{}, fmt.Errorf("%w: amount must be > 0", errs.ErrInvalidAmount)
	}
	return w.Transact(ctx, common.HexToAddress(to), nil, wei)
}

// WaitMined polls for a receipt until timeout. Polling errors other than
// "not found" are tolerated until the deadline.
func (w *Wallet) WaitMined(ctx context.Context, hash common.Hash, timeout time.Duration) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	backoff := w.pollInterval
	for {
		receipt, err := w.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) && ctx.Err() == nil {
			w.logger.WithField("tx_hash", hash.Hex()).WithError(err).Debug("receipt poll failed")
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %s after %v", errs.ErrTimeout, hash.Hex(), timeout)
			}
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > w.maxPoll {
				backoff = w.maxPoll
			}
		}
	}
}

func (w *Wallet) chainIDLocked(ctx context.Context) (*big.Int, error) {
	if w.chainID != nil {
		return w.chainID, nil
	}
	id, err := w.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("read chain id: %w", err)
	}
	w.chainID = id
	return id, nil
}
