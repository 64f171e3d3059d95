package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/aman-zulfiqar/chattrade/internal/amount"
	"github.com/aman-zulfiqar/chattrade/internal/contracts"
	"github.com/aman-zulfiqar/chattrade/internal/errs"
	"github.com/aman-zulfiqar/chattrade/internal/models"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Backend is the read side of an EVM JSON-RPC endpoint. *ethclient.Client
// satisfies it.
type Backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

var _ Backend = (*ethclient.Client)(nil)

// Dial connects to an EVM JSON-RPC endpoint.
func Dial(ctx context.Context, url string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc %s: %w", url, err)
	}
	return client, nil
}

// Reader resolves balances and contract values through a Retrier.
type Reader struct {
	backend Backend
	retrier *Retrier
	logger  *logrus.Logger
}

func NewReader(backend Backend, retrier *Retrier, logger *logrus.Logger) *Reader {
	if logger == nil {
		logger = logrus.New()
	}
	if retrier == nil {
		retrier = NewRetrier(RetrierConfig{Policy: DefaultRetryPolicy(), Logger: logger})
	}
	return &Reader{backend: backend, retrier: retrier, logger: logger}
}

// ReadBalance returns the native balance of address when tokenAddress is
// empty, otherwise its ERC20 balance. Native failures propagate; token
// failures degrade to models.UnknownBalance.
func (r *Reader) ReadBalance(ctx context.Context, address, tokenAddress string) (models.TokenBalance, error) {
	if err := models.ValidateAddress(address); err != nil {
		return models.TokenBalance{}, err
	}
	owner := common.HexToAddress(address)

	if tokenAddress == "" {
		wei, err := Retry(ctx, r.retrier, "eth_getBalance", func(ctx context.Context) (*big.Int, error) {
			return r.backend.BalanceAt(ctx, owner, nil)
		})
		if err != nil {
			return models.TokenBalance{}, fmt.Errorf("read native balance: %w", err)
		}
		return models.TokenBalance{Symbol: "ETH", Balance: amount.FormatUnits(wei, 18), Decimals: 18}, nil
	}

	bal, err := r.readTokenBalance(ctx, owner, tokenAddress)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"address": address,
			"token":   tokenAddress,
		}).WithError(err).Warn("token balance unavailable")
		return models.UnknownBalance(), nil
	}
	return bal, nil
}

func (r *Reader) readTokenBalance(ctx context.Context, owner common.Address, tokenAddress string) (models.TokenBalance, error) {
	if err := models.ValidateAddress(tokenAddress); err != nil {
		return models.TokenBalance{}, err
	}
	token := common.HexToAddress(tokenAddress)

	code, err := Retry(ctx, r.retrier, "eth_getCode", func(ctx context.Context) ([]byte, error) {
		return r.backend.CodeAt(ctx, token, nil)
	})
	if err != nil {
		return models.TokenBalance{}, err
	}
	if len(code) == 0 {
		return models.TokenBalance{}, fmt.Errorf("%w: %s", errs.ErrContractNotFound, tokenAddress)
	}

	var (
		raw      *big.Int
		symbol   string
		decimals uint8
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := r.ReadContractValue(gctx, tokenAddress, contracts.ERC20, "balanceOf", owner)
		if err != nil {
			return err
		}
		return unpackOne(out, &raw)
	})
	g.Go(func() error {
		out, err := r.ReadContractValue(gctx, tokenAddress, contracts.ERC20, "symbol")
		if err != nil {
			return err
		}
		return unpackOne(out, &symbol)
	})
	g.Go(func() error {
		out, err := r.ReadContractValue(gctx, tokenAddress, contracts.ERC20, "decimals")
		if err != nil {
			return err
		}
		return unpackOne(out, &decimals)
	})
	if err := g.Wait(); err != nil {
		return models.TokenBalance{}, err
	}

	return models.TokenBalance{
		Symbol:   symbol,
		Balance:  amount.FormatUnits(raw, decimals),
		Decimals: decimals,
	}, nil
}

// ReadContractValue performs a retried eth_call and returns the unpacked outputs.
func (r *Reader) ReadContractValue(ctx context.Context, contract string, parsed abi.ABI, method string, args ...any) ([]any, error) {
	if err := models.ValidateAddress(contract); err != nil {
		return nil, err
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	to := common.HexToAddress(contract)

	raw, err := Retry(ctx, r.retrier, "eth_call:"+method, func(ctx context.Context) ([]byte, error) {
		return r.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	})
	if err != nil {
		return nil, err
	}

	out, err := parsed.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

func unpackOne[T any](out []any, dst *T) error {
	if len(out) != 1 {
		return fmt.Errorf("expected 1 output, got %d", len(out))
	}
	v, ok := out[0].(T)
	if !ok {
		return errors.New("unexpected output type")
	}
	*dst = v
	return nil
}
