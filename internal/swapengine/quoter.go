package swapengine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/aman-zulfiqar/chattrade/internal/amount"
	"github.com/aman-zulfiqar/chattrade/internal/contracts"
	"github.com/aman-zulfiqar/chattrade/internal/errs"
	"github.com/aman-zulfiqar/chattrade/internal/models"
	"github.com/aman-zulfiqar/chattrade/internal/rpc"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// PriceImpact is reported verbatim on every quote. The router path does not
// compute a real value yet.
const PriceImpact = "2.00"

// QuoterConfig holds configuration for the Quoter
type QuoterConfig struct {
	Reader      *rpc.Reader
	Registry    *TokenRegistry
	Router      string
	SlippageBps uint16 // minimum received = out * (10000 - SlippageBps) / 10000
	FallbackBps uint16 // haircut on the 1:1 notional when the router is unreachable
	Logger      *logrus.Logger
}

type Quoter struct {
	reader      *rpc.Reader
	registry    *TokenRegistry
	router      string
	slippageBps uint16
	fallbackBps uint16
	logger      *logrus.Logger
}

func NewQuoter(cfg QuoterConfig) *Quoter {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Registry == nil {
		cfg.Registry = DefaultTokenRegistry()
	}
	return &Quoter{
		reader:      cfg.Reader,
		registry:    cfg.Registry,
		router:      cfg.Router,
		slippageBps: cfg.SlippageBps,
		fallbackBps: cfg.FallbackBps,
		logger:      cfg.Logger,
	}
}

// Quote prices amount of from in terms of to. from and to are canonical
// addresses: constants.NativeToken for ETH, otherwise the reference token.
func (q *Quoter) Quote(ctx context.Context, from, to, amountStr string) (*models.SwapQuote, error) {
	fromTok, fromOK := q.registry.ByAddress(from)
	toTok, toOK := q.registry.ByAddress(to)
	if !fromOK || !toOK || fromTok.Address == toTok.Address {
		return nil, fmt.Errorf("%w: %s/%s", errs.ErrUnsupportedPair, from, to)
	}

	amountIn, err := amount.ParseUnits(amountStr, fromTok.Decimals)
	if err != nil {
		return nil, err
	}
	if amountIn.Sign() == 0 {
		return nil, fmt.Errorf("%w: amount must be > 0", errs.ErrInvalidAmount)
	}

	path := []string{q.registry.RouterAddress(fromTok.Address), q.registry.RouterAddress(toTok.Address)}

	fallback := false
	amountOut, err := q.amountsOut(ctx, amountIn, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		q.logger.WithFields(logrus.Fields{
			"from":   fromTok.Symbol,
			"to":     toTok.Symbol,
			"amount": amountStr,
		}).WithError(err).Warn("router quote unavailable, using fallback estimate")

		amountOut = amount.ApplyBps(amount.Rescale(amountIn, fromTok.Decimals, toTok.Decimals), q.fallbackBps)
		fallback = true
	}

	minOut := amount.ApplyBps(amountOut, q.slippageBps)

	return &models.SwapQuote{
		InputAmount:     amount.FormatUnits(amountIn, fromTok.Decimals),
		OutputAmount:    amount.FormatUnits(amountOut, toTok.Decimals),
		ExecutionPrice:  amount.Ratio(amountOut, toTok.Decimals, amountIn, fromTok.Decimals, 6),
		PriceImpact:     PriceImpact,
		MinimumReceived: amount.FormatUnits(minOut, toTok.Decimals),
		Route: models.Route{
			From: fromTok.Address,
			To:   toTok.Address,
			Path: path,
		},
		FromSymbol: fromTok.Symbol,
		ToSymbol:   toTok.Symbol,
		AmountIn:   amountIn,
		AmountOut:  amountOut,
		MinimumOut: minOut,
		Fallback:   fallback,
		QuotedAt:   time.Now(),
	}, nil
}

func (q *Quoter) amountsOut(ctx context.Context, amountIn *big.Int, path []string) (*big.Int, error) {
	if q.reader == nil {
		return nil, errors.New("no chain reader configured")
	}
	addrs := make([]common.Address, len(path))
	for i, p := range path {
		addrs[i] = common.HexToAddress(p)
	}

	out, err := q.reader.ReadContractValue(ctx, q.router, contracts.Router, "getAmountsOut", amountIn, addrs)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("getAmountsOut: expected 1 output, got %d", len(out))
	}
	amounts, ok := out[0].([]*big.Int)
	if !ok || len(amounts) < 2 {
		return nil, fmt.Errorf("getAmountsOut: unexpected result %v", out[0])
	}
	return amounts[len(amounts)-1], nil
}
