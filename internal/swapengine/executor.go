package swapengine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/aman-zulfiqar/chattrade/internal/contracts"
	"github.com/aman-zulfiqar/chattrade/internal/errs"
	"github.com/aman-zulfiqar/chattrade/internal/models"
	"github.com/aman-zulfiqar/chattrade/internal/storage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// errTxFailed is a mined receipt with a failure status.
var errTxFailed = errors.New("status failed")

// Transactor submits state-changing transactions and waits for receipts.
// Implementations must not retry submissions.
type Transactor interface {
	Address() common.Address
	Transact(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error)
	WaitMined(ctx context.Context, hash common.Hash, timeout time.Duration) (*types.Receipt, error)
}

// ExecutorConfig holds configuration for the Executor
type ExecutorConfig struct {
	Transactor     Transactor // nil means no signer; Execute fails with errs.ErrNoSigner
	Router         string
	ReceiptTimeout time.Duration
	Deadline       time.Duration

	Cache storage.SwapCache // optional
	Store storage.SwapStore // optional
	Risk  *RiskManager      // optional

	Logger *logrus.Logger
	Now    func() time.Time
}

type Executor struct {
	tx             Transactor
	router         common.Address
	routerHex      string
	receiptTimeout time.Duration
	deadline       time.Duration

	cache storage.SwapCache
	store storage.SwapStore
	risk  *RiskManager

	logger *logrus.Logger
	now    func() time.Time
}

func NewExecutor(cfg ExecutorConfig) *Executor {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ReceiptTimeout <= 0 {
		cfg.ReceiptTimeout = 60 * time.Second
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = 20 * time.Minute
	}
	return &Executor{
		tx:             cfg.Transactor,
		router:         common.HexToAddress(cfg.Router),
		routerHex:      cfg.Router,
		receiptTimeout: cfg.ReceiptTimeout,
		deadline:       cfg.Deadline,
		cache:          cfg.Cache,
		store:          cfg.Store,
		risk:           cfg.Risk,
		logger:         cfg.Logger,
		now:            cfg.Now,
	}
}

// HasSigner reports whether Execute can submit transactions.
func (e *Executor) HasSigner() bool {
	return e.tx != nil
}

// Execute runs one swap to a terminal state. A native-origin swap is a
// single router call; a token-origin swap approves the router first and
// only swaps once the approval is confirmed. Nothing is resubmitted.
//
// The returned execution is non-nil whenever a transaction was attempted,
// including on failure.
func (e *Executor) Execute(ctx context.Context, quote *models.SwapQuote) (*SwapExecution, error) {
	if quote == nil {
		return nil, errs.ErrNoPendingSwap
	}
	if e.tx == nil {
		return nil, errs.ErrNoSigner
	}
	if quote.AmountIn == nil || quote.MinimumOut == nil || len(quote.Route.Path) < 2 {
		return nil, fmt.Errorf("%w: quote is incomplete", errs.ErrInvalidAmount)
	}

	start := e.now()
	exec := &SwapExecution{
		ID:        uuid.NewString(),
		State:     StateStart,
		Quote:     quote,
		Deadline:  start.Add(e.deadline),
		StartedAt: start,
	}
	log := e.logger.WithFields(logrus.Fields{
		"execution_id": exec.ID,
		"pair":         quote.FromSymbol + "/" + quote.ToSymbol,
		"amount_in":    quote.InputAmount,
	})

	// Limits are reserved before anything is sent. The reservation is kept
	// once a swap may have moved funds: mined, or submitted with no receipt.
	spent := false
	if e.risk != nil {
		release, err := e.risk.Reserve(swapValueETH(quote))
		if err != nil {
			return nil, err
		}
		defer func() {
			if !spent {
				release()
			}
		}()
	}

	// receipts are awaited even if the caller goes away
	waitCtx := context.WithoutCancel(ctx)

	path := make([]common.Address, len(quote.Route.Path))
	for i, p := range quote.Route.Path {
		path[i] = common.HexToAddress(p)
	}
	recipient := e.tx.Address()
	deadline := big.NewInt(exec.Deadline.Unix())

	var swapHash common.Hash
	if IsNative(quote.Route.From) {
		data, err := contracts.Router.Pack("swapExactETHForTokens", quote.MinimumOut, path, recipient, deadline)
		if err != nil {
			return e.fail(ctx, exec, errs.ErrSwapReverted, fmt.Errorf("pack swap: %w", err))
		}
		swapHash, err = e.tx.Transact(ctx, e.router, data, quote.AmountIn)
		if err != nil {
			return e.fail(ctx, exec, errs.ErrSwapReverted, err)
		}
	} else {
		token := common.HexToAddress(quote.Route.From)
		data, err := contracts.ERC20.Pack("approve", e.router, quote.AmountIn)
		if err != nil {
			return e.fail(ctx, exec, errs.ErrApprovalFailed, fmt.Errorf("pack approve: %w", err))
		}
		approveHash, err := e.tx.Transact(ctx, token, data, big.NewInt(0))
		if err != nil {
			return e.fail(ctx, exec, errs.ErrApprovalFailed, err)
		}
		exec.ApprovalTxHash = approveHash.Hex()
		e.transition(log, exec, StateAwaitingApprovalReceipt)

		if err := e.awaitSuccess(waitCtx, approveHash); err != nil {
			return e.fail(ctx, exec, errs.ErrApprovalFailed, err)
		}

		data, err = contracts.Router.Pack("swapExactTokensForETH", quote.AmountIn, quote.MinimumOut, path, recipient, deadline)
		if err != nil {
			return e.fail(ctx, exec, errs.ErrSwapReverted, fmt.Errorf("pack swap: %w", err))
		}
		swapHash, err = e.tx.Transact(ctx, e.router, data, big.NewInt(0))
		if err != nil {
			return e.fail(ctx, exec, errs.ErrSwapReverted, err)
		}
	}

	exec.TxHash = swapHash.Hex()
	spent = true
	e.transition(log, exec, StateAwaitingSwapReceipt)

	if err := e.awaitSuccess(waitCtx, swapHash); err != nil {
		spent = !errors.Is(err, errTxFailed)
		return e.fail(ctx, exec, errs.ErrSwapReverted, err)
	}

	exec.CompletedAt = e.now()
	e.transition(log, exec, StateCompleted)
	log.WithFields(logrus.Fields{
		"tx_hash":  exec.TxHash,
		"duration": exec.Duration(),
	}).Info("swap completed")

	e.publish(ctx, exec)
	return exec, nil
}

// awaitSuccess waits for a receipt and requires a success status.
func (e *Executor) awaitSuccess(ctx context.Context, hash common.Hash) error {
	receipt, err := e.tx.WaitMined(ctx, hash, e.receiptTimeout)
	if err != nil {
		return err
	}
	if receipt == nil || receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w in tx %s", errTxFailed, hash.Hex())
	}
	return nil
}

func (e *Executor) fail(ctx context.Context, exec *SwapExecution, kind, cause error) (*SwapExecution, error) {
	exec.Err = fmt.Errorf("%w: %w", kind, cause)
	exec.CompletedAt = e.now()
	exec.State = StateFailed

	e.logger.WithFields(logrus.Fields{
		"execution_id":     exec.ID,
		"approval_tx_hash": exec.ApprovalTxHash,
		"tx_hash":          exec.TxHash,
	}).WithError(exec.Err).Error("swap failed")

	e.publish(ctx, exec)
	return exec, exec.Err
}

func (e *Executor) transition(log *logrus.Entry, exec *SwapExecution, to ExecState) {
	log.WithFields(logrus.Fields{
		"from": exec.State,
		"to":   to,
	}).Debug("swap state transition")
	exec.State = to
}

// publish journals the outcome to redis/clickhouse (best-effort)
func (e *Executor) publish(ctx context.Context, exec *SwapExecution) {
	if e.cache == nil && e.store == nil {
		return
	}
	ev := SwapEventFromExecution(exec, e.routerHex)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if e.cache != nil {
		if err := e.cache.AddRecentSwap(ctx, ev); err != nil {
			e.logger.WithError(err).Warn("failed to cache swap event")
		}
		if err := e.cache.PublishSwap(ctx, ev); err != nil {
			e.logger.WithError(err).Warn("failed to publish swap event")
		}
	}
	if e.store != nil {
		if err := e.store.InsertSwap(ctx, ev); err != nil {
			e.logger.WithError(err).Warn("failed to store swap event")
		}
	}
}

// SwapEventFromExecution flattens a terminal execution into a journal record.
func SwapEventFromExecution(exec *SwapExecution, router string) *models.SwapEvent {
	q := exec.Quote
	ev := &models.SwapEvent{
		TxHash:          exec.TxHash,
		ApprovalTxHash:  exec.ApprovalTxHash,
		Timestamp:       exec.CompletedAt,
		Pair:            fmt.Sprintf("%s/%s", q.FromSymbol, q.ToSymbol),
		TokenIn:         q.FromSymbol,
		TokenOut:        q.ToSymbol,
		AmountIn:        q.InputAmount,
		AmountOut:       q.OutputAmount,
		MinimumReceived: q.MinimumReceived,
		Price:           q.ExecutionPrice,
		Status:          models.SwapStatusCompleted,
		Router:          strings.ToLower(router),
		Fallback:        q.Fallback,
	}
	if exec.State == StateFailed {
		ev.Status = models.SwapStatusFailed
		if exec.Err != nil {
			ev.Error = exec.Err.Error()
		}
	}
	return ev
}
