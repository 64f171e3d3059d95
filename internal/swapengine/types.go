package swapengine

import (
	"math/big"
	"strings"
	"time"

	"github.com/aman-zulfiqar/chattrade/internal/constants"
	"github.com/aman-zulfiqar/chattrade/internal/models"
)

// SwapIntent is a swap request in human terms, as typed by the user
type SwapIntent struct {
	InputToken  string // symbol, e.g. "ETH"
	OutputToken string
	Amount      string // human units, e.g. "1.5"
	RequestedAt time.Time
}

// SwapParams is a validated intent resolved against the token registry
type SwapParams struct {
	From     Token
	To       Token
	Amount   string
	AmountIn *big.Int

	Intent   *SwapIntent
	ParsedAt time.Time
}

// Token is one of the two assets this engine trades
type Token struct {
	Symbol   string
	Address  string // constants.NativeToken for ETH
	Decimals uint8
}

func (t Token) IsNative() bool {
	return IsNative(t.Address)
}

func IsNative(address string) bool {
	return strings.EqualFold(address, constants.NativeToken)
}

// ExecState is a step of the execution state machine
type ExecState string

const (
	StateStart                   ExecState = "start"
	StateAwaitingApprovalReceipt ExecState = "awaiting_approval_receipt"
	StateAwaitingSwapReceipt     ExecState = "awaiting_swap_receipt"
	StateCompleted               ExecState = "completed"
	StateFailed                  ExecState = "failed"
)

func (s ExecState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// SwapExecution represents the complete execution lifecycle
type SwapExecution struct {
	ID             string
	State          ExecState
	ApprovalTxHash string
	TxHash         string

	Quote    *models.SwapQuote
	Deadline time.Time

	StartedAt   time.Time
	CompletedAt time.Time

	Err error
}

func (e *SwapExecution) Duration() time.Duration {
	if e.CompletedAt.IsZero() {
		return 0
	}
	return e.CompletedAt.Sub(e.StartedAt)
}

// RiskCheckResult contains risk validation outcome
type RiskCheckResult struct {
	Allowed bool
	Reason  string

	SwapValueETH float64

	ExceedsMaxSwapAmount bool
	MaxSwapAmountETH     float64

	ExceedsDailyLimit bool
	DailyLimitETH     float64
	DailyUsedETH      float64
	DailyRemainingETH float64
}
