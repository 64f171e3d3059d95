package errs

import "errors"

// Validation
var (
	ErrInvalidAddress  = errors.New("invalid address format")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrUnsupportedPair = errors.New("unsupported token pair")
)

// Remote reads
var (
	ErrNetworkExhausted = errors.New("network retries exhausted")
	ErrContractNotFound = errors.New("no contract code at token address")
)

// Swap lifecycle
var (
	ErrNoPendingSwap  = errors.New("no pending swap to confirm")
	ErrNoSigner       = errors.New("no signing context available")
	ErrNoWallet       = errors.New("no wallet address configured")
	ErrApprovalFailed = errors.New("token approval failed")
	ErrSwapReverted   = errors.New("transaction reverted")
	ErrTimeout        = errors.New("timed out waiting for transaction receipt")
	ErrRiskRejected   = errors.New("risk check rejected")
	ErrSwapsDisabled  = errors.New("swap execution is disabled")
)

// Sessions
var (
	ErrTooManySessions = errors.New("too many active sessions")
)
