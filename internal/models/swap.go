package models

import (
	"math/big"
	"time"
)

// Route describes the direction of a swap. From and To are canonical asset
// addresses (the native sentinel for ETH); Path is what the router sees.
type Route struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Path []string `json:"path"`
}

// SwapQuote is the priced proposal presented to the user before execution.
type SwapQuote struct {
	InputAmount     string `json:"input_amount"`
	OutputAmount    string `json:"output_amount"`
	ExecutionPrice  string `json:"execution_price"`
	PriceImpact     string `json:"price_impact"`
	MinimumReceived string `json:"minimum_received"`
	Route           Route  `json:"route"`

	FromSymbol string `json:"from_symbol"`
	ToSymbol   string `json:"to_symbol"`

	AmountIn   *big.Int  `json:"-"`
	AmountOut  *big.Int  `json:"-"`
	MinimumOut *big.Int  `json:"-"`
	Fallback   bool      `json:"fallback"`
	QuotedAt   time.Time `json:"quoted_at"`
}

// SwapEvent is the journal record of a finished swap attempt.
type SwapEvent struct {
	TxHash          string    `json:"tx_hash"`
	ApprovalTxHash  string    `json:"approval_tx_hash,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	Pair            string    `json:"pair"`
	TokenIn         string    `json:"token_in"`
	TokenOut        string    `json:"token_out"`
	AmountIn        string    `json:"amount_in"`
	AmountOut       string    `json:"amount_out"`
	MinimumReceived string    `json:"minimum_received"`
	Price           string    `json:"price"`
	Status          string    `json:"status"` // "completed" or "failed"
	Error           string    `json:"error,omitempty"`
	Router          string    `json:"router"`
	Fallback        bool      `json:"fallback"`
}

const (
	SwapStatusCompleted = "completed"
	SwapStatusFailed    = "failed"
)
