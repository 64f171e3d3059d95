package server

import (
	"time"

	"github.com/aman-zulfiqar/chattrade/internal/chat"
	"github.com/aman-zulfiqar/chattrade/internal/models"
)

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

type HealthResponse struct {
	OK bool `json:"ok"`
}

type SessionResponse struct {
	ID        string               `json:"id"`
	CreatedAt time.Time            `json:"created_at"`
	Messages  []models.ChatMessage `json:"messages"`
}

type MessagesResponse struct {
	Items []models.ChatMessage `json:"items"`
}

// CommandRequest is one line of chat input
type CommandRequest struct {
	Text string `json:"text"`
}

// CommandResponse carries the messages a command appended and the pending
// swap slot as it stands afterwards.
type CommandResponse struct {
	Messages []models.ChatMessage `json:"messages"`
	Pending  *chat.PendingSwap    `json:"pending"`
}

type PendingResponse struct {
	Pending *chat.PendingSwap `json:"pending"`
}

type BalanceResponse struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Balance  string `json:"balance"`
	Decimals uint8  `json:"decimals"`
	Unknown  bool   `json:"unknown"`
}

type SwapsRecentResponse struct {
	Items []*models.SwapEvent `json:"items"`
}

type FlagUpsertRequest struct {
	Key   string `json:"key"`
	Value bool   `json:"value"`
}

type FlagUpdateRequest struct {
	Value bool `json:"value"`
}
