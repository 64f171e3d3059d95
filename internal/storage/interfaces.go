package storage

import (
	"context"
	"io"

	"github.com/aman-zulfiqar/chattrade/internal/models"
)

// SwapCache is the hot side of the swap journal: a capped newest-first list
// of outcomes plus a live feed for subscribers.
type SwapCache interface {
	AddRecentSwap(ctx context.Context, swap *models.SwapEvent) error
	GetRecentSwaps(ctx context.Context, limit int64) ([]*models.SwapEvent, error)

	// PublishSwap fans swap out to the all-swaps channel and its pair channel.
	PublishSwap(ctx context.Context, swap *models.SwapEvent) error
	// SubscribeSwaps streams published outcomes until ctx is done.
	SubscribeSwaps(ctx context.Context) (<-chan *models.SwapEvent, error)

	Ping(ctx context.Context) error
	io.Closer
}

// SwapStore keeps the full swap history.
type SwapStore interface {
	InsertSwap(ctx context.Context, swap *models.SwapEvent) error
	Ping(ctx context.Context) error
	io.Closer
}
