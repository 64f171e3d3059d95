package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aman-zulfiqar/chattrade/internal/constants"
	"github.com/aman-zulfiqar/chattrade/internal/models"
	"github.com/redis/go-redis/v9"
)

// PublishSwap publishes a swap event to the live channel and its pair channel.
func (r *RedisCache) PublishSwap(ctx context.Context, swap *models.SwapEvent) error {
	data, err := json.Marshal(swap)
	if err != nil {
		return fmt.Errorf("marshal swap: %w", err)
	}

	channels := []string{
		constants.PubSubChannelSwaps,
		constants.PubSubPairPrefix + swap.Pair,
	}

	pipe := r.client.Pipeline()
	for _, channel := range channels {
		pipe.Publish(ctx, channel, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish swap: %w", err)
	}
	return nil
}

// SubscribeSwaps streams every published swap until ctx is done.
func (r *RedisCache) SubscribeSwaps(ctx context.Context) (<-chan *models.SwapEvent, error) {
	return r.stream(ctx, r.client.Subscribe(ctx, constants.PubSubChannelSwaps))
}

// SubscribePair streams swaps for one pair, e.g. "ETH/USDC", or for every
// pair when pair is "*".
func (r *RedisCache) SubscribePair(ctx context.Context, pair string) (<-chan *models.SwapEvent, error) {
	return r.stream(ctx, r.client.PSubscribe(ctx, constants.PubSubPairPrefix+pair))
}

func (r *RedisCache) stream(ctx context.Context, ps *redis.PubSub) (<-chan *models.SwapEvent, error) {
	// wait for the subscription confirmation so errors surface here
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan *models.SwapEvent, 16)
	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var swap models.SwapEvent
				if err := json.Unmarshal([]byte(msg.Payload), &swap); err != nil {
					r.logger.WithField("channel", msg.Channel).WithError(err).Warn("dropping malformed swap event")
					continue
				}
				select {
				case out <- &swap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
