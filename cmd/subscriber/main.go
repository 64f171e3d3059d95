package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/aman-zulfiqar/chattrade/internal/bootstrap"
	"github.com/aman-zulfiqar/chattrade/internal/cache"
	"github.com/aman-zulfiqar/chattrade/internal/config"
	"github.com/aman-zulfiqar/chattrade/internal/models"
	"github.com/sirupsen/logrus"
)

// main tails swap outcomes published by the engine.
func main() {
	pair := flag.String("pair", "", "only follow one pair, e.g. ETH/USDC; glob patterns allowed")
	flag.Parse()

	logger := bootstrap.NewLogger("info")
	bootstrap.LoadEnv(logger)
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: cfg.RedisAddr, Logger: logger})
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer rc.Close()

	var events <-chan *models.SwapEvent
	if *pair != "" {
		events, err = rc.SubscribePair(ctx, *pair)
	} else {
		events, err = rc.SubscribeSwaps(ctx)
	}
	if err != nil {
		logger.WithError(err).Fatal("failed to subscribe")
	}

	logger.WithField("pair", *pair).Info("subscriber running, press Ctrl+C to stop")

	for ev := range events {
		entry := logger.WithFields(logrus.Fields{
			"tx":     ev.TxHash,
			"pair":   ev.Pair,
			"in":     ev.AmountIn + " " + ev.TokenIn,
			"out":    ev.AmountOut + " " + ev.TokenOut,
			"price":  ev.Price,
			"router": ev.Router,
		})
		if ev.Status == models.SwapStatusFailed {
			entry.WithField("error", ev.Error).Warn("swap failed")
			continue
		}
		if ev.Fallback {
			entry = entry.WithField("fallback", true)
		}
		entry.Info("swap completed")
	}

	logger.Info("subscriber stopped")
}
