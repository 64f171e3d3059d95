// Package bootstrap holds the process setup shared by the binaries.
package bootstrap

import (
	"context"
	"path/filepath"
	"runtime"

	"github.com/aman-zulfiqar/chattrade/internal/ai"
	"github.com/aman-zulfiqar/chattrade/internal/chat"
	"github.com/aman-zulfiqar/chattrade/internal/config"
	"github.com/aman-zulfiqar/chattrade/internal/flags"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// NewLogger returns a text logger at the named level, falling back to info.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// LoadEnv reads .env from the module root. It must run before config.Load.
func LoadEnv(logger *logrus.Logger) {
	_, filename, _, _ := runtime.Caller(0)
	envPath := filepath.Join(filepath.Dir(filename), "../..", ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Debugf("no .env file at %s, using process environment", envPath)
		return
	}
	logger.Debugf("loaded .env from %s", envPath)
}

// Optional is the set of session collaborators that may be unavailable.
type Optional struct {
	Flags     *flags.Store
	Rephraser *ai.Rephraser
	redis     *redis.Client
}

func (o *Optional) Close() error {
	if o.redis == nil {
		return nil
	}
	return o.redis.Close()
}

// SessionConfig wires the flag store and the rephraser around engine.
// Neither is required: an unreachable Redis leaves every switch at its
// default and a missing OpenRouter key disables rephrasing.
func SessionConfig(ctx context.Context, cfg *config.Config, engine chat.Engine, logger *logrus.Logger) (chat.SessionConfig, *Optional) {
	opt := &Optional{}
	sc := chat.SessionConfig{Engine: engine, Logger: logger}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("redis unavailable, feature flags use defaults")
		_ = client.Close()
	} else if store, err := flags.NewStore(client, logger); err != nil {
		logger.WithError(err).Warn("failed to create flags store")
		_ = client.Close()
	} else {
		opt.Flags = store
		opt.redis = client
		sc.Switches = store
	}

	if cfg.OpenRouterAPIKey != "" {
		r, err := ai.NewRephraser(ai.RephraserConfig{
			OpenRouterAPIKey: cfg.OpenRouterAPIKey,
			Model:            cfg.OpenRouterModel,
			Logger:           logger,
		})
		if err != nil {
			logger.WithError(err).Warn("rephrasing disabled")
		} else {
			opt.Rephraser = r
			sc.Rephraser = r
		}
	}

	return sc, opt
}
