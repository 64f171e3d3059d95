package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aman-zulfiqar/chattrade/internal/bootstrap"
	"github.com/aman-zulfiqar/chattrade/internal/chat"
	"github.com/aman-zulfiqar/chattrade/internal/config"
	"github.com/aman-zulfiqar/chattrade/internal/server"
	"github.com/aman-zulfiqar/chattrade/internal/swapengine"
	"github.com/sirupsen/logrus"
)

// main serves the chat API until SIGINT or SIGTERM.
func main() {
	logger := bootstrap.NewLogger(os.Getenv("LOG_LEVEL"))
	bootstrap.LoadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	logger = bootstrap.NewLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	engine, err := swapengine.NewEngine(ctx, swapengine.EngineConfigFromConfig(cfg, logger))
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize swap engine")
	}
	defer engine.Close()

	sessionCfg, optional := bootstrap.SessionConfig(ctx, cfg, engine, logger)
	defer optional.Close()

	registry := chat.NewRegistry(chat.RegistryConfig{
		Session:     sessionCfg,
		MaxSessions: cfg.MaxSessions,
		IdleTTL:     cfg.SessionIdleTTL,
	})
	go registry.Run(ctx, time.Minute)

	h := &server.Handlers{
		Sessions:       registry,
		Chain:          engine,
		Flags:          optional.Flags,
		DevMode:        cfg.DevMode,
		Logger:         logger,
		CommandTimeout: 2*cfg.ReceiptTimeout + 30*time.Second,
	}

	srvCfg := server.DefaultServerConfig()
	srvCfg.Addr = cfg.APIAddr
	srvCfg.DevMode = cfg.DevMode
	srvCfg.APIKey = cfg.APIKey
	if h.CommandTimeout+30*time.Second > srvCfg.WriteTimeout {
		srvCfg.WriteTimeout = h.CommandTimeout + 30*time.Second
	}

	srv, err := server.NewServer(server.ServerDeps{Handlers: h, Config: srvCfg})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		_ = srv.Shutdown(context.Background())
	}()

	logger.WithFields(logrus.Fields{
		"addr":     srvCfg.Addr,
		"wallet":   engine.WalletAddress(),
		"signer":   engine.HasSigner(),
		"flags":    optional.Flags != nil,
		"rephrase": optional.Rephraser != nil,
	}).Info("api server starting")

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("api server failed")
	}

	if err := srv.WaitClosed(context.Background()); err != nil {
		logger.WithError(err).Warn("shutdown did not complete")
	}
}
