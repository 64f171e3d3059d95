package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// ServerConfig holds configuration for the HTTP server
type ServerConfig struct {
	Addr    string // bind address, e.g. ":8090"
	DevMode bool   // include error details in responses
	APIKey  string // optional; empty disables auth

	// CommandRate and CommandBurst limit chat commands per client IP.
	CommandRate  float64
	CommandBurst int

	// WriteTimeout must outlast a confirmation, which can wait on two receipts.
	WriteTimeout time.Duration
}

// DefaultServerConfig returns the limits used when a field is left zero.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         ":8090",
		CommandRate:  1,
		CommandBurst: 5,
		WriteTimeout: 150 * time.Second,
	}
}

func (c ServerConfig) withDefaults() ServerConfig {
	def := DefaultServerConfig()
	if c.Addr == "" {
		c.Addr = def.Addr
	}
	if c.CommandRate <= 0 {
		c.CommandRate = def.CommandRate
	}
	if c.CommandBurst <= 0 {
		c.CommandBurst = def.CommandBurst
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	return c
}

// ServerDeps contains dependencies required to create a new Server
type ServerDeps struct {
	Handlers *Handlers
	Config   ServerConfig
}

// Server owns the echo instance and its shutdown signal.
type Server struct {
	e      *echo.Echo
	cfg    ServerConfig
	closed chan struct{}
}

func NewServer(deps ServerDeps) (*Server, error) {
	cfg := deps.Config.withDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())

	e.Server.ReadTimeout = 15 * time.Second
	e.Server.WriteTimeout = cfg.WriteTimeout
	e.Server.IdleTimeout = 60 * time.Second

	RegisterRoutes(e, deps.Handlers, cfg)

	return &Server{e: e, cfg: cfg, closed: make(chan struct{})}, nil
}

// Handler exposes the router for in-process use.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start blocks serving on the configured address
func (s *Server) Start() error {
	return s.e.Start(s.cfg.Addr)
}

// Shutdown drains in-flight requests, giving up after 10 seconds.
func (s *Server) Shutdown(ctx context.Context) error {
	defer close(s.closed)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.e.Shutdown(ctx)
}

func (s *Server) WaitClosed(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.closed:
		return nil
	}
}

// SetNoCacheHeaders keeps balances and quotes out of intermediary caches.
func SetNoCacheHeaders(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("Cache-Control", "no-store")
		return next(c)
	}
}

func SetJSONContentType(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		return next(c)
	}
}
