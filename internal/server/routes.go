package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes mounts the v1 API on e.
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	cfg = cfg.withDefaults()

	e.HTTPErrorHandler = JSONErrorHandler(h.Logger)

	e.Use(SetJSONContentType)
	e.Use(SetNoCacheHeaders)

	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/v1/health"
			},
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)
	v1.GET("/balances/:address", h.Balance)
	v1.GET("/swaps/recent", h.RecentSwaps)

	// Commands may reach the chain and the LLM, and each new session holds
	// memory until it goes idle, so both are throttled per client.
	limited := middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.CommandRate),
		Burst:     cfg.CommandBurst,
		ExpiresIn: 2 * time.Minute,
	}))

	sessions := v1.Group("/sessions")
	sessions.POST("", h.CreateSession, limited)
	sessions.DELETE("/:id", h.DeleteSession)
	sessions.GET("/:id/messages", h.Messages)
	sessions.GET("/:id/pending", h.Pending)
	sessions.POST("/:id/commands", h.Command, limited)
	sessions.POST("/:id/confirm", h.Confirm, limited)

	flagGroup := v1.Group("/flags")
	flagGroup.GET("", h.FlagsList)
	flagGroup.POST("", h.FlagsUpsert)
	flagGroup.GET("/:key", h.FlagsGet)
	flagGroup.PUT("/:key", h.FlagsUpdate)
	flagGroup.DELETE("/:key", h.FlagsDelete)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
