package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/chattrade/internal/chat"
	"github.com/aman-zulfiqar/chattrade/internal/errs"
	"github.com/aman-zulfiqar/chattrade/internal/flags"
	"github.com/aman-zulfiqar/chattrade/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Chain is the read side the API exposes directly. *swapengine.Engine
// satisfies it.
type Chain interface {
	Balance(ctx context.Context, address, token string) (models.TokenBalance, error)
	RecentSwaps(ctx context.Context, limit int64) ([]*models.SwapEvent, error)
}

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Sessions *chat.Registry
	Chain    Chain
	Flags    *flags.Store // optional
	DevMode  bool         // include error details in responses
	Logger   *logrus.Logger

	// CommandTimeout bounds one chat command. Confirmations wait for
	// receipts, so this must exceed twice the receipt timeout.
	CommandTimeout time.Duration
}

// err returns a standardized JSON error response
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// session looks up the path session. When it is missing the 404 has been
// written and the returned error is what the handler must return.
func (h *Handlers) session(c echo.Context) (*chat.Session, error) {
	s, ok := h.Sessions.Get(c.Param("id"))
	if !ok {
		return nil, h.err(c, http.StatusNotFound, "session not found", nil)
	}
	return s, nil
}

func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// CreateSession starts a conversation and returns its welcome message
func (h *Handlers) CreateSession(c echo.Context) error {
	s, err := h.Sessions.Create()
	if err != nil {
		return h.err(c, http.StatusServiceUnavailable, "too many active sessions", nil)
	}
	h.Logger.WithField("session", s.ID()).Info("session created")
	return c.JSON(http.StatusCreated, SessionResponse{
		ID:        s.ID(),
		CreatedAt: s.CreatedAt(),
		Messages:  s.Messages(),
	})
}

func (h *Handlers) DeleteSession(c echo.Context) error {
	if !h.Sessions.Delete(c.Param("id")) {
		return h.err(c, http.StatusNotFound, "session not found", nil)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handlers) Messages(c echo.Context) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}
	return c.JSON(http.StatusOK, MessagesResponse{Items: s.Messages()})
}

// Command runs one line of chat input through the session
func (h *Handlers) Command(c echo.Context) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}

	var req CommandRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return h.err(c, http.StatusBadRequest, "text is required", map[string]any{"text": "required"})
	}
	if len(req.Text) > 512 {
		return h.err(c, http.StatusBadRequest, "text is too long", map[string]any{"text": "max 512 bytes"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), h.CommandTimeout)
	defer cancel()

	msgs := s.HandleCommand(ctx, req.Text)
	return c.JSON(http.StatusOK, CommandResponse{Messages: msgs, Pending: s.PendingSwap()})
}

// Confirm executes the session's pending swap
func (h *Handlers) Confirm(c echo.Context) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), h.CommandTimeout)
	defer cancel()

	msgs := s.ConfirmPendingSwap(ctx)
	return c.JSON(http.StatusOK, CommandResponse{Messages: msgs, Pending: s.PendingSwap()})
}

func (h *Handlers) Pending(c echo.Context) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}
	return c.JSON(http.StatusOK, PendingResponse{Pending: s.PendingSwap()})
}

// Balance reads the native balance of an address, or a token balance when
// the token query parameter is a symbol or contract address.
func (h *Handlers) Balance(c echo.Context) error {
	address := strings.TrimSpace(c.Param("address"))
	token := strings.TrimSpace(c.QueryParam("token"))

	ctx, cancel := h.withTimeout(c.Request().Context(), 90*time.Second)
	defer cancel()

	bal, err := h.Chain.Balance(ctx, address, token)
	switch {
	case errors.Is(err, errs.ErrInvalidAddress):
		return h.err(c, http.StatusBadRequest, "invalid address", map[string]any{"address": err.Error()})
	case errors.Is(err, errs.ErrNetworkExhausted):
		return h.err(c, http.StatusBadGateway, "chain unavailable", map[string]any{"err": err.Error()})
	case err != nil:
		return h.err(c, http.StatusInternalServerError, "failed to read balance", map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, BalanceResponse{
		Address:  address,
		Symbol:   bal.Symbol,
		Balance:  bal.Balance,
		Decimals: bal.Decimals,
		Unknown:  bal.IsUnknown(),
	})
}

// RecentSwaps returns journaled swaps, newest first
// Accepts limit query parameter (default: 20, range: 1-100)
func (h *Handlers) RecentSwaps(c echo.Context) error {
	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > 100 {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 100"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Chain.RecentSwaps(ctx, int64(limit))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get swaps", nil)
	}
	return c.JSON(http.StatusOK, SwapsRecentResponse{Items: items})
}

func (h *Handlers) flagsUnavailable(c echo.Context) error {
	return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
}

// FlagsUpsert creates or updates a feature flag
func (h *Handlers) FlagsUpsert(c echo.Context) error {
	if h.Flags == nil {
		return h.flagsUnavailable(c)
	}
	var req FlagUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := flags.ValidateKey(req.Key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": err.Error()})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, req.Key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to upsert flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsUpdate sets the value of the flag named in the path
func (h *Handlers) FlagsUpdate(c echo.Context) error {
	if h.Flags == nil {
		return h.flagsUnavailable(c)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": err.Error()})
	}
	var req FlagUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to update flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handlers) FlagsGet(c echo.Context) error {
	if h.Flags == nil {
		return h.flagsUnavailable(c)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": err.Error()})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Get(ctx, key)
	if errors.Is(err, flags.ErrNotFound) {
		return h.err(c, http.StatusNotFound, "flag not found", nil)
	}
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsList returns stored flags plus unset defaults
func (h *Handlers) FlagsList(c echo.Context) error {
	if h.Flags == nil {
		return h.flagsUnavailable(c)
	}
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Flags.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list flags", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *Handlers) FlagsDelete(c echo.Context) error {
	if h.Flags == nil {
		return h.flagsUnavailable(c)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": err.Error()})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	err := h.Flags.Delete(ctx, key)
	if errors.Is(err, flags.ErrNotFound) {
		return h.err(c, http.StatusNotFound, "flag not found", nil)
	}
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete flag", nil)
	}
	return c.NoContent(http.StatusNoContent)
}
