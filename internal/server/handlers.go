package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/swapfy/terminal/internal/amount"
	"github.com/swapfy/terminal/internal/chart"
	"github.com/swapfy/terminal/internal/constants"
	"github.com/swapfy/terminal/internal/history"
	"github.com/swapfy/terminal/internal/prefs"
	"github.com/swapfy/terminal/internal/prices"
	"github.com/swapfy/terminal/internal/registry"
	"github.com/swapfy/terminal/internal/storage"
	"github.com/swapfy/terminal/internal/swap"
)

// Handlers contains all dependencies for API endpoint handlers.
type Handlers struct {
	Form     *swap.Form           // shared terminal form (quotes)
	Charts   *chart.Resolver      // candle-series resolver
	Pairs    *chart.Client        // pair stats lookups
	Prices   *prices.Cache        // cached USD prices
	Batch    *prices.Batcher      // on-demand price refresh
	Prefs    *prefs.Store         // per-wallet slippage settings
	Attempts storage.AttemptCache // recent swap attempts
	Tokens   *registry.Registry   // token metadata
	DevMode  bool
	Logger   *logrus.Logger
}

// err returns a standardized JSON error response. Details are only
// included in dev mode.
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health returns a simple health check.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// Quote applies the request to the terminal form, fetches a quote, and
// returns the resulting form state. Quote failures come back inside the
// state's errors map with HTTP 200; the previous quote stays visible.
func (h *Handlers) Quote(c echo.Context) error {
	var req QuoteRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	var side swap.Side
	switch req.Side {
	case "", "from":
		side = swap.SideFrom
	case "to":
		side = swap.SideTo
	default:
		return h.err(c, http.StatusBadRequest, "invalid side", map[string]any{"side": "must be from or to"})
	}

	if req.FromMint != "" || req.ToMint != "" {
		if req.FromMint == "" || req.ToMint == "" {
			return h.err(c, http.StatusBadRequest, "both mints required", nil)
		}
		if !h.Tokens.Has(req.FromMint) || !h.Tokens.Has(req.ToMint) {
			return h.err(c, http.StatusBadRequest, "unknown mint", nil)
		}
		h.Form.SetTokens(req.FromMint, req.ToMint)
	}

	if req.Slippage != nil {
		if err := req.Slippage.Validate(); err != nil {
			return h.err(c, http.StatusBadRequest, "invalid slippage", map[string]any{"reason": err.Error()})
		}
		h.Form.SetSlippage(req.Slippage)
	}

	if req.Amount != "" {
		if err := amount.Validate(req.Amount); err != nil {
			return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"reason": err.Error()})
		}
		h.Form.UpdateAmount(side, req.Amount)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	if err := h.Form.RequestQuote(ctx); err != nil {
		h.Logger.WithError(err).Warn("quote request failed")
	}
	return c.JSON(http.StatusOK, h.Form.State())
}

// GetPrices returns cached USD prices for a comma-separated ids list,
// refreshing stale entries synchronously before answering.
func (h *Handlers) GetPrices(c echo.Context) error {
	raw := strings.TrimSpace(c.QueryParam("ids"))
	if raw == "" {
		return h.err(c, http.StatusBadRequest, "missing ids", nil)
	}

	var addrs []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			addrs = append(addrs, id)
		}
	}
	if len(addrs) == 0 || len(addrs) > constants.PriceBatchSize {
		return h.err(c, http.StatusBadRequest, "invalid ids", map[string]any{"ids": "1 to 100 addresses"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), constants.PriceFetchWindow)
	defer cancel()

	h.Batch.Track(addrs...)
	if len(h.Prices.Stale(addrs)) > 0 {
		if err := h.Batch.Refresh(ctx); err != nil {
			h.Logger.WithError(err).Warn("price refresh failed")
		}
	}
	return c.JSON(http.StatusOK, PricesResponse{Prices: h.Prices.GetMany(addrs)})
}

// ChartBars resolves a USD candle series for a token. An empty series
// with source "" means every pricing strategy failed.
func (h *Handlers) ChartBars(c echo.Context) error {
	mint := strings.TrimSpace(c.QueryParam("mint"))
	if mint == "" {
		return h.err(c, http.StatusBadRequest, "missing mint", nil)
	}

	from, err := strconv.ParseInt(c.QueryParam("from"), 10, 64)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid from", nil)
	}
	to, err := strconv.ParseInt(c.QueryParam("to"), 10, 64)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid to", nil)
	}
	if from <= 0 || to <= from {
		return h.err(c, http.StatusBadRequest, "invalid range", map[string]any{"range": "need 0 < from < to"})
	}

	resolution := c.QueryParam("resolution")
	if resolution == "" {
		resolution = "15"
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 20*time.Second)
	defer cancel()

	series := h.Charts.Resolve(ctx, chart.BarsRequest{
		FromMint:   mint,
		From:       from,
		To:         to,
		Resolution: resolution,
	})
	return c.JSON(http.StatusOK, series)
}

// PairStats returns liquidity and 24h volume for one pair, degrading to
// zeros when the upstream has nothing.
func (h *Handlers) PairStats(c echo.Context) error {
	addr := strings.TrimSpace(c.Param("address"))
	if addr == "" {
		return h.err(c, http.StatusBadRequest, "invalid pair address", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	return c.JSON(http.StatusOK, h.Pairs.PairLiquidity(ctx, addr))
}

// RecentAttempts returns the most recent swap attempts, newest first.
// Accepts a limit query parameter (default 20, max 100).
func (h *Handlers) RecentAttempts(c echo.Context) error {
	limit := 20
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > constants.MaxRecentAttempts {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 100"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Attempts.Recent(ctx, int64(limit))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get attempts", nil)
	}
	if items == nil {
		items = []*history.Attempt{}
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// PrefsGet returns a wallet's slippage settings, falling back to
// defaults when none are saved.
func (h *Handlers) PrefsGet(c echo.Context) error {
	owner := strings.TrimSpace(c.QueryParam("owner"))
	if err := prefs.ValidateOwner(owner); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid owner", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	p, err := h.Prefs.GetOrDefaults(ctx, owner)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get preferences", nil)
	}
	return c.JSON(http.StatusOK, p)
}

// PrefsPut validates and saves a wallet's slippage settings.
func (h *Handlers) PrefsPut(c echo.Context) error {
	var p prefs.Preferences
	if err := c.Bind(&p); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := prefs.ValidateOwner(p.Owner); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid owner", nil)
	}
	if err := p.Validate(); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid preferences", map[string]any{"reason": err.Error()})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	saved, err := h.Prefs.Upsert(ctx, &p)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to save preferences", nil)
	}
	return c.JSON(http.StatusOK, saved)
}

// TokensList returns every registry entry.
func (h *Handlers) TokensList(c echo.Context) error {
	tokens := h.Tokens.All()
	return c.JSON(http.StatusOK, TokensResponse{Tokens: tokens, Count: len(tokens)})
}

// TokenGet returns metadata for one mint.
func (h *Handlers) TokenGet(c echo.Context) error {
	mint := strings.TrimSpace(c.Param("mint"))
	info, err := h.Tokens.Get(mint)
	if err != nil {
		if errors.Is(err, registry.ErrTokenNotFound) {
			return h.err(c, http.StatusNotFound, "token not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get token", nil)
	}
	return c.JSON(http.StatusOK, info)
}
