package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers.
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	e.HTTPErrorHandler = NotFoundJSON()

	e.Use(SetJSONContentType)
	e.Use(SetNoCacheHeaders)

	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)
	v1.POST("/quote", h.Quote)
	v1.GET("/prices", h.GetPrices)
	v1.GET("/attempts/recent", h.RecentAttempts)
	v1.GET("/prefs", h.PrefsGet)
	v1.PUT("/prefs", h.PrefsPut)
	v1.GET("/tokens", h.TokensList)
	v1.GET("/tokens/:mint", h.TokenGet)

	// Chart endpoints hit the external GraphQL API; rate limit them.
	chartGroup := v1.Group("/chart")
	chartGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(2), // 2 requests per second
		Burst:     5,
		ExpiresIn: 2 * time.Minute,
	})))
	chartGroup.GET("/bars", h.ChartBars)
	chartGroup.GET("/pairs/:address/stats", h.PairStats)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
