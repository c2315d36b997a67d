package server

import (
	"github.com/swapfy/terminal/internal/prefs"
	"github.com/swapfy/terminal/internal/prices"
)

// ErrorResponse is the standardized error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Details any    `json:"details,omitempty"` // dev mode only
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	OK bool `json:"ok"`
}

// QuoteRequest updates the terminal form and asks for a fresh quote.
// Side is "from" (exact-in) or "to" (exact-out). Slippage is optional;
// when omitted the form keeps its current settings.
type QuoteRequest struct {
	FromMint string `json:"fromMint"`
	ToMint   string `json:"toMint"`
	Side     string `json:"side"`
	Amount   string `json:"amount"`

	Slippage *prefs.Preferences `json:"slippage,omitempty"`
}

// PricesResponse maps token addresses to their cached USD quotes.
// Addresses with no fresh price are absent from the map.
type PricesResponse struct {
	Prices map[string]prices.Quote `json:"prices"`
}

// TokensResponse lists registry entries.
type TokensResponse struct {
	Tokens any `json:"tokens"`
	Count  int `json:"count"`
}
