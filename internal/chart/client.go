package chart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/swapfy/terminal/internal/constants"
)

// Bar is one OHLCV candle. Time is unix seconds.
type Bar struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Pair is one liquidity pair indexed by the chart API.
type Pair struct {
	PairAddress string `json:"pairAddress"`
	Token0      string `json:"token0"`
	Token1      string `json:"token1"`
	Liquidity   string `json:"liquidity"`
}

// PairStats summarizes a pair's recent activity. Zero values mean the
// upstream had nothing; callers render them as-is rather than failing.
type PairStats struct {
	Liquidity      string  `json:"liquidity"`
	Volume24h      string  `json:"volume24h"`
	PriceChange24h float64 `json:"priceChange24h"`
}

// Client issues GraphQL queries against the Codex charting API.
type Client struct {
	url    string
	apiKey string
	http   *http.Client
	logger *logrus.Logger
}

func NewClient(apiURL, apiKey string, logger *logrus.Logger) *Client {
	apiURL = strings.TrimSpace(apiURL)
	if apiURL == "" {
		apiURL = "https://graph.codex.io/graphql"
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		url:    apiURL,
		apiKey: apiKey,
		http:   &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

func (c *Client) query(ctx context.Context, query string, vars map[string]any, out any) error {
	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("graphql request failed: %w", err)
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("graphql http %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope graphqlResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode graphql response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("graphql error: %s", envelope.Errors[0].Message)
	}
	if out != nil && envelope.Data != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode graphql data: %w", err)
		}
	}
	return nil
}

const getBarsQuery = `
query($symbol: String!, $from: Int!, $to: Int!, $resolution: String!, $currencyCode: String, $removeEmptyBars: Boolean) {
  getBars(
    symbol: $symbol
    from: $from
    to: $to
    resolution: $resolution
    currencyCode: $currencyCode
    removeEmptyBars: $removeEmptyBars
  ) {
    t o h l c v s
  }
}`

type barsPayload struct {
	GetBars *struct {
		T []int64   `json:"t"`
		O []float64 `json:"o"`
		H []float64 `json:"h"`
		L []float64 `json:"l"`
		C []float64 `json:"c"`
		V []float64 `json:"v"`
		S string    `json:"s"`
	} `json:"getBars"`
}

// GetBars fetches candles for a chart symbol ("<address>:<networkId>").
// currencyCode is "USD" or "TOKEN". Upstream errors and non-ok statuses
// come back as an empty series, never as an error: the resolver treats
// empties as a failed strategy and moves on.
func (c *Client) GetBars(ctx context.Context, symbol string, from, to int64, resolution, currencyCode string) []Bar {
	if currencyCode == "" {
		currencyCode = "USD"
	}

	var payload barsPayload
	err := c.query(ctx, getBarsQuery, map[string]any{
		"symbol":          symbol,
		"from":            from,
		"to":              to,
		"resolution":      resolution,
		"currencyCode":    currencyCode,
		"removeEmptyBars": true,
	}, &payload)
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Debug("Bar fetch failed")
		return nil
	}

	data := payload.GetBars
	if data == nil || data.S != "ok" {
		return nil
	}

	n := len(data.T)
	if len(data.O) < n || len(data.H) < n || len(data.L) < n || len(data.C) < n || len(data.V) < n {
		c.logger.WithField("symbol", symbol).Warn("Bar arrays have mismatched lengths")
		return nil
	}

	bars := make([]Bar, n)
	for i := 0; i < n; i++ {
		bars[i] = Bar{
			Time:   data.T[i],
			Open:   data.O[i],
			High:   data.H[i],
			Low:    data.L[i],
			Close:  data.C[i],
			Volume: data.V[i],
		}
	}
	return bars
}

const listPairsQuery = `
query($tokenAddress: String!, $networkId: Int!, $limit: Int) {
  listPairsWithMetadataForToken(
    tokenAddress: $tokenAddress
    networkId: $networkId
    limit: $limit
  ) {
    results {
      pairAddress
      token0
      token1
      liquidity
    }
  }
}`

type listPairsPayload struct {
	ListPairs *struct {
		Results []Pair `json:"results"`
	} `json:"listPairsWithMetadataForToken"`
}

// ListPairs returns liquidity pairs containing the token, most liquid
// first per the upstream's ordering. The native SOL sentinel address is
// normalized to wrapped SOL before querying.
func (c *Client) ListPairs(ctx context.Context, tokenAddress string, limit int) ([]Pair, error) {
	if limit <= 0 {
		limit = 10
	}

	var payload listPairsPayload
	err := c.query(ctx, listPairsQuery, map[string]any{
		"tokenAddress": NormalizeTokenAddress(tokenAddress),
		"networkId":    constants.SolanaNetworkID,
		"limit":        limit,
	}, &payload)
	if err != nil {
		return nil, err
	}
	if payload.ListPairs == nil {
		return nil, nil
	}
	return payload.ListPairs.Results, nil
}

const pairStatsQuery = `
query($pairAddress: String!, $networkId: Int!) {
  getDetailedPairStats(
    pairAddress: $pairAddress
    networkId: $networkId
    duration: hour24
    bucketCount: 1
  ) {
    liquidity
    volume
    priceChange
  }
}`

type pairStatsPayload struct {
	Stats *struct {
		Liquidity   string  `json:"liquidity"`
		Volume      string  `json:"volume"`
		PriceChange float64 `json:"priceChange"`
	} `json:"getDetailedPairStats"`
}

// PairLiquidity fetches 24h stats for a pair. Failures degrade to zero
// values so a stats outage never takes the chart down with it.
func (c *Client) PairLiquidity(ctx context.Context, pairAddress string) PairStats {
	zero := PairStats{Liquidity: "0", Volume24h: "0"}

	var payload pairStatsPayload
	err := c.query(ctx, pairStatsQuery, map[string]any{
		"pairAddress": pairAddress,
		"networkId":   constants.SolanaNetworkID,
	}, &payload)
	if err != nil {
		c.logger.WithError(err).WithField("pair", pairAddress).Debug("Pair stats fetch failed")
		return zero
	}
	if payload.Stats == nil {
		return zero
	}

	out := PairStats{
		Liquidity:      payload.Stats.Liquidity,
		Volume24h:      payload.Stats.Volume,
		PriceChange24h: payload.Stats.PriceChange,
	}
	if out.Liquidity == "" {
		out.Liquidity = "0"
	}
	if out.Volume24h == "" {
		out.Volume24h = "0"
	}
	return out
}

// NormalizeTokenAddress maps the native SOL sentinel to the wrapped SOL
// mint; the chart API only indexes the wrapped form.
func NormalizeTokenAddress(address string) string {
	if strings.EqualFold(address, constants.NativeSOLMint) {
		return constants.WrappedSOLMint
	}
	return address
}
