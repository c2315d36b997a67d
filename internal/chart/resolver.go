package chart

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/swapfy/terminal/internal/constants"
)

// Source tags where a resolved series' prices came from.
type Source string

const (
	// SourceDirect is the token's own USD feed.
	SourceDirect Source = "direct"
	// SourceStablePair is a token/stablecoin pool quoted as USD.
	SourceStablePair Source = "stablePair"
	// SourceSolPair is a token/SOL pool converted through SOL's USD feed.
	SourceSolPair Source = "solPair"
	// SourceNone means every strategy failed; the series is empty and the
	// caller must show an explicit no-data state.
	SourceNone Source = ""
)

// BarsRequest asks for a USD candle series for fromMint over [From, To].
type BarsRequest struct {
	FromMint   string
	From       int64 // unix seconds
	To         int64
	Resolution string // e.g. "1", "15", "60", "1D"
}

// Series is a resolved candle set plus its price provenance.
type Series struct {
	Bars   []Bar  `json:"bars"`
	Source Source `json:"source"`
}

// BarFetcher is the slice of Client the resolver needs.
type BarFetcher interface {
	GetBars(ctx context.Context, symbol string, from, to int64, resolution, currencyCode string) []Bar
	ListPairs(ctx context.Context, tokenAddress string, limit int) ([]Pair, error)
}

// Resolver produces a USD series for an arbitrary token even when the
// upstream only indexes it by liquidity pair. Strategies run in order
// and the first one yielding a valid series wins:
//
//  1. direct: the token's own USD symbol
//  2. stablePair: a pool against a recognized stablecoin
//  3. solPair: a pool against wrapped SOL, converted bar-by-bar using
//     the nearest-in-time SOL/USD close
//
// When all three fail the result is an empty series tagged SourceNone.
// Fabricating zero-valued bars is never acceptable.
type Resolver struct {
	client BarFetcher
	logger *logrus.Logger
}

func NewResolver(client BarFetcher, logger *logrus.Logger) *Resolver {
	if logger == nil {
		logger = logrus.New()
	}
	return &Resolver{client: client, logger: logger}
}

func (r *Resolver) Resolve(ctx context.Context, req BarsRequest) Series {
	log := r.logger.WithField("mint", req.FromMint)

	direct := r.client.GetBars(ctx,
		symbol(NormalizeTokenAddress(req.FromMint)), req.From, req.To, req.Resolution, "USD")
	if ValidSeries(direct) {
		return Series{Bars: direct, Source: SourceDirect}
	}

	pairs, err := r.client.ListPairs(ctx, req.FromMint, 10)
	if err != nil {
		log.WithError(err).Debug("Pair listing failed")
		return Series{Bars: []Bar{}, Source: SourceNone}
	}

	if pair, ok := findStablePair(pairs); ok {
		bars := r.client.GetBars(ctx,
			symbol(pair.PairAddress), req.From, req.To, req.Resolution, "USD")
		if ValidSeries(bars) {
			return Series{Bars: bars, Source: SourceStablePair}
		}
	}

	if pair, ok := findSolPair(pairs); ok {
		solUSD := r.client.GetBars(ctx,
			symbol(constants.WrappedSOLMint), req.From, req.To, req.Resolution, "USD")
		pairNative := r.client.GetBars(ctx,
			symbol(pair.PairAddress), req.From, req.To, req.Resolution, "TOKEN")
		if ValidSeries(solUSD) && ValidSeries(pairNative) {
			return Series{Bars: combineWithSolPrice(pairNative, solUSD), Source: SourceSolPair}
		}
	}

	log.Debug("No chart data found through any strategy")
	return Series{Bars: []Bar{}, Source: SourceNone}
}

func symbol(address string) string {
	return address + ":" + strconv.Itoa(constants.SolanaNetworkID)
}

// ValidSeries accepts a series only when every bar has positive finite
// OHLC values, non-negative volume, and a positive timestamp.
func ValidSeries(bars []Bar) bool {
	if len(bars) == 0 {
		return false
	}
	for _, b := range bars {
		if !validPrice(b.Open) || !validPrice(b.High) || !validPrice(b.Low) || !validPrice(b.Close) {
			return false
		}
		if b.Volume < 0 || math.IsNaN(b.Volume) || b.Time <= 0 {
			return false
		}
	}
	return true
}

func validPrice(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func findStablePair(pairs []Pair) (Pair, bool) {
	for _, p := range pairs {
		if isStablecoin(p.Token0) || isStablecoin(p.Token1) {
			return p, true
		}
	}
	return Pair{}, false
}

func findSolPair(pairs []Pair) (Pair, bool) {
	for _, p := range pairs {
		if strings.EqualFold(p.Token0, constants.WrappedSOLMint) ||
			strings.EqualFold(p.Token1, constants.WrappedSOLMint) {
			return p, true
		}
	}
	return Pair{}, false
}

func isStablecoin(address string) bool {
	for mint := range constants.StablecoinMints {
		if strings.EqualFold(address, mint) {
			return true
		}
	}
	return false
}

// combineWithSolPrice converts a SOL-denominated series to USD. Each bar
// is scaled by the close of the SOL/USD bar nearest in time, by absolute
// difference; no interpolation. Volume is scaled too so it stays in the
// same currency as the prices.
func combineWithSolPrice(pairBars, solBars []Bar) []Bar {
	out := make([]Bar, len(pairBars))
	for i, b := range pairBars {
		p := nearestClose(b.Time, solBars)
		out[i] = Bar{
			Time:   b.Time,
			Open:   b.Open * p,
			High:   b.High * p,
			Low:    b.Low * p,
			Close:  b.Close * p,
			Volume: b.Volume * p,
		}
	}
	return out
}

func nearestClose(t int64, bars []Bar) float64 {
	best := bars[0]
	for _, b := range bars[1:] {
		if abs64(b.Time-t) < abs64(best.Time-t) {
			best = b
		}
	}
	return best.Close
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
