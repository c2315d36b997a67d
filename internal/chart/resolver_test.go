package chart

import (
	"context"
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapfy/terminal/internal/constants"
)

const (
	memeMint    = "MEMEhQFMz8Vt9V6keEXGWmZNKiYpUd7DqAe5edCrLBGH"
	memeSolPool = "PooLSoLAddr111111111111111111111111111111111"
	memeUsdPool = "PooLUsdcAddr11111111111111111111111111111111"
)

// fakeFetcher serves canned bars keyed by (symbol, currencyCode) and
// records every request.
type fakeFetcher struct {
	bars    map[string][]Bar
	pairs   []Pair
	pairErr error
	calls   []string
}

func (f *fakeFetcher) GetBars(_ context.Context, symbol string, _, _ int64, _, currencyCode string) []Bar {
	key := symbol + "/" + currencyCode
	f.calls = append(f.calls, key)
	return f.bars[key]
}

func (f *fakeFetcher) ListPairs(_ context.Context, _ string, _ int) ([]Pair, error) {
	return f.pairs, f.pairErr
}

func usdKey(address string) string   { return symbol(address) + "/USD" }
func tokenKey(address string) string { return symbol(address) + "/TOKEN" }

func validBars(times []int64, close float64) []Bar {
	out := make([]Bar, len(times))
	for i, t := range times {
		out[i] = Bar{Time: t, Open: close, High: close * 1.1, Low: close * 0.9, Close: close, Volume: 10}
	}
	return out
}

func TestResolve_DirectWins(t *testing.T) {
	f := &fakeFetcher{bars: map[string][]Bar{
		usdKey(memeMint): validBars([]int64{100, 200}, 1.5),
	}}
	r := NewResolver(f, logrus.New())

	s := r.Resolve(context.Background(), BarsRequest{FromMint: memeMint, From: 0, To: 300, Resolution: "1"})
	assert.Equal(t, SourceDirect, s.Source)
	assert.Len(t, s.Bars, 2)
	assert.Equal(t, []string{usdKey(memeMint)}, f.calls, "no fallback requests after a direct hit")
}

func TestResolve_StablePairFallback(t *testing.T) {
	f := &fakeFetcher{
		bars: map[string][]Bar{
			usdKey(memeUsdPool): validBars([]int64{100}, 0.02),
		},
		pairs: []Pair{
			{PairAddress: "otherPool", Token0: memeMint, Token1: "RandomMint"},
			{PairAddress: memeUsdPool, Token0: memeMint, Token1: constants.USDCMint},
		},
	}
	r := NewResolver(f, logrus.New())

	s := r.Resolve(context.Background(), BarsRequest{FromMint: memeMint, From: 0, To: 300, Resolution: "1"})
	assert.Equal(t, SourceStablePair, s.Source)
	require.Len(t, s.Bars, 1)
	assert.InDelta(t, 0.02, s.Bars[0].Close, 1e-12)
}

func TestResolve_SolPairConversion(t *testing.T) {
	solCloses := map[int64]float64{100: 150, 200: 160, 310: 170}
	solBars := []Bar{}
	for _, tm := range []int64{100, 200, 310} {
		c := solCloses[tm]
		solBars = append(solBars, Bar{Time: tm, Open: c, High: c, Low: c, Close: c, Volume: 1})
	}

	pairBars := []Bar{
		{Time: 90, Open: 0.01, High: 0.012, Low: 0.009, Close: 0.011, Volume: 5},
		{Time: 210, Open: 0.011, High: 0.013, Low: 0.010, Close: 0.012, Volume: 7},
		{Time: 300, Open: 0.012, High: 0.014, Low: 0.011, Close: 0.013, Volume: 2},
	}

	f := &fakeFetcher{
		bars: map[string][]Bar{
			usdKey(constants.WrappedSOLMint): solBars,
			tokenKey(memeSolPool):            pairBars,
		},
		pairs: []Pair{
			{PairAddress: memeSolPool, Token0: memeMint, Token1: constants.WrappedSOLMint},
		},
	}
	r := NewResolver(f, logrus.New())

	s := r.Resolve(context.Background(), BarsRequest{FromMint: memeMint, From: 0, To: 400, Resolution: "1"})
	require.Equal(t, SourceSolPair, s.Source)
	require.Len(t, s.Bars, len(pairBars))

	// Every output close must equal pairClose * nearest SOL close, with
	// nearest measured by absolute time distance. 90->100, 210->200,
	// 300->310.
	nearest := []float64{150, 160, 170}
	for i, b := range s.Bars {
		src := pairBars[i]
		assert.Equal(t, src.Time, b.Time)
		assert.InDelta(t, src.Close*nearest[i], b.Close, 1e-12)
		assert.InDelta(t, src.Open*nearest[i], b.Open, 1e-12)
		assert.InDelta(t, src.High*nearest[i], b.High, 1e-12)
		assert.InDelta(t, src.Low*nearest[i], b.Low, 1e-12)
		assert.InDelta(t, src.Volume*nearest[i], b.Volume, 1e-12)
	}
}

func TestResolve_AllStrategiesFail(t *testing.T) {
	f := &fakeFetcher{
		bars: map[string][]Bar{},
		pairs: []Pair{
			{PairAddress: "pool", Token0: memeMint, Token1: "RandomMint"},
		},
	}
	r := NewResolver(f, logrus.New())

	s := r.Resolve(context.Background(), BarsRequest{FromMint: memeMint, From: 0, To: 300, Resolution: "1"})
	assert.Equal(t, SourceNone, s.Source)
	assert.NotNil(t, s.Bars)
	assert.Empty(t, s.Bars, "no-data must be an empty series, never fabricated bars")
}

func TestResolve_InvalidDirectBarsFallThrough(t *testing.T) {
	f := &fakeFetcher{
		bars: map[string][]Bar{
			// Zero close fails validation.
			usdKey(memeMint):    {{Time: 100, Open: 1, High: 1, Low: 1, Close: 0, Volume: 1}},
			usdKey(memeUsdPool): validBars([]int64{100}, 0.5),
		},
		pairs: []Pair{
			{PairAddress: memeUsdPool, Token0: constants.USDTMint, Token1: memeMint},
		},
	}
	r := NewResolver(f, logrus.New())

	s := r.Resolve(context.Background(), BarsRequest{FromMint: memeMint, From: 0, To: 300, Resolution: "1"})
	assert.Equal(t, SourceStablePair, s.Source)
}

func TestValidSeries(t *testing.T) {
	good := Bar{Time: 100, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 0}

	assert.False(t, ValidSeries(nil))
	assert.True(t, ValidSeries([]Bar{good}))

	bad := good
	bad.Low = -1
	assert.False(t, ValidSeries([]Bar{good, bad}))

	bad = good
	bad.Close = math.NaN()
	assert.False(t, ValidSeries([]Bar{bad}))

	bad = good
	bad.High = math.Inf(1)
	assert.False(t, ValidSeries([]Bar{bad}))

	bad = good
	bad.Volume = -0.1
	assert.False(t, ValidSeries([]Bar{bad}))

	bad = good
	bad.Time = 0
	assert.False(t, ValidSeries([]Bar{bad}))
}

func TestNormalizeTokenAddress(t *testing.T) {
	assert.Equal(t, constants.WrappedSOLMint, NormalizeTokenAddress(constants.NativeSOLMint))
	assert.Equal(t, memeMint, NormalizeTokenAddress(memeMint))
}
