package jupiter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(srv *httptest.Server) *Client {
	c := NewClient(srv.URL, srv.URL+"/price", "")
	c.RetryBackoff = 0 // no sleeping in tests
	return c
}

func TestQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/quote", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "mintA", q.Get("inputMint"))
		assert.Equal(t, "mintB", q.Get("outputMint"))
		assert.Equal(t, "1000000", q.Get("amount"))
		assert.Equal(t, "ExactIn", q.Get("swapMode"))
		assert.Equal(t, "50", q.Get("slippageBps"))

		_ = json.NewEncoder(w).Encode(QuoteResponse{
			InputMint:  "mintA",
			OutputMint: "mintB",
			InAmount:   "1000000",
			OutAmount:  "5000000",
			SwapMode:   "ExactIn",
			RoutePlan: []RoutePlanStep{
				{SwapInfo: SwapInfo{Label: "Orca"}},
				{SwapInfo: SwapInfo{Label: "Raydium"}},
			},
		})
	}))
	defer srv.Close()

	slippage := uint16(50)
	out, err := testClient(srv).Quote(context.Background(), QuoteRequest{
		InputMint:   "mintA",
		OutputMint:  "mintB",
		Amount:      "1000000",
		SwapMode:    SwapModeExactIn,
		SlippageBps: &slippage,
	})
	require.NoError(t, err)
	assert.Equal(t, "5000000", out.OutAmount)
	assert.Equal(t, []string{"Orca", "Raydium"}, out.RouteLabels())
}

func TestQuote_RequiredParams(t *testing.T) {
	c := NewClient("http://invalid.test", "", "")
	_, err := c.Quote(context.Background(), QuoteRequest{OutputMint: "b", Amount: "1"})
	assert.Error(t, err)
	_, err = c.Quote(context.Background(), QuoteRequest{InputMint: "a", Amount: "1"})
	assert.Error(t, err)
	_, err = c.Quote(context.Background(), QuoteRequest{InputMint: "a", OutputMint: "b"})
	assert.Error(t, err)
}

func TestSwapInstructions_RetriesExactlyThreeTimes(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		// Simulate a transport-level failure by dropping the connection.
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		_ = conn.Close()
	}))
	defer srv.Close()

	_, err := testClient(srv).SwapInstructions(context.Background(), SwapInstructionsRequest{
		QuoteResponse: json.RawMessage(`{}`),
		UserPublicKey: "user",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingInstructions)

	// A would-be 4th attempt must not happen.
	assert.Equal(t, int32(3), calls.Load())
}

func TestSwapInstructions_SucceedsAfterTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			hj := w.(http.Hijacker)
			conn, _, _ := hj.Hijack()
			_ = conn.Close()
			return
		}
		_ = json.NewEncoder(w).Encode(SwapInstructionsResponse{
			SwapInstruction: &Instruction{ProgramID: "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"},
		})
	}))
	defer srv.Close()

	out, err := testClient(srv).SwapInstructions(context.Background(), SwapInstructionsRequest{
		QuoteResponse: json.RawMessage(`{}`),
		UserPublicKey: "user",
	})
	require.NoError(t, err)
	require.NotNil(t, out.SwapInstruction)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSwapInstructions_APIErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(SwapInstructionsResponse{Error: "no route"})
	}))
	defer srv.Close()

	_, err := testClient(srv).SwapInstructions(context.Background(), SwapInstructionsRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingInstructions)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/price", r.URL.Path)
		assert.Equal(t, "mintA,mintB", r.URL.Query().Get("ids"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"mintA": map[string]any{"id": "mintA", "price": 1.5},
			},
		})
	}))
	defer srv.Close()

	out, err := testClient(srv).Prices(context.Background(), []string{"mintA", " ", "mintB"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.InDelta(t, 1.5, out["mintA"].Price, 1e-9)
}

func TestPrices_EmptySet(t *testing.T) {
	out, err := NewClient("http://invalid.test", "http://invalid.test", "").
		Prices(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
