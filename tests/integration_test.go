package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapfy/terminal/internal/chart"
	"github.com/swapfy/terminal/internal/constants"
	"github.com/swapfy/terminal/internal/history"
	"github.com/swapfy/terminal/internal/jupiter"
	"github.com/swapfy/terminal/internal/prefs"
	"github.com/swapfy/terminal/internal/prices"
	"github.com/swapfy/terminal/internal/registry"
	"github.com/swapfy/terminal/internal/server"
	"github.com/swapfy/terminal/internal/swap"
)

const (
	testAPIAddr = ":8091"
	testBaseURL = "http://localhost:8091"
	testAPIKey  = "test-api-key-integration"
	testPrefix  = "swapfy-it"
	testOwner   = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
)

type staticQuoter struct{}

func (staticQuoter) Quote(ctx context.Context, req jupiter.QuoteRequest) (*jupiter.QuoteResponse, error) {
	return &jupiter.QuoteResponse{
		InputMint:  req.InputMint,
		OutputMint: req.OutputMint,
		InAmount:   req.Amount,
		OutAmount:  "250000000",
		SwapMode:   req.SwapMode,
	}, nil
}

type staticBars struct{}

func (staticBars) GetBars(ctx context.Context, symbol string, from, to int64, resolution, currencyCode string) []chart.Bar {
	return []chart.Bar{{Time: from, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 3}}
}

func (staticBars) ListPairs(ctx context.Context, tokenAddress string, limit int) ([]chart.Pair, error) {
	return nil, nil
}

func setupIntegrationTest(t *testing.T) (*redis.Client, *history.Recorder, func()) {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   2, // separate DB for integration tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for integration tests: %v", err)
	}
	_ = redisClient.FlushDB(ctx).Err()

	logger := logrus.New()

	reg := registry.New([]registry.TokenInfo{
		{Address: constants.USDCMint, Symbol: "USDC", Name: "USD Coin", Decimals: 6},
		{Address: constants.WrappedSOLMint, Symbol: "SOL", Name: "Wrapped SOL", Decimals: 9},
	})

	cache := prices.NewCache(logger, prices.WithRedis(redisClient, testPrefix))
	batch := prices.NewBatcher(cache, func(ctx context.Context, addrs []string) (map[string]jupiter.PriceEntry, error) {
		out := make(map[string]jupiter.PriceEntry, len(addrs))
		for _, a := range addrs {
			out[a] = jupiter.PriceEntry{ID: a, Price: 2.5}
		}
		return out, nil
	}, logger)

	prefStore, err := prefs.NewStore(redisClient, testPrefix)
	require.NoError(t, err)

	recorder, err := history.NewRecorder(redisClient, testPrefix, logger)
	require.NoError(t, err)

	formCtx, formCancel := context.WithCancel(context.Background())
	form := swap.NewForm(formCtx, swap.FormConfig{
		Quoter:   staticQuoter{},
		Registry: reg,
		Logger:   logger,
		Debounce: time.Hour,
	})

	handlers := &server.Handlers{
		Form:     form,
		Charts:   chart.NewResolver(staticBars{}, logger),
		Prices:   cache,
		Batch:    batch,
		Prefs:    prefStore,
		Attempts: recorder,
		Tokens:   reg,
		DevMode:  true,
		Logger:   logger,
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: handlers,
		Config: server.ServerConfig{
			Addr:    testAPIAddr,
			DevMode: true,
			APIKey:  testAPIKey,
		},
	})
	require.NoError(t, err)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			t.Logf("Server error: %v", err)
		}
	}()

	time.Sleep(100 * time.Millisecond)

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(ctx)
		formCancel()
		form.Close()
		batch.Close()
		_ = redisClient.FlushDB(ctx).Err()
		_ = redisClient.Close()
	}

	return redisClient, recorder, cleanup
}

func makeRequest(t *testing.T, method, url string, body any, expectedStatus int) *http.Response {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)

	assert.Equal(t, expectedStatus, resp.StatusCode)

	return resp
}

func TestIntegration_Health(t *testing.T) {
	_, _, cleanup := setupIntegrationTest(t)
	defer cleanup()

	resp := makeRequest(t, http.MethodGet, testBaseURL+"/v1/health", nil, http.StatusOK)
	defer resp.Body.Close()

	var response server.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	assert.True(t, response.OK)
}

func TestIntegration_QuoteFlow(t *testing.T) {
	_, _, cleanup := setupIntegrationTest(t)
	defer cleanup()

	payload := map[string]any{"side": "from", "amount": "100"}
	resp := makeRequest(t, http.MethodPost, testBaseURL+"/v1/quote", payload, http.StatusOK)
	defer resp.Body.Close()

	var state swap.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Equal(t, "100", state.FromValue)
	assert.Equal(t, "0.250000", state.ToValue)
	assert.False(t, state.QuoteStale)
}

func TestIntegration_PrefsRoundTrip(t *testing.T) {
	_, _, cleanup := setupIntegrationTest(t)
	defer cleanup()

	// Defaults before anything is saved.
	resp := makeRequest(t, http.MethodGet, testBaseURL+"/v1/prefs?owner="+testOwner, nil, http.StatusOK)
	var got prefs.Preferences
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	assert.Equal(t, prefs.SlippageDynamic, got.SlippageMode)
	assert.Equal(t, uint16(constants.DefaultSlippageBps), got.SlippageBps)

	// Save fixed slippage.
	payload := map[string]any{
		"owner":         testOwner,
		"slippageMode":  "FIXED",
		"slippageBps":   125,
		"dynamicMaxBps": 300,
	}
	resp = makeRequest(t, http.MethodPut, testBaseURL+"/v1/prefs", payload, http.StatusOK)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	assert.Equal(t, prefs.SlippageFixed, got.SlippageMode)
	assert.Equal(t, uint16(125), got.SlippageBps)
	assert.False(t, got.UpdatedAt.IsZero())

	// Read back.
	resp = makeRequest(t, http.MethodGet, testBaseURL+"/v1/prefs?owner="+testOwner, nil, http.StatusOK)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	assert.Equal(t, uint16(125), got.SlippageBps)
}

func TestIntegration_RecentAttempts(t *testing.T) {
	_, recorder, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, recorder.Record(ctx, &history.Attempt{
		Signature: "sig-int-1",
		Owner:     testOwner,
		Status:    history.StatusSuccess,
		FromMint:  constants.USDCMint,
		ToMint:    constants.WrappedSOLMint,
		SwapMode:  jupiter.SwapModeExactIn,
		StartedAt: time.Now().UTC(),
	}))

	resp := makeRequest(t, http.MethodGet, testBaseURL+"/v1/attempts/recent", nil, http.StatusOK)
	defer resp.Body.Close()

	var listResponse struct {
		Items []*history.Attempt `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listResponse))
	require.Len(t, listResponse.Items, 1)
	assert.Equal(t, "sig-int-1", listResponse.Items[0].Signature)
}

func TestIntegration_Prices(t *testing.T) {
	_, _, cleanup := setupIntegrationTest(t)
	defer cleanup()

	resp := makeRequest(t, http.MethodGet, testBaseURL+"/v1/prices?ids="+constants.USDCMint, nil, http.StatusOK)
	defer resp.Body.Close()

	var response struct {
		Prices map[string]prices.Quote `json:"prices"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	require.Contains(t, response.Prices, constants.USDCMint)
	assert.Equal(t, 2.5, response.Prices[constants.USDCMint].Price)
}

func TestIntegration_RequiresAPIKey(t *testing.T) {
	_, _, cleanup := setupIntegrationTest(t)
	defer cleanup()

	req, err := http.NewRequest(http.MethodGet, testBaseURL+"/v1/health", nil)
	require.NoError(t, err)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
