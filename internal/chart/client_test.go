package chart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphqlServer(t *testing.T, handler func(query string, vars map[string]any) any) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": handler(req.Query, req.Variables),
		})
	}))
}

func TestGetBars_ParsesParallelArrays(t *testing.T) {
	srv := graphqlServer(t, func(_ string, vars map[string]any) any {
		assert.Equal(t, "mint:1399811149", vars["symbol"])
		assert.Equal(t, "USD", vars["currencyCode"])
		return map[string]any{
			"getBars": map[string]any{
				"t": []int64{100, 200},
				"o": []float64{1, 2},
				"h": []float64{1.5, 2.5},
				"l": []float64{0.5, 1.5},
				"c": []float64{1.2, 2.2},
				"v": []float64{10, 20},
				"s": "ok",
			},
		}
	})
	defer srv.Close()

	c := NewClient(srv.URL, "", logrus.New())
	bars := c.GetBars(context.Background(), "mint:1399811149", 0, 300, "1", "")
	require.Len(t, bars, 2)
	assert.Equal(t, Bar{Time: 200, Open: 2, High: 2.5, Low: 1.5, Close: 2.2, Volume: 20}, bars[1])
}

func TestGetBars_NonOKStatusIsEmpty(t *testing.T) {
	srv := graphqlServer(t, func(_ string, _ map[string]any) any {
		return map[string]any{
			"getBars": map[string]any{"t": []int64{}, "s": "no_data"},
		}
	})
	defer srv.Close()

	c := NewClient(srv.URL, "", logrus.New())
	assert.Empty(t, c.GetBars(context.Background(), "mint:1", 0, 300, "1", "USD"))
}

func TestGetBars_GraphQLErrorIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]any{{"message": "rate limited"}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", logrus.New())
	assert.Empty(t, c.GetBars(context.Background(), "mint:1", 0, 300, "1", "USD"))
}

func TestListPairs(t *testing.T) {
	srv := graphqlServer(t, func(_ string, vars map[string]any) any {
		assert.Equal(t, float64(1399811149), vars["networkId"])
		return map[string]any{
			"listPairsWithMetadataForToken": map[string]any{
				"results": []map[string]any{
					{"pairAddress": "pool1", "token0": "a", "token1": "b", "liquidity": "100"},
				},
			},
		}
	})
	defer srv.Close()

	c := NewClient(srv.URL, "", logrus.New())
	pairs, err := c.ListPairs(context.Background(), "a", 0)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "pool1", pairs[0].PairAddress)
}

func TestPairLiquidity_DegradesToZeros(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", logrus.New())
	stats := c.PairLiquidity(context.Background(), "pool1")
	assert.Equal(t, PairStats{Liquidity: "0", Volume24h: "0"}, stats)
}
