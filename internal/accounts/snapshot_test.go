package accounts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapfy/terminal/internal/rpc"
)

func rpcServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		switch req.Method {
		case "getTokenAccountsByOwner":
			_, _ = w.Write([]byte(`{
				"jsonrpc": "2.0", "id": 1,
				"result": {"value": [
					{"account": {"data": {"parsed": {"info": {
						"mint": "mintA",
						"tokenAmount": {"amount": "1000000", "decimals": 6, "uiAmount": 1.0, "uiAmountString": "1"}
					}}}}},
					{"account": {"data": {"parsed": {"info": {
						"mint": "mintA",
						"tokenAmount": {"amount": "500000", "decimals": 6, "uiAmount": 0.5, "uiAmountString": "0.5"}
					}}}}},
					{"account": {"data": {"parsed": {"info": {
						"mint": "mintB",
						"tokenAmount": {"amount": "42", "decimals": 0, "uiAmount": 42.0, "uiAmountString": "42"}
					}}}}}
				]}
			}`))
		case "getBalance":
			_, _ = w.Write([]byte(`{"jsonrpc": "2.0", "id": 1, "result": {"value": 2500000000}}`))
		default:
			t.Fatalf("unexpected method %s", req.Method)
		}
	}))
}

func TestSnapshot_Refresh(t *testing.T) {
	srv := rpcServer(t)
	defer srv.Close()

	client := rpc.NewClient(rpc.ClientConfig{BaseURL: srv.URL, Logger: logrus.New()})
	snap := NewSnapshot(client, "owner", logrus.New())

	assert.Zero(t, snap.Balance("mintA"))
	require.NoError(t, snap.Refresh(context.Background()))

	// Two accounts for the same mint are summed.
	a := snap.Balance("mintA")
	assert.Equal(t, uint64(1500000), a.Raw)
	assert.InDelta(t, 1.5, a.UI, 1e-9)
	assert.Equal(t, uint8(6), a.Decimals)

	b := snap.Balance("mintB")
	assert.Equal(t, uint64(42), b.Raw)

	assert.Equal(t, uint64(2500000000), snap.SOLLamports())
	assert.ElementsMatch(t, []string{"mintA", "mintB"}, snap.Mints())
	assert.Len(t, snap.All(), 2)
	assert.False(t, snap.RefreshedAt().IsZero())
}
