package coinmarketcap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopAssets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/cryptocurrency/listings/latest", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-CMC_PRO_API_KEY"))
		q := r.URL.Query()
		assert.Equal(t, "1", q.Get("start"))
		assert.Equal(t, "25", q.Get("limit"))
		assert.Equal(t, "USD", q.Get("convert"))
		assert.Equal(t, "market_cap", q.Get("sort"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":{"error_code":0},"data":[
			{"symbol":"BTC","name":"Bitcoin","cmc_rank":1,"quote":{"USD":{"price":65432.1,"market_cap":1287654321000.5}}},
			{"symbol":"ETH","name":"Ethereum","cmc_rank":2,"quote":{"USD":{"price":3456.78,"market_cap":415000000000}}},
			{"symbol":"","name":"Broken","cmc_rank":3}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "secret", BaseURL: srv.URL})

	assets, err := c.TopAssets(context.Background(), 25)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "BTC", assets[0].Symbol)
	assert.Equal(t, 1, assets[0].Rank)
	assert.Equal(t, "65432.1", assets[0].Price.String())
	assert.Equal(t, "ETH", assets[1].Symbol)
	assert.Equal(t, "Ethereum", assets[1].Name)
}

func TestTopAssetsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status":{"error_code":1002,"error_message":"API key missing."}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "bad", BaseURL: srv.URL})

	_, err := c.TopAssets(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key missing")
}

func TestTopAssetsMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"not":"an array"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "secret", BaseURL: srv.URL})

	_, err := c.TopAssets(context.Background(), 10)
	assert.Error(t, err)
}

func TestTopAssetsRequiresKey(t *testing.T) {
	c := NewClient(Config{})
	_, err := c.TopAssets(context.Background(), 10)
	assert.Error(t, err)
}
