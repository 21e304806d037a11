package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryDiscoverFiltersTradingQuotePairs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/exchangeInfo", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"timezone":"UTC","serverTime":1740787200000,"symbols":[
			{"symbol":"BTCUSDT","status":"TRADING","baseAsset":"BTC","quoteAsset":"USDT"},
			{"symbol":"ETHUSDT","status":"TRADING","baseAsset":"ETH","quoteAsset":"USDT"},
			{"symbol":"LUNAUSDT","status":"BREAK","baseAsset":"LUNA","quoteAsset":"USDT"},
			{"symbol":"ETHBTC","status":"TRADING","baseAsset":"ETH","quoteAsset":"BTC"}
		]}`))
	}))
	defer srv.Close()

	svc, err := NewRegistryService(Config{RESTBaseURL: srv.URL})
	require.NoError(t, err)

	registry := svc.Discover(context.Background())

	assert.Len(t, registry, 2)
	assert.Contains(t, registry, "BTCUSDT")
	assert.Contains(t, registry, "ETHUSDT")
	assert.NotContains(t, registry, "LUNAUSDT")
	assert.NotContains(t, registry, "ETHBTC")
	assert.Equal(t, "USDT", svc.QuoteAsset())
}

func TestRegistryDiscoverFailsSoft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	svc, err := NewRegistryService(Config{RESTBaseURL: srv.URL})
	require.NoError(t, err)

	registry := svc.Discover(context.Background())

	assert.NotNil(t, registry)
	assert.Empty(t, registry)
}
