package coingecko_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alejandrodnm/tokenpools/internal/adapters/coingecko"
	"github.com/alejandrodnm/tokenpools/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server) *coingecko.Client {
	return coingecko.NewClient(coingecko.Config{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		RatePerSec: 1000,
		RetryWait:  time.Millisecond,
	})
}

func TestCurrentPrices_PartialResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		assert.Equal(t, "test-key", r.Header.Get("x-cg-demo-api-key"))
		w.Header().Set("Content-Type", "application/json")
		// "ghost" no tiene datos; "broken" viene sin usd
		w.Write([]byte(`{"bitcoin":{"usd":67000.5},"ethereum":{"usd":3100},"broken":{}}`))
	}))
	defer srv.Close()

	prices, err := newTestClient(srv).CurrentPrices(context.Background(), []string{"bitcoin", "ethereum", "ghost", "broken"})

	require.NoError(t, err)
	assert.Len(t, prices, 2)
	assert.InDelta(t, 67000.5, prices["bitcoin"], 1e-9)
	_, ok := prices["ghost"]
	assert.False(t, ok)
}

func TestCurrentPrices_EmptyInput(t *testing.T) {
	prices, err := coingecko.NewClient(coingecko.Config{BaseURL: "http://127.0.0.1:1"}).CurrentPrices(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, prices)
}

func TestCurrentPrices_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"bitcoin":{"usd":1}}`))
	}))
	defer srv.Close()

	prices, err := newTestClient(srv).CurrentPrices(context.Background(), []string{"bitcoin"})

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 1.0, prices["bitcoin"])
}

func TestCurrentPrices_BoundedRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).CurrentPrices(context.Background(), []string{"bitcoin"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOracleUnavailable)
	assert.Equal(t, int32(3), calls.Load(), "3 intentos como máximo")
}

func TestCurrentPrices_RateLimitWaitIsBounded(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"bitcoin":{"usd":1}}`))
	}))
	defer srv.Close()

	client := coingecko.NewClient(coingecko.Config{
		BaseURL:    srv.URL,
		RatePerSec: 0.01, // un turno cada 100s, burst 3
		MaxWait:    100 * time.Millisecond,
	})

	for i := 0; i < 3; i++ {
		_, err := client.CurrentPrices(context.Background(), []string{"bitcoin"})
		require.NoError(t, err)
	}

	start := time.Now()
	_, err := client.CurrentPrices(context.Background(), []string{"bitcoin"})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOracleUnavailable)
	assert.Less(t, elapsed, time.Second, "no espera el turno del limiter")
	assert.Equal(t, int32(3), calls.Load())
}

func TestCurrentPrices_RateLimitRespectsContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bitcoin":{"usd":1}}`))
	}))
	defer srv.Close()

	client := coingecko.NewClient(coingecko.Config{BaseURL: srv.URL, RatePerSec: 0.5})
	for i := 0; i < 3; i++ {
		_, err := client.CurrentPrices(context.Background(), []string{"bitcoin"})
		require.NoError(t, err)
	}

	// El siguiente turno llega en ~2s, más de lo que permite el contexto
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := client.CurrentPrices(ctx, []string{"bitcoin"})

	assert.ErrorIs(t, err, domain.ErrOracleUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCurrentPrices_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid key"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).CurrentPrices(context.Background(), []string{"bitcoin"})

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCurrentPrices_BatchSplitting(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		ids := strings.Split(r.URL.Query().Get("ids"), ",")
		resp := map[string]map[string]float64{}
		for _, id := range ids {
			resp[id] = map[string]float64{"usd": 2}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	ids := make([]string, 150)
	for i := range ids {
		ids[i] = "coin-" + strings.Repeat("x", i%7) + string(rune('a'+i%26)) + string(rune('a'+i/26))
	}

	prices, err := newTestClient(srv).CurrentPrices(context.Background(), ids)

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "150 ids → lote de 100 + lote de 50")
	assert.Len(t, prices, 150)
}

func TestTopAssets_MapsListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/markets", r.URL.Path)
		assert.Equal(t, "market_cap_desc", r.URL.Query().Get("order"))
		assert.Equal(t, "2", r.URL.Query().Get("per_page"))
		w.Write([]byte(`[
			{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":67000,"market_cap_rank":1},
			{"id":"ethereum","symbol":"eth","name":"Ethereum","current_price":null,"market_cap_rank":null}
		]`))
	}))
	defer srv.Close()

	assets, err := newTestClient(srv).TopAssets(context.Background(), 2)

	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "BTC", assets[0].Symbol)
	assert.Equal(t, 1, assets[0].MarketCapRank)
	assert.Equal(t, 2, assets[1].MarketCapRank)
	assert.Equal(t, 0.0, assets[1].CurrentPrice)
}
