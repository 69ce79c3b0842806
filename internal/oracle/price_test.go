package oracle

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celvios/Base-Jungle-sub000/internal/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func priceServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPriceFetchesFromFeed(t *testing.T) {
	srv := priceServer(t, `{"ethereum":{"usd":4012.34}}`, http.StatusOK)

	feed := NewPriceFeed(PriceFeedConfig{BaseURL: srv.URL}, memory.NewPriceCache(), testLogger())

	price, err := feed.Price(context.Background(), "ethereum")
	require.NoError(t, err)
	assert.InDelta(t, 4012.34, price, 1e-9)
}

func TestPriceWriteThroughCache(t *testing.T) {
	srv := priceServer(t, `{"ethereum":{"usd":4000}}`, http.StatusOK)
	cache := memory.NewPriceCache()

	feed := NewPriceFeed(PriceFeedConfig{BaseURL: srv.URL}, cache, testLogger())
	_, err := feed.Price(context.Background(), "ethereum")
	require.NoError(t, err)

	cached, _, err := cache.GetPrice(context.Background(), "ethereum")
	require.NoError(t, err)
	assert.InDelta(t, 4000, cached, 1e-9)
}

func TestPriceDegradesToCache(t *testing.T) {
	srv := priceServer(t, "upstream exploded", http.StatusBadGateway)
	cache := memory.NewPriceCache()
	require.NoError(t, cache.SetPrice(context.Background(), "ethereum", 3900, time.Now().UTC()))

	feed := NewPriceFeed(PriceFeedConfig{
		BaseURL:   srv.URL,
		Fallbacks: map[string]float64{"ethereum": 3000},
		MaxAge:    time.Minute,
	}, cache, testLogger())

	price, err := feed.Price(context.Background(), "ethereum")
	require.NoError(t, err)
	assert.InDelta(t, 3900, price, 1e-9, "cached value beats the fallback constant")
}

func TestPriceDegradesToFallbackConstant(t *testing.T) {
	srv := priceServer(t, "nope", http.StatusServiceUnavailable)

	feed := NewPriceFeed(PriceFeedConfig{
		BaseURL:   srv.URL,
		Fallbacks: map[string]float64{"ethereum": 3000},
	}, memory.NewPriceCache(), testLogger())

	price, err := feed.Price(context.Background(), "ethereum")
	require.NoError(t, err)
	assert.InDelta(t, 3000, price, 1e-9)
}

func TestPriceErrorsWhenNothingAvailable(t *testing.T) {
	srv := priceServer(t, "nope", http.StatusServiceUnavailable)

	feed := NewPriceFeed(PriceFeedConfig{BaseURL: srv.URL}, memory.NewPriceCache(), testLogger())

	_, err := feed.Price(context.Background(), "unknown-asset")
	require.Error(t, err)
}

func TestPriceRejectsNonPositive(t *testing.T) {
	srv := priceServer(t, `{"ethereum":{"usd":0}}`, http.StatusOK)

	feed := NewPriceFeed(PriceFeedConfig{
		BaseURL:   srv.URL,
		Fallbacks: map[string]float64{"ethereum": 3000},
	}, memory.NewPriceCache(), testLogger())

	// A zero price from the feed is treated as a feed failure.
	price, err := feed.Price(context.Background(), "ethereum")
	require.NoError(t, err)
	assert.InDelta(t, 3000, price, 1e-9)
}
