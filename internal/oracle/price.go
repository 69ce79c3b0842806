// Package oracle provides the price and gas inputs the keepers decide on:
// a polled HTTP price feed with cached and hardcoded fallbacks, a gas quote
// sampled from the node, and a websocket stream that keeps the cache warm.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/celvios/Base-Jungle-sub000/internal/domain"
)

// PriceFeed fetches asset USD prices from a CoinGecko-compatible endpoint.
// Lookups degrade in order: live feed, cached value, hardcoded fallback. A
// feed outage never aborts a keeper cycle.
type PriceFeed struct {
	baseURL   string
	client    *http.Client
	cache     domain.PriceCache
	fallbacks map[string]float64
	maxAge    time.Duration
	logger    *slog.Logger
}

// PriceFeedConfig holds the feed's endpoint and degradation parameters.
type PriceFeedConfig struct {
	BaseURL string
	// Fallbacks maps asset IDs to the constant used when both the feed and
	// the cache fail.
	Fallbacks map[string]float64
	// MaxAge is how old a cached price may be before a warning is logged.
	// Stale cached values are still used: a stale price beats a constant.
	MaxAge time.Duration
}

// NewPriceFeed creates a PriceFeed. cache may be nil, in which case misses
// fall straight through to the hardcoded fallbacks.
func NewPriceFeed(cfg PriceFeedConfig, cache domain.PriceCache, logger *slog.Logger) *PriceFeed {
	return &PriceFeed{
		baseURL:   cfg.BaseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		cache:     cache,
		fallbacks: cfg.Fallbacks,
		maxAge:    cfg.MaxAge,
		logger:    logger.With(slog.String("component", "price_feed")),
	}
}

// Price returns the USD price for the given asset ID. It only errors when
// the feed is down, nothing is cached, and no fallback constant is
// configured.
func (f *PriceFeed) Price(ctx context.Context, asset string) (float64, error) {
	price, err := f.fetch(ctx, asset)
	if err == nil {
		if f.cache != nil {
			if cacheErr := f.cache.SetPrice(ctx, asset, price, time.Now().UTC()); cacheErr != nil {
				f.logger.WarnContext(ctx, "price cache write failed",
					slog.String("asset", asset),
					slog.String("error", cacheErr.Error()),
				)
			}
		}
		return price, nil
	}

	f.logger.WarnContext(ctx, "price fetch failed, degrading",
		slog.String("asset", asset),
		slog.String("error", err.Error()),
	)

	if f.cache != nil {
		cached, ts, cacheErr := f.cache.GetPrice(ctx, asset)
		if cacheErr == nil {
			if f.maxAge > 0 && time.Since(ts) > f.maxAge {
				f.logger.WarnContext(ctx, "cached price is stale",
					slog.String("asset", asset),
					slog.Time("cached_at", ts),
				)
			}
			return cached, nil
		}
		if !errors.Is(cacheErr, domain.ErrNotFound) {
			f.logger.WarnContext(ctx, "price cache read failed",
				slog.String("asset", asset),
				slog.String("error", cacheErr.Error()),
			)
		}
	}

	if fallback, ok := f.fallbacks[asset]; ok {
		f.logger.WarnContext(ctx, "using hardcoded fallback price",
			slog.String("asset", asset),
			slog.Float64("price", fallback),
		)
		return fallback, nil
	}

	return 0, fmt.Errorf("oracle: no price available for %s: %w", asset, err)
}

// fetch hits the /simple/price endpoint for one asset.
func (f *PriceFeed) fetch(ctx context.Context, asset string) (float64, error) {
	u := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", f.baseURL, url.QueryEscape(asset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("oracle: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("oracle: fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("oracle: price feed status %d: %s", resp.StatusCode, string(body))
	}

	var parsed map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("oracle: decode price response: %w", err)
	}

	entry, ok := parsed[asset]
	if !ok {
		return 0, fmt.Errorf("oracle: asset %s missing from feed response", asset)
	}
	price, ok := entry["usd"]
	if !ok || price <= 0 {
		return 0, fmt.Errorf("oracle: no positive usd price for %s", asset)
	}
	return price, nil
}
