package oracle

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/celvios/Base-Jungle-sub000/internal/domain"
)

const (
	streamReadTimeout      = 60 * time.Second
	streamReconnectBackoff = 5 * time.Second
)

// priceTick is one message on the ticker stream.
type priceTick struct {
	Asset string  `json:"asset"`
	Price float64 `json:"price"`
}

// PriceStream maintains a websocket subscription to a ticker feed and writes
// every tick through to the price cache, so the polled feed's cached
// fallback is rarely stale. The stream is an optimization only: keepers
// never depend on it directly.
type PriceStream struct {
	url    string
	cache  domain.PriceCache
	logger *slog.Logger
}

// NewPriceStream creates a PriceStream for the given websocket URL.
func NewPriceStream(url string, cache domain.PriceCache, logger *slog.Logger) *PriceStream {
	return &PriceStream{
		url:    url,
		cache:  cache,
		logger: logger.With(slog.String("component", "price_stream")),
	}
}

// Run connects and consumes ticks until ctx is cancelled, reconnecting with
// a fixed backoff after any failure.
func (s *PriceStream) Run(ctx context.Context) error {
	for {
		if err := s.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.WarnContext(ctx, "stream disconnected, reconnecting",
				slog.String("error", err.Error()),
				slog.Duration("backoff", streamReconnectBackoff),
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(streamReconnectBackoff):
		}
	}
}

// consume holds one websocket session open and processes ticks until the
// connection drops or ctx is cancelled.
func (s *PriceStream) consume(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.logger.InfoContext(ctx, "price stream connected", slog.String("url", s.url))

	// Close the connection when ctx is cancelled so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(streamReadTimeout))

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var tick priceTick
		if err := json.Unmarshal(msg, &tick); err != nil {
			s.logger.DebugContext(ctx, "skipping unparseable tick", slog.String("error", err.Error()))
			continue
		}
		if tick.Asset == "" || tick.Price <= 0 {
			continue
		}

		if err := s.cache.SetPrice(ctx, tick.Asset, tick.Price, time.Now().UTC()); err != nil {
			s.logger.WarnContext(ctx, "tick cache write failed",
				slog.String("asset", tick.Asset),
				slog.String("error", err.Error()),
			)
		}
	}
}
