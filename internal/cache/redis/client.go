// Package redis backs the keeper's hot price cache and the per-position
// withdrawal locks with go-redis/v9. Every key the package writes lives
// under the "jungle:" namespace so a shared Redis instance stays legible.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyNamespace prefixes every key this package writes.
const keyNamespace = "jungle"

// connectTimeout bounds the connectivity probe in New.
const connectTimeout = 3 * time.Second

// Key joins parts into a namespaced Redis key: Key("price", "ethereum")
// yields "jungle:price:ethereum".
func Key(parts ...string) string {
	return keyNamespace + ":" + strings.Join(parts, ":")
}

// ClientConfig holds connection parameters for the Redis client. Zero values
// for PoolSize and MaxRetries pick keeper defaults sized for the handful of
// agents sharing one connection pool.
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
}

// Client wraps a go-redis Client shared by the price cache and the lock
// manager.
type Client struct {
	rdb *redis.Client
}

// New connects to Redis and verifies connectivity before returning. The
// probe is bounded so a dead Redis fails wiring fast instead of hanging
// startup.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = 8
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: connect %s: %w", cfg.Addr, err)
	}

	return &Client{rdb: rdb}, nil
}

// Ping checks the Redis connection.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Underlying returns the raw *redis.Client for the cache and lock
// implementations in this package.
func (c *Client) Underlying() *redis.Client {
	return c.rdb
}
