// Package redis keeps the market snapshot and the shared refresh lock in
// Redis using go-redis/v9.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// ClientConfig holds connection parameters for the Redis client. Prefix is
// prepended to every key so several deployments can share one database.
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
	Prefix     string
}

// Client is a go-redis client bound to a key namespace.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// New connects to Redis and checks the connection before returning, so a
// misconfigured backend fails at startup rather than on the first refresh.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: connect %s: %w", cfg.Addr, err)
	}
	return Wrap(rdb, cfg.Prefix), nil
}

// Wrap adopts an existing go-redis client, e.g. one produced by redismock.
// No connectivity check is made; the caller owns the client's lifecycle
// and may close it through the returned Client.
func Wrap(rdb *redis.Client, prefix string) *Client {
	return &Client{rdb: rdb, prefix: prefix}
}

// Key joins parts with ":" under the client's prefix.
func (c *Client) Key(parts ...string) string {
	return c.prefix + strings.Join(parts, ":")
}

// Close closes the connection pool. Locks still held by this process are
// left to expire through their TTL.
func (c *Client) Close() error {
	return c.rdb.Close()
}
