package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps Redis operations for the ingest pipeline and notification fanout.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL       string        `yaml:"url"`
	Password  string        `yaml:"password"`
	Channel   string        `yaml:"channel"`
	DedupeTTL time.Duration `yaml:"dedupe_ttl"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health checks if the Redis connection is alive.
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func seenKey(txID string) string {
	return fmt.Sprintf("seen_tx:%s", txID)
}

// MarkSeen records a tx id for deduplication. Returns true when this is the
// first sighting within the TTL window, false when the id was already seen.
func (c *Client) MarkSeen(ctx context.Context, txID string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, seenKey(txID), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	return ok, nil
}

// ClearSeen drops the dedupe marker for a tx id.
func (c *Client) ClearSeen(ctx context.Context, txID string) error {
	return c.rdb.Del(ctx, seenKey(txID)).Err()
}

// Publish sends a payload to a pub/sub channel. Subscribers that are not
// listening at publish time miss the message.
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := c.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	return nil
}

// Subscribe opens a pub/sub subscription on a channel. The caller owns the
// returned PubSub and must Close it.
func (c *Client) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	return c.rdb.Subscribe(ctx, channel)
}
