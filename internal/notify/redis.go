package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"botwatch/internal/core/domain"
	redisclient "botwatch/internal/infra/redis"
)

// RedisEmitter publishes notifications to a Redis pub/sub channel so that
// dashboards on other hosts can follow the stream. Pub/sub has no backlog;
// subscribers that are offline at publish time miss the message.
type RedisEmitter struct {
	client  *redisclient.Client
	channel string
}

// NewRedisEmitter creates an emitter publishing to the given channel.
func NewRedisEmitter(client *redisclient.Client, channel string) *RedisEmitter {
	return &RedisEmitter{
		client:  client,
		channel: channel,
	}
}

// Emit publishes one notification as JSON.
func (e *RedisEmitter) Emit(ctx context.Context, n *domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := e.client.Publish(ctx, e.channel, payload); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// EmitBatch publishes multiple notifications, stopping at the first error.
func (e *RedisEmitter) EmitBatch(ctx context.Context, ns []*domain.Notification) error {
	for _, n := range ns {
		if err := e.Emit(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; the Redis client is shared and closed by its owner.
func (e *RedisEmitter) Close() error {
	return nil
}
