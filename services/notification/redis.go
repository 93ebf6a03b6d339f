package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisNotifier publishes to the per-user channel notifications:<userID>.
type RedisNotifier struct {
	client *redis.Client
}

func NewRedisNotifier(client *redis.Client) (*RedisNotifier, error) {
	if client == nil {
		return nil, fmt.Errorf("notification service initialization error: redis client is nil")
	}
	return &RedisNotifier{client: client}, nil
}

func Channel(userID string) string {
	return "notifications:" + userID
}

func (n *RedisNotifier) Notify(ctx context.Context, userID string, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("Notify: failed to encode message: %w", err)
	}
	if err := n.client.Publish(ctx, Channel(userID), payload).Err(); err != nil {
		return fmt.Errorf("Notify: failed to publish to %s: %w", userID, err)
	}
	return nil
}
