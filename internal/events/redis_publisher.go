package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ChannelName returns the pub/sub channel of an event type.
func ChannelName(t EventType) string {
	return "events:" + string(t)
}

// RedisPublisher forwards events to Redis pub/sub for the notification
// service.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher creates a publisher.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Handle publishes event as JSON on its channel.
func (p *RedisPublisher) Handle(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.client.Publish(ctx, ChannelName(event.Type), data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}
