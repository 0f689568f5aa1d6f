package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/streamhive/live-backend/internal/models"
)

type redisPublisher struct {
	redisClient *redis.Client
	prefix      string
}

// NewRedisPublisher publishes events on one redis pub/sub channel per event
// type, "<prefix>:<type>".
func NewRedisPublisher(redisClient *redis.Client, prefix string) Publisher {
	if prefix == "" {
		prefix = "events"
	}
	return &redisPublisher{
		redisClient: redisClient,
		prefix:      prefix,
	}
}

func (p *redisPublisher) Publish(ctx context.Context, event models.Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	channel := fmt.Sprintf("%s:%s", p.prefix, event.Type)
	if err := p.redisClient.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", channel, err)
	}
	return nil
}
