package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamhive/live-backend/internal/models"
)

func TestRedisPublisher_PublishesOnTypedChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	sub := client.Subscribe(context.Background(), "events:stream_started")
	t.Cleanup(func() { sub.Close() })
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	publisher := NewRedisPublisher(client, "events")
	require.NoError(t, publisher.Publish(context.Background(), models.Event{
		Type:        models.EventStreamStarted,
		StreamKey:   "key-live",
		SessionID:   "sess-1",
		ViewerCount: 0,
	}))

	select {
	case msg := <-sub.Channel():
		var event models.Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		assert.Equal(t, models.EventStreamStarted, event.Type)
		assert.Equal(t, "key-live", event.StreamKey)
		assert.False(t, event.OccurredAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no event received on channel")
	}
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), models.Event{Type: models.EventJobProgress}))
}
