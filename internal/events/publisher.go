package events

import (
	"context"

	"github.com/streamhive/live-backend/internal/models"
)

// Publisher delivers outbound notifications. Implementations must treat
// publishes as fire-and-forget: a failed publish is logged by the caller's
// policy and never fails the surrounding operation.
type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event models.Event) error {
	return nil
}
