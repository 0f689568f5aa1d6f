package session

import (
	"context"

	"github.com/google/uuid"

	"github.com/streamhive/live-backend/internal/models"
)

// Repository is the durable store for sessions and stream keys.
type Repository interface {
	ResolveStreamKey(ctx context.Context, streamKey string) (*models.StreamKeyRecord, error)
	CreateSession(ctx context.Context, session *models.StreamSession) (*models.StreamSession, error)
	UpdateSession(ctx context.Context, session *models.StreamSession) error
	GetSessionByID(ctx context.Context, sessionID uuid.UUID) (*models.StreamSession, error)
	GetLiveSessions(ctx context.Context) ([]*models.StreamSession, error)
}
