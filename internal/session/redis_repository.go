package session

import (
	"context"

	"github.com/streamhive/live-backend/internal/models"
)

// RedisRepository is the fast cache for live sessions. The live:<key> entry
// doubles as the playback authorization fast path.
type RedisRepository interface {
	SetLiveSession(ctx context.Context, session *models.StreamSession) error
	GetLiveSession(ctx context.Context, streamKey string) (*models.StreamSession, error)
	DeleteLiveSession(ctx context.Context, streamKey string) error
	SetViewerCount(ctx context.Context, streamKey string, count int) error
}
