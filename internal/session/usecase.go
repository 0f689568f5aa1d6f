package session

import (
	"context"

	"github.com/google/uuid"

	"github.com/streamhive/live-backend/internal/models"
)

// UseCase is the stream session manager: the single source of truth for
// whether a stream key is currently live, viewer accounting, and handoff of
// finished recordings to the transcode queue.
type UseCase interface {
	// AuthorizeIngest resolves the owner of streamKey and atomically reserves
	// the key and owner for a new live session. Returns an
	// *models.AuthorizationError for unknown keys and duplicate publishes.
	AuthorizeIngest(ctx context.Context, streamKey string) (uuid.UUID, error)

	// StartSession completes the reservation made by AuthorizeIngest and
	// persists the new live session.
	StartSession(ctx context.Context, streamKey string, ownerID uuid.UUID, metadata models.SessionMetadata) (uuid.UUID, error)

	// EndSession transitions the live session for streamKey to ended and, if
	// recordingPath is set, enqueues the transcode job for the recording.
	EndSession(ctx context.Context, streamKey string, recordingPath string) error

	// AuthorizePlayback succeeds iff a live session exists for streamKey.
	AuthorizePlayback(ctx context.Context, streamKey string) (uuid.UUID, error)

	JoinViewer(ctx context.Context, streamKey string) (int, error)
	LeaveViewer(ctx context.Context, streamKey string) (int, error)

	GetSession(ctx context.Context, streamKey string) (*models.StreamSession, error)
	ListLiveSessions(ctx context.Context) []*models.StreamSession

	// Recover reloads live sessions from the durable store after a restart
	// and flags them unverified.
	Recover(ctx context.Context) error

	// ExpireUnverified ends unverified live sessions whose heartbeat window
	// has elapsed. Returns how many were expired.
	ExpireUnverified(ctx context.Context) int
}
