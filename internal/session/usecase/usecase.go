package usecase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/streamhive/live-backend/internal/config"
	"github.com/streamhive/live-backend/internal/events"
	"github.com/streamhive/live-backend/internal/models"
	"github.com/streamhive/live-backend/internal/session"
	"github.com/streamhive/live-backend/pkg/logger"
	"github.com/streamhive/live-backend/pkg/utils"
)

// TranscodeQueue is the slice of the transcode job queue the session manager
// needs for the recording handoff.
type TranscodeQueue interface {
	AddJob(ctx context.Context, ownerID string, inputPath string, options models.JobOptions) (string, error)
}

type sessionUC struct {
	cfg         *config.Config
	sessionRepo session.Repository
	redisRepo   session.RedisRepository
	queue       TranscodeQueue
	publisher   events.Publisher
	registry    *sessionRegistry
	logger      logger.Logger
}

func NewSessionUseCase(
	cfg *config.Config,
	sessionRepo session.Repository,
	redisRepo session.RedisRepository,
	queue TranscodeQueue,
	publisher events.Publisher,
	log logger.Logger,
) session.UseCase {
	return &sessionUC{
		cfg:         cfg,
		sessionRepo: sessionRepo,
		redisRepo:   redisRepo,
		queue:       queue,
		publisher:   publisher,
		registry:    newSessionRegistry(),
		logger:      log,
	}
}

func (u *sessionUC) AuthorizeIngest(ctx context.Context, streamKey string) (uuid.UUID, error) {
	record, err := u.sessionRepo.ResolveStreamKey(ctx, streamKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, &models.AuthorizationError{StreamKey: streamKey, Reason: "unknown stream key"}
		}
		u.logger.Errorf("AuthorizeIngest - ResolveStreamKey error: %v", err)
		return uuid.Nil, fmt.Errorf("failed to resolve stream key: %w", err)
	}
	if !record.Active {
		return uuid.Nil, &models.AuthorizationError{StreamKey: streamKey, Reason: "stream key inactive"}
	}

	// A recovered-but-unverified session for this key means the publisher is
	// reconnecting. End the stale record so the fresh publish can proceed.
	if entry, ok := u.registry.get(streamKey); ok && entryRecovered(entry) {
		u.logger.Infof("ending stale recovered session for key %s before fresh publish", streamKey)
		u.endEntry(ctx, streamKey, entry, "")
	}

	if _, ok := u.registry.reserve(streamKey, record.OwnerID); !ok {
		return uuid.Nil, &models.AuthorizationError{StreamKey: streamKey, Reason: "already live"}
	}
	return record.OwnerID, nil
}

func (u *sessionUC) StartSession(ctx context.Context, streamKey string, ownerID uuid.UUID, metadata models.SessionMetadata) (uuid.UUID, error) {
	entry, ok := u.registry.get(streamKey)
	if !ok {
		// Direct start without a prior AuthorizeIngest still goes through the
		// atomic reservation.
		entry, ok = u.registry.reserve(streamKey, ownerID)
		if !ok {
			return uuid.Nil, &models.AuthorizationError{StreamKey: streamKey, Reason: "already live"}
		}
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.session != nil {
		return uuid.Nil, &models.AuthorizationError{StreamKey: streamKey, Reason: "already live"}
	}

	// Past this point the entry is a bare reservation; any failure frees it
	// so a retried publish is not refused against a session that never
	// existed.
	if err := utils.ValidateStruct(ctx, &metadata); err != nil {
		u.registry.remove(streamKey)
		return uuid.Nil, fmt.Errorf("invalid metadata: %w", err)
	}

	sess := &models.StreamSession{
		SessionID:   uuid.New(),
		StreamKey:   streamKey,
		OwnerID:     ownerID,
		Title:       metadata.Title,
		Category:    metadata.Category,
		State:       models.SessionStateLive,
		ViewerCount: 0,
		StartedAt:   time.Now(),
	}

	created, err := u.sessionRepo.CreateSession(ctx, sess)
	if err != nil {
		u.registry.remove(streamKey)
		u.logger.Errorf("StartSession - CreateSession error: %v", err)
		return uuid.Nil, fmt.Errorf("failed to persist session: %w", err)
	}
	if err := u.redisRepo.SetLiveSession(ctx, created); err != nil {
		u.logger.Warnf("StartSession - fast cache write failed for key %s: %v", streamKey, err)
	}
	entry.session = created

	u.publish(ctx, models.Event{
		Type:      models.EventStreamStarted,
		StreamKey: streamKey,
		SessionID: created.SessionID.String(),
		OwnerID:   ownerID.String(),
	})
	u.logger.Infof("session %s started for key %s", created.SessionID, streamKey)
	return created.SessionID, nil
}

func (u *sessionUC) EndSession(ctx context.Context, streamKey string, recordingPath string) error {
	entry, ok := u.registry.get(streamKey)
	if !ok {
		return models.ErrSessionNotFound
	}
	return u.endEntry(ctx, streamKey, entry, recordingPath)
}

func (u *sessionUC) endEntry(ctx context.Context, streamKey string, entry *sessionEntry, recordingPath string) error {
	entry.mu.Lock()
	defer entry.mu.Unlock()

	sess := entry.session
	if sess == nil {
		u.registry.remove(streamKey)
		return models.ErrSessionNotFound
	}

	if sess.State == models.SessionStateLive {
		now := time.Now()
		sess.State = models.SessionStateEnded
		sess.EndedAt = &now
		sess.Duration = int64(now.Sub(sess.StartedAt).Seconds())
		sess.RecordingPath = recordingPath

		if recordingPath != "" {
			jobID, err := u.queue.AddJob(ctx, sess.OwnerID.String(), recordingPath, u.defaultJobOptions())
			if err != nil {
				// The session still ends; the recording can be re-enqueued later.
				u.logger.Errorf("EndSession - AddJob failed for recording %s: %v", recordingPath, err)
			} else {
				sess.TranscodeJobID = jobID
			}
		}
	}

	// An entry already marked ended means an earlier persist attempt failed;
	// retry the write rather than discard the session.
	if err := u.sessionRepo.UpdateSession(ctx, sess); err != nil {
		u.logger.Errorf("EndSession - UpdateSession error: %v", err)
		return fmt.Errorf("failed to persist session end: %w", err)
	}
	if err := u.redisRepo.DeleteLiveSession(ctx, streamKey); err != nil {
		u.logger.Warnf("EndSession - fast cache delete failed for key %s: %v", streamKey, err)
	}
	u.registry.remove(streamKey)

	u.publish(ctx, models.Event{
		Type:      models.EventStreamEnded,
		StreamKey: streamKey,
		SessionID: sess.SessionID.String(),
		OwnerID:   sess.OwnerID.String(),
	})
	u.logger.Infof("session %s ended for key %s after %ds", sess.SessionID, streamKey, sess.Duration)
	return nil
}

func (u *sessionUC) AuthorizePlayback(ctx context.Context, streamKey string) (uuid.UUID, error) {
	entry, ok := u.registry.get(streamKey)
	if !ok || !entry.live() {
		return uuid.Nil, &models.AuthorizationError{StreamKey: streamKey, Reason: "stream is not live"}
	}
	return entry.ownerID, nil
}

func (u *sessionUC) JoinViewer(ctx context.Context, streamKey string) (int, error) {
	return u.changeViewers(ctx, streamKey, 1)
}

func (u *sessionUC) LeaveViewer(ctx context.Context, streamKey string) (int, error) {
	return u.changeViewers(ctx, streamKey, -1)
}

func (u *sessionUC) changeViewers(ctx context.Context, streamKey string, delta int) (int, error) {
	entry, ok := u.registry.get(streamKey)
	if !ok {
		return 0, models.ErrSessionNotFound
	}

	entry.mu.Lock()
	sess := entry.session
	if sess == nil || sess.State != models.SessionStateLive {
		entry.mu.Unlock()
		return 0, models.ErrSessionNotFound
	}
	sess.ViewerCount += delta
	if sess.ViewerCount < 0 {
		// A leave on zero is a no-op, not an error.
		sess.ViewerCount = 0
	}
	if sess.ViewerCount > sess.PeakViewers {
		sess.PeakViewers = sess.ViewerCount
	}
	count := sess.ViewerCount
	sessionID := sess.SessionID.String()
	ownerID := sess.OwnerID.String()
	entry.mu.Unlock()

	// Durable persistence of viewer counts is best-effort.
	if err := u.redisRepo.SetViewerCount(ctx, streamKey, count); err != nil {
		u.logger.Warnf("viewer count cache write failed for key %s: %v", streamKey, err)
	}

	u.publish(ctx, models.Event{
		Type:        models.EventViewerCountChanged,
		StreamKey:   streamKey,
		SessionID:   sessionID,
		OwnerID:     ownerID,
		ViewerCount: count,
	})
	return count, nil
}

func (u *sessionUC) GetSession(ctx context.Context, streamKey string) (*models.StreamSession, error) {
	if entry, ok := u.registry.get(streamKey); ok {
		entry.mu.Lock()
		defer entry.mu.Unlock()
		if entry.session != nil {
			copied := *entry.session
			return &copied, nil
		}
	}
	if cached, err := u.redisRepo.GetLiveSession(ctx, streamKey); err == nil && cached != nil {
		return cached, nil
	}
	return nil, models.ErrSessionNotFound
}

func (u *sessionUC) ListLiveSessions(ctx context.Context) []*models.StreamSession {
	entries := u.registry.snapshot()
	sessions := make([]*models.StreamSession, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		if entry.session != nil && entry.session.State == models.SessionStateLive {
			copied := *entry.session
			sessions = append(sessions, &copied)
		}
		entry.mu.Unlock()
	}
	return sessions
}

func (u *sessionUC) Recover(ctx context.Context) error {
	sessions, err := u.sessionRepo.GetLiveSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load live sessions: %w", err)
	}
	for _, sess := range sessions {
		sess.Unverified = true
		if _, ok := u.registry.insert(sess); !ok {
			u.logger.Warnf("recovered session for key %s conflicts with an active entry, skipping", sess.StreamKey)
			continue
		}
		u.logger.Infof("recovered unverified live session %s for key %s", sess.SessionID, sess.StreamKey)
	}
	return nil
}

func (u *sessionUC) ExpireUnverified(ctx context.Context) int {
	expired := 0
	for streamKey, entry := range u.registry.snapshot() {
		if !u.entryUnverified(entry) {
			continue
		}
		if err := u.endEntry(ctx, streamKey, entry, ""); err == nil {
			u.logger.Infof("expired unverified session for key %s", streamKey)
			expired++
		}
	}
	return expired
}

func (u *sessionUC) entryUnverified(entry *sessionEntry) bool {
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.session == nil || !entry.session.Unverified {
		return false
	}
	return time.Since(entry.recoveredAt) >= u.cfg.Session.HeartbeatTimeout
}

func entryRecovered(entry *sessionEntry) bool {
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.session != nil && entry.session.Unverified
}

func (u *sessionUC) defaultJobOptions() models.JobOptions {
	qualities := make([]string, 0, len(u.cfg.Transcode.Qualities))
	for _, q := range u.cfg.Transcode.Qualities {
		qualities = append(qualities, q.Name)
	}
	if len(qualities) == 0 {
		for _, q := range utils.GetDefaultQualities() {
			qualities = append(qualities, q.Name)
		}
	}
	return models.JobOptions{
		Qualities:         qualities,
		GenerateThumbnail: true,
		UploadToBlobStore: true,
		DeleteOriginal:    false,
	}
}

func (u *sessionUC) publish(ctx context.Context, event models.Event) {
	if err := u.publisher.Publish(ctx, event); err != nil {
		u.logger.Warnf("failed to publish %s event: %v", event.Type, err)
	}
}
