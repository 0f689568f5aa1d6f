package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/streamhive/live-backend/internal/models"
	"github.com/streamhive/live-backend/internal/session"
)

type sessionRepo struct {
	db *sqlx.DB
}

func NewSessionRepo(db *sqlx.DB) session.Repository {
	return &sessionRepo{
		db: db,
	}
}

func (s *sessionRepo) ResolveStreamKey(ctx context.Context, streamKey string) (*models.StreamKeyRecord, error) {
	record := &models.StreamKeyRecord{}
	if err := s.db.QueryRowxContext(
		ctx,
		resolveStreamKeyQuery,
		streamKey,
	).StructScan(record); err != nil {
		return nil, errors.Wrap(err, "sessionRepo.ResolveStreamKey")
	}
	return record, nil
}

func (s *sessionRepo) CreateSession(ctx context.Context, sess *models.StreamSession) (*models.StreamSession, error) {
	created := &models.StreamSession{}
	if err := s.db.QueryRowxContext(
		ctx,
		createSessionQuery,
		sess.SessionID,
		sess.StreamKey,
		sess.OwnerID,
		sess.Title,
		sess.Category,
		sess.State,
		sess.ViewerCount,
		sess.PeakViewers,
		sess.StartedAt,
	).StructScan(created); err != nil {
		return nil, errors.Wrap(err, "sessionRepo.CreateSession")
	}
	return created, nil
}

func (s *sessionRepo) UpdateSession(ctx context.Context, sess *models.StreamSession) error {
	res, err := s.db.ExecContext(
		ctx,
		updateSessionQuery,
		sess.State,
		sess.ViewerCount,
		sess.PeakViewers,
		sess.EndedAt,
		sess.Duration,
		sess.RecordingPath,
		sess.TranscodeJobID,
		sess.SessionID,
	)
	if err != nil {
		return errors.Wrap(err, "sessionRepo.UpdateSession")
	}
	count, _ := res.RowsAffected()
	if count == 0 {
		return models.ErrSessionNotFound
	}
	return nil
}

func (s *sessionRepo) GetSessionByID(ctx context.Context, sessionID uuid.UUID) (*models.StreamSession, error) {
	sess := &models.StreamSession{}
	if err := s.db.QueryRowxContext(
		ctx,
		getSessionByIDQuery,
		sessionID,
	).StructScan(sess); err != nil {
		return nil, errors.Wrap(err, "sessionRepo.GetSessionByID")
	}
	return sess, nil
}

func (s *sessionRepo) GetLiveSessions(ctx context.Context) ([]*models.StreamSession, error) {
	rows, err := s.db.QueryxContext(ctx, getLiveSessionsQuery)
	if err != nil {
		return nil, errors.Wrap(err, "sessionRepo.GetLiveSessions")
	}
	defer rows.Close()

	var sessions []*models.StreamSession
	for rows.Next() {
		var sess models.StreamSession
		if err = rows.StructScan(&sess); err != nil {
			return nil, errors.Wrap(err, "sessionRepo.GetLiveSessions.StructScan")
		}
		sessions = append(sessions, &sess)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sessionRepo.GetLiveSessions.Rows")
	}
	return sessions, nil
}
