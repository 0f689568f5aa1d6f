package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/streamhive/live-backend/internal/models"
	"github.com/streamhive/live-backend/internal/session"
)

const (
	liveSessionPrefix = "live:"
	viewersField      = "viewer_count"
	sessionField      = "session_data"
)

type sessionRedisRepo struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewSessionRedisRepo(redisClient *redis.Client, ttl time.Duration) session.RedisRepository {
	return &sessionRedisRepo{
		redisClient: redisClient,
		ttl:         ttl,
	}
}

func (s *sessionRedisRepo) SetLiveSession(ctx context.Context, sess *models.StreamSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "sessionRedisRepo.SetLiveSession.Marshal")
	}
	key := liveSessionPrefix + sess.StreamKey
	pipe := s.redisClient.Pipeline()
	pipe.HSet(ctx, key, sessionField, data)
	pipe.HSet(ctx, key, viewersField, sess.ViewerCount)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err = pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "sessionRedisRepo.SetLiveSession.Exec")
	}
	return nil
}

func (s *sessionRedisRepo) GetLiveSession(ctx context.Context, streamKey string) (*models.StreamSession, error) {
	data, err := s.redisClient.HGet(ctx, liveSessionPrefix+streamKey, sessionField).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrSessionNotFound
		}
		return nil, errors.Wrap(err, "sessionRedisRepo.GetLiveSession")
	}
	sess := &models.StreamSession{}
	if err = json.Unmarshal([]byte(data), sess); err != nil {
		return nil, errors.Wrap(err, "sessionRedisRepo.GetLiveSession.Unmarshal")
	}
	return sess, nil
}

func (s *sessionRedisRepo) DeleteLiveSession(ctx context.Context, streamKey string) error {
	if err := s.redisClient.Del(ctx, liveSessionPrefix+streamKey).Err(); err != nil {
		return errors.Wrap(err, "sessionRedisRepo.DeleteLiveSession")
	}
	return nil
}

func (s *sessionRedisRepo) SetViewerCount(ctx context.Context, streamKey string, count int) error {
	if err := s.redisClient.HSet(ctx, liveSessionPrefix+streamKey, viewersField, count).Err(); err != nil {
		return errors.Wrap(err, "sessionRedisRepo.SetViewerCount")
	}
	return nil
}
