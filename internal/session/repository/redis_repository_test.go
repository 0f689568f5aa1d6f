package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamhive/live-backend/internal/models"
	"github.com/streamhive/live-backend/internal/session"
)

func setupSessionRedisRepo(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, session.RedisRepository) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewSessionRedisRepo(client, ttl)
}

func testSession(streamKey string) *models.StreamSession {
	return &models.StreamSession{
		SessionID:   uuid.New(),
		StreamKey:   streamKey,
		OwnerID:     uuid.New(),
		Title:       "late night stream",
		State:       models.SessionStateLive,
		ViewerCount: 7,
		PeakViewers: 12,
		StartedAt:   time.Now().Truncate(time.Second),
	}
}

func TestSessionRedisRepo_SetGet(t *testing.T) {
	_, repo := setupSessionRedisRepo(t, 0)
	sess := testSession("key-live")

	require.NoError(t, repo.SetLiveSession(context.Background(), sess))

	got, err := repo.GetLiveSession(context.Background(), "key-live")
	require.NoError(t, err)
	assert.Equal(t, sess.SessionID, got.SessionID)
	assert.Equal(t, sess.OwnerID, got.OwnerID)
	assert.Equal(t, models.SessionStateLive, got.State)
	assert.Equal(t, 7, got.ViewerCount)
}

func TestSessionRedisRepo_GetMissing(t *testing.T) {
	_, repo := setupSessionRedisRepo(t, 0)
	_, err := repo.GetLiveSession(context.Background(), "ghost")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestSessionRedisRepo_TTL(t *testing.T) {
	mr, repo := setupSessionRedisRepo(t, 30*time.Second)
	sess := testSession("key-live")
	require.NoError(t, repo.SetLiveSession(context.Background(), sess))

	// The cache entry lapses on its own once the TTL passes.
	mr.FastForward(31 * time.Second)
	_, err := repo.GetLiveSession(context.Background(), "key-live")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestSessionRedisRepo_ViewerCountField(t *testing.T) {
	mr, repo := setupSessionRedisRepo(t, 0)
	sess := testSession("key-live")
	require.NoError(t, repo.SetLiveSession(context.Background(), sess))

	require.NoError(t, repo.SetViewerCount(context.Background(), "key-live", 42))
	assert.Equal(t, "42", mr.HGet("live:key-live", "viewer_count"))
}

func TestSessionRedisRepo_Delete(t *testing.T) {
	_, repo := setupSessionRedisRepo(t, 0)
	sess := testSession("key-live")
	require.NoError(t, repo.SetLiveSession(context.Background(), sess))

	require.NoError(t, repo.DeleteLiveSession(context.Background(), "key-live"))
	_, err := repo.GetLiveSession(context.Background(), "key-live")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}
