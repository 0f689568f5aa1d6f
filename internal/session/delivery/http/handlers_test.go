package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamhive/live-backend/internal/config"
	"github.com/streamhive/live-backend/internal/models"
	"github.com/streamhive/live-backend/pkg/logger"
)

type stubSessionUC struct {
	ownerID   uuid.UUID
	sessionID uuid.UUID
	authErr   error
	viewers   int
	ended     []string
}

func (s *stubSessionUC) AuthorizeIngest(_ context.Context, streamKey string) (uuid.UUID, error) {
	if s.authErr != nil {
		return uuid.Nil, s.authErr
	}
	return s.ownerID, nil
}

func (s *stubSessionUC) StartSession(_ context.Context, _ string, _ uuid.UUID, _ models.SessionMetadata) (uuid.UUID, error) {
	return s.sessionID, nil
}

func (s *stubSessionUC) EndSession(_ context.Context, streamKey string, recordingPath string) error {
	s.ended = append(s.ended, streamKey+"|"+recordingPath)
	return nil
}

func (s *stubSessionUC) AuthorizePlayback(_ context.Context, _ string) (uuid.UUID, error) {
	if s.authErr != nil {
		return uuid.Nil, s.authErr
	}
	return s.ownerID, nil
}

func (s *stubSessionUC) JoinViewer(_ context.Context, _ string) (int, error) {
	s.viewers++
	return s.viewers, nil
}

func (s *stubSessionUC) LeaveViewer(_ context.Context, _ string) (int, error) {
	if s.viewers > 0 {
		s.viewers--
	}
	return s.viewers, nil
}

func (s *stubSessionUC) GetSession(_ context.Context, _ string) (*models.StreamSession, error) {
	return nil, models.ErrSessionNotFound
}

func (s *stubSessionUC) ListLiveSessions(_ context.Context) []*models.StreamSession { return nil }

func (s *stubSessionUC) Recover(_ context.Context) error { return nil }

func (s *stubSessionUC) ExpireUnverified(_ context.Context) int { return 0 }

func hookTestLogger() logger.Logger {
	apiLogger := logger.NewApiLogger(&config.Config{Logger: config.Logger{Level: "error"}})
	apiLogger.InitLogger()
	return apiLogger
}

func postHook(t *testing.T, handler echo.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, handler(c))
	return rec
}

func TestSessionHandler_OnPublish(t *testing.T) {
	uc := &stubSessionUC{ownerID: uuid.New(), sessionID: uuid.New()}
	h := NewSessionHandler(uc, hookTestLogger())

	rec := postHook(t, h.OnPublish(), `{"stream":"key-live","title":"my stream"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), uc.sessionID.String())
}

func TestSessionHandler_OnPublishDenied(t *testing.T) {
	uc := &stubSessionUC{authErr: &models.AuthorizationError{StreamKey: "key-live", Reason: "already live"}}
	h := NewSessionHandler(uc, hookTestLogger())

	rec := postHook(t, h.OnPublish(), `{"stream":"key-live"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "already live")
}

func TestSessionHandler_OnUnpublishForwardsRecording(t *testing.T) {
	uc := &stubSessionUC{}
	h := NewSessionHandler(uc, hookTestLogger())

	rec := postHook(t, h.OnUnpublish(), `{"stream":"key-live","recording_path":"/rec/key-live.flv"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, uc.ended, 1)
	assert.Equal(t, "key-live|/rec/key-live.flv", uc.ended[0])
}

func TestSessionHandler_ViewerHooks(t *testing.T) {
	uc := &stubSessionUC{ownerID: uuid.New()}
	h := NewSessionHandler(uc, hookTestLogger())

	rec := postHook(t, h.OnPlay(), `{"stream":"key-live"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"viewer_count":1`)

	rec = postHook(t, h.OnStop(), `{"stream":"key-live"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"viewer_count":0`)
}

func TestSessionHandler_OnPlayNotLive(t *testing.T) {
	uc := &stubSessionUC{authErr: &models.AuthorizationError{StreamKey: "key-live", Reason: "stream is not live"}}
	h := NewSessionHandler(uc, hookTestLogger())

	rec := postHook(t, h.OnPlay(), `{"stream":"key-live"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
