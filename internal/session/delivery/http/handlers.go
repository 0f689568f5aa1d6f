package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/streamhive/live-backend/internal/models"
	"github.com/streamhive/live-backend/internal/session"
	"github.com/streamhive/live-backend/pkg/logger"
)

// hookRequest is the payload the media-ingest component posts on every
// control-plane event (SRS-style hooks).
type hookRequest struct {
	StreamKey     string `json:"stream" validate:"required,lte=128"`
	Title         string `json:"title"`
	Category      string `json:"category"`
	RecordingPath string `json:"recording_path,omitempty"`
}

type sessionHandler struct {
	sessionUC session.UseCase
	logger    logger.Logger
}

func NewSessionHandler(sessionUC session.UseCase, log logger.Logger) session.Handler {
	return &sessionHandler{
		sessionUC: sessionUC,
		logger:    log,
	}
}

// OnPublish authorizes the stream key and opens a live session. The ingest
// server rejects the incoming publish unless this hook returns 200.
func (h *sessionHandler) OnPublish() echo.HandlerFunc {
	return func(c echo.Context) error {
		req := &hookRequest{}
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
		}
		ownerID, err := h.sessionUC.AuthorizeIngest(c.Request().Context(), req.StreamKey)
		if err != nil {
			return hookError(c, err)
		}
		sessionID, err := h.sessionUC.StartSession(c.Request().Context(), req.StreamKey, ownerID, models.SessionMetadata{
			Title:    req.Title,
			Category: req.Category,
		})
		if err != nil {
			return hookError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]string{
			"session_id": sessionID.String(),
			"owner_id":   ownerID.String(),
		})
	}
}

func (h *sessionHandler) OnUnpublish() echo.HandlerFunc {
	return func(c echo.Context) error {
		req := &hookRequest{}
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
		}
		if err := h.sessionUC.EndSession(c.Request().Context(), req.StreamKey, req.RecordingPath); err != nil {
			return hookError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ended"})
	}
}

func (h *sessionHandler) OnPlay() echo.HandlerFunc {
	return func(c echo.Context) error {
		req := &hookRequest{}
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
		}
		if _, err := h.sessionUC.AuthorizePlayback(c.Request().Context(), req.StreamKey); err != nil {
			return hookError(c, err)
		}
		count, err := h.sessionUC.JoinViewer(c.Request().Context(), req.StreamKey)
		if err != nil {
			return hookError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]int{"viewer_count": count})
	}
}

func (h *sessionHandler) OnStop() echo.HandlerFunc {
	return func(c echo.Context) error {
		req := &hookRequest{}
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
		}
		count, err := h.sessionUC.LeaveViewer(c.Request().Context(), req.StreamKey)
		if err != nil {
			return hookError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]int{"viewer_count": count})
	}
}

func (h *sessionHandler) GetSession() echo.HandlerFunc {
	return func(c echo.Context) error {
		streamKey := c.Param("stream_key")
		if streamKey == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Stream key is required"})
		}
		sess, err := h.sessionUC.GetSession(c.Request().Context(), streamKey)
		if err != nil {
			return hookError(c, err)
		}
		return c.JSON(http.StatusOK, sess)
	}
}

func (h *sessionHandler) ListLiveSessions() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, h.sessionUC.ListLiveSessions(c.Request().Context()))
	}
}

func hookError(c echo.Context, err error) error {
	var authErr *models.AuthorizationError
	switch {
	case errors.As(err, &authErr):
		return c.JSON(http.StatusForbidden, map[string]string{"error": authErr.Error()})
	case errors.Is(err, models.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
