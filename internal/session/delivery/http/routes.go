package http

import (
	"github.com/labstack/echo/v4"

	"github.com/streamhive/live-backend/internal/middleware"
	"github.com/streamhive/live-backend/internal/session"
)

func MapSessionRoutes(hooksGroup *echo.Group, sessionsGroup *echo.Group, h session.Handler, mw *middleware.MiddlewareManager) {
	hooksGroup.Use(mw.HookTokenMiddleware())
	hooksGroup.POST("/on_publish", h.OnPublish())
	hooksGroup.POST("/on_unpublish", h.OnUnpublish())
	hooksGroup.POST("/on_play", h.OnPlay())
	hooksGroup.POST("/on_stop", h.OnStop())

	sessionsGroup.GET("/live", h.ListLiveSessions())
	sessionsGroup.GET("/:stream_key", h.GetSession())
}
