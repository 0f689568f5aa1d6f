package http

import (
	"github.com/labstack/echo/v4"

	"github.com/streamhive/live-backend/internal/middleware"
	"github.com/streamhive/live-backend/internal/transcode"
)

func MapTranscodeRoutes(jobsGroup *echo.Group, h transcode.Handler, mw *middleware.MiddlewareManager) {
	jobsGroup.Use(mw.AuthJWTMiddleware())
	jobsGroup.POST("", h.CreateJob())
	jobsGroup.GET("", h.ListJobs())
	jobsGroup.GET("/:job_id", h.GetJob())
	jobsGroup.POST("/:job_id/retry", h.RetryJob())
	jobsGroup.POST("/:job_id/cancel", h.CancelJob())
}
