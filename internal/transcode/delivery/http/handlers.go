package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/streamhive/live-backend/internal/models"
	"github.com/streamhive/live-backend/internal/transcode"
	"github.com/streamhive/live-backend/pkg/logger"
	"github.com/streamhive/live-backend/pkg/utils"
)

type createJobRequest struct {
	InputPath string            `json:"input_path" validate:"required"`
	Options   models.JobOptions `json:"options" validate:"required"`
}

type transcodeHandler struct {
	transcodeUC transcode.UseCase
	logger      logger.Logger
}

func NewTranscodeHandler(transcodeUC transcode.UseCase, log logger.Logger) transcode.Handler {
	return &transcodeHandler{
		transcodeUC: transcodeUC,
		logger:      log,
	}
}

func (h *transcodeHandler) CreateJob() echo.HandlerFunc {
	return func(c echo.Context) error {
		ownerID, err := utils.GetOwnerFromCtx(c.Request().Context())
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}

		req := &createJobRequest{}
		if err := utils.ReadRequest(c, req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}

		jobID, err := h.transcodeUC.AddJob(c.Request().Context(), ownerID.String(), req.InputPath, req.Options)
		if err != nil {
			return jobError(c, err)
		}
		return c.JSON(http.StatusCreated, map[string]string{"job_id": jobID})
	}
}

func (h *transcodeHandler) GetJob() echo.HandlerFunc {
	return func(c echo.Context) error {
		ownerID, err := utils.GetOwnerFromCtx(c.Request().Context())
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}

		job, err := h.transcodeUC.GetJob(c.Request().Context(), c.Param("job_id"))
		if err != nil {
			return jobError(c, err)
		}
		if job.OwnerID != ownerID.String() {
			return c.JSON(http.StatusNotFound, map[string]string{"error": models.ErrJobNotFound.Error()})
		}
		return c.JSON(http.StatusOK, job)
	}
}

func (h *transcodeHandler) ListJobs() echo.HandlerFunc {
	return func(c echo.Context) error {
		ownerID, err := utils.GetOwnerFromCtx(c.Request().Context())
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}

		pq, err := utils.GetPaginationFromCtx(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}

		jobs, err := h.transcodeUC.ListJobs(c.Request().Context(), ownerID.String(), pq)
		if err != nil {
			return jobError(c, err)
		}
		return c.JSON(http.StatusOK, jobs)
	}
}

func (h *transcodeHandler) RetryJob() echo.HandlerFunc {
	return func(c echo.Context) error {
		if ok, err := h.authorizeJobOwner(c); !ok {
			return err
		}
		if err := h.transcodeUC.Retry(c.Request().Context(), c.Param("job_id")); err != nil {
			return jobError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "pending"})
	}
}

func (h *transcodeHandler) CancelJob() echo.HandlerFunc {
	return func(c echo.Context) error {
		if ok, err := h.authorizeJobOwner(c); !ok {
			return err
		}
		if err := h.transcodeUC.Cancel(c.Request().Context(), c.Param("job_id")); err != nil {
			return jobError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "cancelled"})
	}
}

// authorizeJobOwner writes the error response itself when the caller may not
// proceed, and reports that through ok.
func (h *transcodeHandler) authorizeJobOwner(c echo.Context) (ok bool, _ error) {
	ownerID, err := utils.GetOwnerFromCtx(c.Request().Context())
	if err != nil {
		return false, c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	job, err := h.transcodeUC.GetJob(c.Request().Context(), c.Param("job_id"))
	if err != nil {
		return false, jobError(c, err)
	}
	if job.OwnerID != ownerID.String() {
		return false, c.JSON(http.StatusNotFound, map[string]string{"error": models.ErrJobNotFound.Error()})
	}
	return true, nil
}

func jobError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrJobNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidState):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
