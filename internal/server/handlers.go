package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"

	"github.com/streamhive/live-backend/internal/events"
	"github.com/streamhive/live-backend/internal/middleware"
	sessionHttp "github.com/streamhive/live-backend/internal/session/delivery/http"
	sessionRepository "github.com/streamhive/live-backend/internal/session/repository"
	sessionUsecase "github.com/streamhive/live-backend/internal/session/usecase"
	transcodeHttp "github.com/streamhive/live-backend/internal/transcode/delivery/http"
	"github.com/streamhive/live-backend/internal/transcode/ffmpeg"
	transcodeRepository "github.com/streamhive/live-backend/internal/transcode/repository"
	transcodeUsecase "github.com/streamhive/live-backend/internal/transcode/usecase"
	"github.com/streamhive/live-backend/pkg/utils"
)

func (s *Server) MapHandlers(e *echo.Echo) error {
	jobRepo := transcodeRepository.NewJobRepo(s.db)
	jobRedisRepo := transcodeRepository.NewJobRedisRepo(s.redisClient)
	jobAWSRepo := transcodeRepository.NewAwsRepository(s.s3Client, s.preSignClient, s.cfg.S3.PublicBaseURL)

	sessRepo := sessionRepository.NewSessionRepo(s.db)
	sessRedisRepo := sessionRepository.NewSessionRedisRepo(s.redisClient, s.cfg.Session.PlaybackCacheTTL)

	publisher := events.NewRedisPublisher(s.redisClient, s.cfg.Events.ChannelPrefix)
	transcoder := ffmpeg.NewTranscoder(s.cfg.Transcode.OutputDir)

	s.transcodeUC = transcodeUsecase.NewTranscodeQueue(s.cfg, jobRepo, jobRedisRepo, jobAWSRepo, transcoder, publisher, s.logger)
	s.sessionUC = sessionUsecase.NewSessionUseCase(s.cfg, sessRepo, sessRedisRepo, s.transcodeUC, publisher, s.logger)

	sessionHandlers := sessionHttp.NewSessionHandler(s.sessionUC, s.logger)
	transcodeHandlers := transcodeHttp.NewTranscodeHandler(s.transcodeUC, s.logger)

	mw := middleware.NewMiddlewareManager(s.cfg, s.logger)

	e.Use(echoMw.RequestID())
	e.Use(mw.RequestLoggerMiddleware)

	v1 := e.Group("/api/v1")
	health := v1.Group("/health")
	hooksGroup := v1.Group("/hooks")
	sessionsGroup := v1.Group("/sessions")
	jobsGroup := v1.Group("/jobs")

	sessionHttp.MapSessionRoutes(hooksGroup, sessionsGroup, sessionHandlers, mw)
	transcodeHttp.MapTranscodeRoutes(jobsGroup, transcodeHandlers, mw)
	health.GET("", func(c echo.Context) error {
		s.logger.Infof("Health check RequestID: %s", utils.GetRequestID(c))
		return c.JSON(http.StatusOK, map[string]string{"status": "OK"})
	})
	return nil
}
