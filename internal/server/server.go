package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/streamhive/live-backend/internal/config"
	"github.com/streamhive/live-backend/internal/session"
	"github.com/streamhive/live-backend/internal/transcode"
	"github.com/streamhive/live-backend/pkg/logger"
)

const (
	maxHeaderBytes = 1 << 20
	ctxTimeout     = 5
	readTimeout    = 15 * time.Second
	writeTimeout   = 15 * time.Second
	idleTimeout    = 60 * time.Second
)

type Server struct {
	echo          *echo.Echo
	cfg           *config.Config
	db            *sqlx.DB
	redisClient   *redis.Client
	s3Client      *s3.Client
	preSignClient *s3.PresignClient
	logger        logger.Logger

	sessionUC   session.UseCase
	transcodeUC transcode.UseCase
	janitorQuit chan struct{}
	janitorDone chan struct{}
}

func NewServer(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, s3Client *s3.Client, preSignClient *s3.PresignClient, logger logger.Logger) *Server {
	return &Server{
		echo:          echo.New(),
		cfg:           cfg,
		db:            db,
		redisClient:   redisClient,
		s3Client:      s3Client,
		preSignClient: preSignClient,
		logger:        logger,
		janitorQuit:   make(chan struct{}),
		janitorDone:   make(chan struct{}),
	}
}

func (s *Server) Run() error {
	if err := s.MapHandlers(s.echo); err != nil {
		return err
	}

	if err := s.transcodeUC.Start(context.Background()); err != nil {
		return err
	}
	if err := s.sessionUC.Recover(context.Background()); err != nil {
		s.logger.Errorf("session recovery: %v", err)
	}
	go s.runJanitor()

	s.echo.Server.MaxHeaderBytes = maxHeaderBytes
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "Authorization", "X-Hook-Token"},
	}))

	server := &http.Server{
		Addr:         s.cfg.Server.Port,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	go func() {
		s.logger.Infof("server listening on %s", s.cfg.Server.Port)
		if err := s.echo.StartServer(server); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("error starting server: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, os.Interrupt)
	<-quit

	ctx, shutdown := context.WithTimeout(context.Background(), time.Second*ctxTimeout)
	defer shutdown()
	s.logger.Infof("shutting down server")

	err := s.echo.Server.Shutdown(ctx)

	// Stop background work only after HTTP stops accepting requests so
	// in-flight handlers still see a live queue.
	close(s.janitorQuit)
	<-s.janitorDone
	s.transcodeUC.Stop()
	return err
}

// runJanitor periodically ends recovered sessions whose publisher never
// reconnected within the heartbeat window.
func (s *Server) runJanitor() {
	defer close(s.janitorDone)
	ticker := time.NewTicker(s.cfg.Session.JanitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.sessionUC.ExpireUnverified(context.Background()); n > 0 {
				s.logger.Infof("janitor expired %d unverified sessions", n)
			}
		case <-s.janitorQuit:
			return
		}
	}
}
