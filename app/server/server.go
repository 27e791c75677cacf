package server

import (
	"context"
	"time"

	"docqa/app/api"
	"docqa/app/middleware"
	"docqa/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

type Server struct {
	listenAddr string
	logger     *zap.Logger
	app        *fiber.App
	sessions   *store.MemoryStore
	sessionTTL time.Duration
	cancel     context.CancelFunc
}

type Options struct {
	Addr        string
	MaxUploadMB int
	SessionTTL  time.Duration
}

func NewServer(opts Options, sessions *store.MemoryStore, logger *zap.Logger) *Server {
	return &Server{
		listenAddr: opts.Addr,
		logger:     logger,
		app:        NewApp(sessions, opts.MaxUploadMB, logger),
		sessions:   sessions,
		sessionTTL: opts.SessionTTL,
	}
}

// NewApp builds the fiber application with all routes.
func NewApp(sessions *store.MemoryStore, maxUploadMB int, logger *zap.Logger) *fiber.App {
	if maxUploadMB <= 0 {
		maxUploadMB = 20
	}
	var config = fiber.Config{
		ErrorHandler:          api.NewErrorHandler(logger),
		BodyLimit:             maxUploadMB * 1024 * 1024,
		DisableStartupMessage: true,
	}

	app := fiber.New(config)
	app.Use(recover.New())
	app.Use(middleware.RequestLogger(logger))

	var (
		checkHandler   = api.NewCheckHandler(sessions)
		sessionHandler = api.NewSessionHandler(sessions, logger)
		check          = app.Group("/check")
		apiv1          = app.Group("/api/v1")
		session        = apiv1.Group("/sessions/:id", middleware.LoadSession(sessions))
	)

	check.Get("/healthy", checkHandler.HandleHealthy)

	apiv1.Post("/sessions", sessionHandler.HandleCreate)
	session.Get("", sessionHandler.HandleGet)
	session.Delete("", sessionHandler.HandleDelete)
	session.Post("/document", sessionHandler.HandleUpload)
	session.Get("/messages", sessionHandler.HandleMessages)
	session.Post("/messages", middleware.RequireDocument(), sessionHandler.HandleAsk)

	return app
}

func (s *Server) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.sessions.RunSweeper(ctx, s.sessionTTL, time.Minute)

	s.logger.Info("server started", zap.String("addr", s.listenAddr))
	if err := s.app.Listen(s.listenAddr); err != nil {
		s.logger.Error("error to start server", zap.Error(err))
	}
}

func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
		s.logger.Error("server shutdown failed", zap.Error(err))
	}
	s.logger.Info("server stopped")
}
