package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"docqa/app/agent"
	"docqa/app/server"
	"docqa/config"
	"docqa/loader"
	"docqa/logging"
	"docqa/service"
	"docqa/store"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	svc := service.New(
		loader.NewExtractor(logger.Named("loader")),
		agent.NewSynthesizerFromConfig(cfg.Completion, logger.Named("agent")),
		service.Options{ChunkSize: cfg.Retrieval.ChunkSize, TopK: cfg.Retrieval.TopK},
		logger.Named("session"),
	)
	sessions := store.NewMemoryStore(svc, logger.Named("store"))

	s := server.NewServer(server.Options{
		Addr:        cfg.Server.Addr,
		MaxUploadMB: cfg.Server.MaxUploadMB,
		SessionTTL:  cfg.Server.SessionTTL,
	}, sessions, logger.Named("server"))

	go s.Run()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	<-sigch
	logger.Info("received shutdown signal, shutting down server...", zap.Int("sessions", sessions.Len()))
	s.Stop()
}
