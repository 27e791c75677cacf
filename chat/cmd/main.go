package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"docqa/app/agent"
	"docqa/chat/tui"
	"docqa/config"
	"docqa/loader"
	"docqa/logging"
	"docqa/service"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	var logPath string
	flag.StringVar(&logPath, "log", "docqa-chat.log", "file to write logs to")
	flag.Parse()

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.NewFile(cfg.Log, logPath)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := service.New(
		loader.NewExtractor(logger.Named("loader")),
		agent.NewSynthesizerFromConfig(cfg.Completion, logger.Named("agent")),
		service.Options{ChunkSize: cfg.Retrieval.ChunkSize, TopK: cfg.Retrieval.TopK},
		logger.Named("session"),
	)

	m := tui.New(ctx, svc.NewSession())
	var cmd tea.Cmd
	if path := flag.Arg(0); path != "" {
		m, cmd = m.StartLoad(path)
	}

	p := tea.NewProgram(startModel{Model: m, initial: cmd}, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		log.Fatal(err)
	}
}

// startModel runs the optional command given on the command line along with Init.
type startModel struct {
	tui.Model
	initial tea.Cmd
}

func (s startModel) Init() tea.Cmd {
	return tea.Batch(s.Model.Init(), s.initial)
}
