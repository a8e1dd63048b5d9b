package app

import (
	"log/slog"
	"os"

	"github.com/tpodg/backchannel/internal/config"
)

type App struct {
	Logger *slog.Logger
	Config *config.Config
}

func New(cfg *config.Config) *App {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	return &App{
		Logger: logger,
		Config: cfg,
	}
}
