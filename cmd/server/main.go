// Package main implements the entry point for the worksheet generation
// server, which turns uploaded documents into practice tasks.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/worksheetgen/internal/config"
	"github.com/phrazzld/worksheetgen/internal/platform/logger"
	"github.com/phrazzld/worksheetgen/internal/platform/postgres"
	"github.com/spf13/afero"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

// run loads configuration, wires the application and serves until ctx is
// cancelled.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	l.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("llm_provider", cfg.LLM.Provider),
		slog.String("cache_backend", cfg.Cache.Backend))

	db, err := postgres.Open(ctx, cfg.Database.URL, l)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if cfg.Database.Migrate {
		if err := postgres.Migrate(ctx, db, l); err != nil {
			return err
		}
	}

	repo := postgres.NewPostgresWorksheetStore(db, l)
	app, err := newApplication(ctx, cfg, l, repo, afero.NewOsFs())
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	app.db = db

	return app.Run(ctx)
}
