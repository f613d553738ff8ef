package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/MikeSquared-Agency/cadence/internal/api"
	"github.com/MikeSquared-Agency/cadence/internal/config"
	"github.com/MikeSquared-Agency/cadence/internal/golden"
	"github.com/MikeSquared-Agency/cadence/internal/outbox"
	"github.com/MikeSquared-Agency/cadence/internal/session"
	"github.com/MikeSquared-Agency/cadence/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("cadence starting", "port", cfg.Port, "rubric_version", cfg.RubricVersion)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistence: Postgres when configured, in-memory otherwise.
	var repo session.Repository
	var goldenStore golden.Store
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL, cfg.MaxSessions, slog.Default())
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			slog.Error("migration failed", "error", err)
			os.Exit(1)
		}
		repo = db
		goldenStore = db
		slog.Info("database connected")
	} else {
		repo = session.NewMemoryRepository(cfg.MaxSessions)
		goldenStore = golden.NewMemoryStore()
		slog.Warn("DATABASE_URL not set, running with in-memory stores")
	}

	// Outbox is optional; evaluations work without remote sync.
	var ob *outbox.Client
	if cfg.NatsURL != "" {
		client, err := outbox.New(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Warn("failed to connect to NATS, continuing without outbox", "error", err)
		} else {
			ob = client
			defer ob.Close()
			slog.Info("NATS connected", "url", cfg.NatsURL)
		}
	} else {
		slog.Warn("NATS not configured, running without event sync")
	}

	manager := session.NewManager(repo, ob, cfg.RubricVersion, slog.Default())

	srv := api.NewServer(cfg.Port, cfg.APIToken, manager, goldenStore, cfg.RubricVersion, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("cadence ready", "port", cfg.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("cadence stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
