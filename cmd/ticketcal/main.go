package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/MikeSquared-Agency/ticketcal/internal/api"
	"github.com/MikeSquared-Agency/ticketcal/internal/config"
	"github.com/MikeSquared-Agency/ticketcal/internal/extractor"
	"github.com/MikeSquared-Agency/ticketcal/internal/hermes"
	"github.com/MikeSquared-Agency/ticketcal/internal/metrics"
	"github.com/MikeSquared-Agency/ticketcal/internal/openrouter"
	"github.com/MikeSquared-Agency/ticketcal/internal/processor"
	"github.com/MikeSquared-Agency/ticketcal/internal/render"
	"github.com/MikeSquared-Agency/ticketcal/internal/slack"
	"github.com/MikeSquared-Agency/ticketcal/internal/store"
	"github.com/MikeSquared-Agency/ticketcal/internal/watcher"
)

// watchBuffer is how many filesystem events may queue while a ticket is
// being processed before the watcher itself blocks.
const watchBuffer = 64

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("ticketcal starting",
		"watch_dir", cfg.WatchDir,
		"output_dir", cfg.OutputDir,
		"model", cfg.Model,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// OpenRouter client
	llm := openrouter.NewClient(cfg.APIKey, cfg.Model, openrouter.Options{
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.ModelTimeout,
		MaxRetries: cfg.MaxRetries,
	})
	slog.Info("openrouter client ready", "model", llm.Model(), "base_url", cfg.BaseURL)

	ext := extractor.New(llm, slog.Default())
	renderer := render.NewPoppler(cfg.PdftoppmPath, cfg.RenderDPI)

	// Processor: the main pipeline
	proc := processor.New(renderer, ext, m, slog.Default(), processor.Options{
		OutputDir:   cfg.OutputDir,
		JPEGQuality: cfg.JPEGQuality,
	})

	// Journal (optional)
	var db *store.Store
	if cfg.DatabaseURL != "" {
		var err error
		db, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare journal schema", "error", err)
			os.Exit(1)
		}
		proc.SetJournal(db)
		slog.Info("database connected")
	} else {
		slog.Info("DATABASE_URL not set, running without journal")
	}

	// NATS/Hermes (optional)
	if cfg.NatsURL != "" {
		hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer hermesClient.Close()
		proc.AddNotifier(hermesClient)
		slog.Info("NATS connected", "url", cfg.NatsURL)

		if err := hermesClient.Publish(hermes.SubjectAgentRegistered, map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"port":      cfg.Port,
			"watch_dir": cfg.WatchDir,
		}); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	}

	// Slack (optional)
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		proc.AddNotifier(slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, slog.Default()))
		slog.Info("slack poster ready", "channel", cfg.SlackChannel)
	}

	// One-shot sweep of tickets that predate the watcher.
	if len(os.Args) > 1 && os.Args[1] == "backfill" {
		if err := runBackfill(ctx, cfg, proc, os.Args[2:]); err != nil {
			slog.Error("backfill failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// HTTP API
	var srv *api.Server
	if cfg.Port > 0 {
		srv = api.NewServer(cfg.Port, proc, reg)
		if db != nil {
			srv.SetRuns(db)
		}
		go func() {
			if err := srv.Start(); err != nil {
				slog.Error("HTTP server error", "error", err)
			}
		}()
	}

	// Watcher
	w, err := watcher.New(cfg.WatchDir, watchBuffer, slog.Default())
	if err != nil {
		slog.Error("failed to watch directory", "dir", cfg.WatchDir, "error", err)
		os.Exit(1)
	}
	defer w.Close()
	go func() {
		if err := w.Run(ctx); err != nil {
			slog.Error("watcher stopped", "error", err)
		}
	}()

	slog.Info("ticketcal ready", "watch_dir", cfg.WatchDir)

	runErr := proc.Run(ctx, w.Events())

	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("HTTP shutdown error", "error", err)
		}
		done()
	}

	if runErr != nil && !(errors.Is(runErr, watcher.ErrClosed) && ctx.Err() != nil) {
		slog.Error("processor stopped", "error", runErr)
		os.Exit(1)
	}
	slog.Info("ticketcal stopped")
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
