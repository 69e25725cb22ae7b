// Heron - Health risk scoring for everyday care.
// Copyright (c) 2025 opensource.health
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/opensource-health/heron/internal/api"
	"github.com/opensource-health/heron/internal/assessment"
	"github.com/opensource-health/heron/internal/bus"
	"github.com/opensource-health/heron/internal/cache"
	"github.com/opensource-health/heron/internal/catalog"
	"github.com/opensource-health/heron/internal/domain"
	"github.com/opensource-health/heron/internal/notify"
	"github.com/opensource-health/heron/internal/repository"
	"github.com/opensource-health/heron/internal/rules"
	"github.com/opensource-health/heron/internal/tracker"
	"github.com/opensource-health/heron/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// A missing .env is fine; real environment variables still apply.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
	}

	// Load configuration
	cfg := domain.ConfigForProfile(os.Getenv("HERON_PROFILE"))
	cfg.ApplyEnv()

	slog.SetDefault(newLogger(cfg.Logging, os.Stdout))

	slog.Info("starting heron",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"profile", cfg.Profile,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"tracing", cfg.Tracing.Enabled,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Rule Engine. Every pack must validate and compile before
	// the server accepts traffic.
	engine, err := rules.NewEngine()
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	packs, err := catalog.Load(ctx, repo, cfg.Engine.CatalogFile)
	if err != nil {
		slog.Error("failed to load domain packs", "catalog_file", cfg.Engine.CatalogFile, "error", err)
		os.Exit(1)
	}
	if err := engine.LoadPacks(packs); err != nil {
		slog.Error("failed to compile domain packs", "error", err)
		os.Exit(1)
	}
	slog.Info("rule engine initialized", "packs_count", engine.PacksCount())

	processor := assessment.NewProcessor(engine)
	trackerSvc := tracker.NewService(repo, cacheImpl, busImpl, processor, cfg.Cache.AssessmentTTL)

	// Background reassessment and dose sweeping
	var (
		asyncWorker *worker.Worker
		sweeper     *worker.Sweeper
	)
	if cfg.Worker.Enabled {
		asyncWorker = worker.NewWorker(busImpl, trackerSvc)
		if err := asyncWorker.Start(); err != nil {
			slog.Error("failed to start worker", "error", err)
			os.Exit(1)
		}

		sweeper = worker.NewSweeper(trackerSvc, cfg.Worker.SweepInterval, cfg.Worker.DoseGrace)
		sweeper.Start()
		slog.Info("worker started",
			"sweep_interval", cfg.Worker.SweepInterval,
			"dose_grace", cfg.Worker.DoseGrace,
		)
	}

	// Care team alerts
	notifier := notify.NewNotifier(busImpl, notify.NewSender(cfg.Notify.ResendAPIKey, cfg.Notify.From), cfg.Notify.To)
	if err := notifier.Start(ctx); err != nil {
		slog.Error("failed to start notifier", "error", err)
		os.Exit(1)
	}
	slog.Info("notifier started",
		"email", cfg.Notify.ResendAPIKey != "",
		"recipients", len(cfg.Notify.To),
	)

	// Initialize Server
	srv := api.NewServer(cfg.Server, api.Dependencies{
		Repository:  repo,
		Cache:       cacheImpl,
		Bus:         busImpl,
		Engine:      engine,
		Processor:   processor,
		Tracker:     trackerSvc,
		CatalogFile: cfg.Engine.CatalogFile,
		RateLimit:   cfg.RateLimit,
	}, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("heron is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// Stop background work after the server stops accepting records
	if sweeper != nil {
		sweeper.Stop()
	}
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop worker", "error", err)
		}
	}
	if err := notifier.Stop(); err != nil {
		slog.Error("failed to stop notifier", "error", err)
	}

	slog.Info("heron shutdown complete")
}

// newLogger builds the process logger from the logging settings.
func newLogger(cfg domain.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  +-------------------------------------------+")
	fmt.Println("  |                  HERON                    |")
	fmt.Println("  |        Health Risk Scoring Engine         |")
	fmt.Println("  +-------------------------------------------+")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Profile:  %s\n", cfg.Profile)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /assess/{domain}               - Score an observation set")
	fmt.Println("    GET  /trackers/{domain}/assessment  - Assess from tracker records")
	fmt.Println("    POST /trackers/{mood,sleep,doses,vaccines}")
	fmt.Println("    GET  /cycle/status                  - Menstrual cycle phase")
	fmt.Println("    GET  /assessments                   - Assessment history")
	fmt.Println("    GET  /assessments/export            - History as xlsx")
	fmt.Println("    GET  /domains                       - Loaded domain packs")
	fmt.Println("    PUT  /domains/{id}                  - Override a pack (admin)")
	fmt.Println("    POST /checkout/decision             - Counselling payment options")
	fmt.Println("    GET  /health                        - Health check")
	fmt.Println()
}
