// Veritas - URL and message risk scoring for scam detection.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/opensource-finance/veritas/internal/analyzer"
	"github.com/opensource-finance/veritas/internal/api"
	"github.com/opensource-finance/veritas/internal/bus"
	"github.com/opensource-finance/veritas/internal/cache"
	"github.com/opensource-finance/veritas/internal/domain"
	"github.com/opensource-finance/veritas/internal/features"
	"github.com/opensource-finance/veritas/internal/metrics"
	"github.com/opensource-finance/veritas/internal/repository"
	"github.com/opensource-finance/veritas/internal/rules"
	"github.com/opensource-finance/veritas/internal/scoring"
	"github.com/opensource-finance/veritas/internal/threatintel"
	"github.com/opensource-finance/veritas/internal/velocity"
	"github.com/opensource-finance/veritas/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := domain.LoadFromEnv()
	slog.SetDefault(newLogger(cfg.Logging))

	slog.Info("starting veritas",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"rate_limit", cfg.RateLimit.Requests,
	)
	if cfg.Admin.Key == "" {
		slog.Warn("VERITAS_ADMIN_KEY not set - admin endpoints are disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	// Threat tables
	lists, err := threatintel.Load(cfg.Analyzer.ThreatListsPath)
	if err != nil {
		slog.Error("failed to load threat lists", "error", err)
		os.Exit(1)
	}
	slog.Info("threat lists loaded", "entries", lists.Size(), "path", cfg.Analyzer.ThreatListsPath)

	// Initialize Signal Rule Engine
	engine, err := rules.NewEngine(cfg.Analyzer.RuleWorkers)
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}
	loadRulesFromDatabase(ctx, repo, engine)
	slog.Info("rule engine initialized", "rules_count", engine.RulesCount())

	m := metrics.New()

	a := analyzer.New(analyzer.Dependencies{
		Extractor: features.NewExtractor(lists),
		Processor: scoring.NewProcessor(),
		Engine:    engine,
		Threats:   repo,
		ScanLog:   repo,
		Cache:     cacheImpl,
		Metrics:   m,
	}, cfg.Analyzer)

	limiter := velocity.NewLimiter(cacheImpl, cfg.RateLimit)

	// Async scan worker
	scanWorker := worker.NewWorker(busImpl, a)
	if err := scanWorker.Start(worker.Config{}); err != nil {
		slog.Error("failed to start scan worker", "error", err)
		os.Exit(1)
	}

	srv := api.NewServer(cfg.Server, api.Options{
		Analyzer: a,
		Repo:     repo,
		Cache:    cacheImpl,
		Bus:      busImpl,
		Engine:   engine,
		Limiter:  limiter,
		Metrics:  m,
		AdminKey: cfg.Admin.Key,
		Version:  Version,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("veritas is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop accepting scans before the bus closes.
	if err := scanWorker.Stop(); err != nil {
		slog.Error("failed to stop scan worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("veritas shutdown complete")
}

func newLogger(cfg domain.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// loadRulesFromDatabase loads enabled signal rules into the engine. A store
// error leaves the engine empty; rules can be reloaded via the admin API.
func loadRulesFromDatabase(ctx context.Context, repo domain.Repository, engine *rules.Engine) {
	dbRules, err := repo.ListSignalRules(ctx)
	if err != nil {
		slog.Warn("failed to list signal rules from database", "error", err)
		return
	}

	if len(dbRules) == 0 {
		slog.Info("no signal rules in database - configure via POST /api/admin/rules")
		return
	}

	if err := engine.ReloadRules(dbRules); err != nil {
		slog.Warn("some signal rules failed to load", "error", err)
	}
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  +-------------------------------------------+")
	fmt.Println("  |                 VERITAS                   |")
	fmt.Println("  |      URL and message risk scoring         |")
	fmt.Println("  +-------------------------------------------+")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST   /api/analyze            - Score a URL or message")
	fmt.Println("    POST   /api/scans              - Queue an async scan")
	fmt.Println("    POST   /api/report             - Report a suspicious URL")
	fmt.Println("    GET    /api/admin/reports      - List user reports")
	fmt.Println("    POST   /api/admin/add-scam     - Add a known threat")
	fmt.Println("    GET    /api/admin/scams        - List known threats")
	fmt.Println("    DELETE /api/admin/scams/{id}   - Delete a known threat")
	fmt.Println("    GET    /api/admin/stats        - Dashboard statistics")
	fmt.Println("    GET    /api/admin/rules        - List signal rules")
	fmt.Println("    POST   /api/admin/rules        - Create a signal rule")
	fmt.Println("    POST   /api/admin/rules/reload - Hot-reload signal rules")
	fmt.Println("    GET    /health                 - Health check")
	fmt.Println("    GET    /metrics                - Prometheus metrics")
	fmt.Println()
}
