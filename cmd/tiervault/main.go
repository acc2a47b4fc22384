package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	tvhttp "github.com/Strob0t/TierVault/internal/adapter/http"
	"github.com/Strob0t/TierVault/internal/adapter/memory"
	"github.com/Strob0t/TierVault/internal/adapter/natskv"
	"github.com/Strob0t/TierVault/internal/adapter/natsobj"
	tvotel "github.com/Strob0t/TierVault/internal/adapter/otel"
	"github.com/Strob0t/TierVault/internal/adapter/postgres"
	"github.com/Strob0t/TierVault/internal/config"
	"github.com/Strob0t/TierVault/internal/logger"
	"github.com/Strob0t/TierVault/internal/metrics"
	"github.com/Strob0t/TierVault/internal/resilience"
	"github.com/Strob0t/TierVault/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"lifecycle_interval", cfg.Lifecycle.Interval,
	)

	ctx := context.Background()

	// --- Observability ---

	otelShutdown, err := tvotel.Init(ctx, cfg.Otel, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("otel shutdown failed", "error", err)
		}
	}()

	var recorder metrics.Recorder
	if cfg.Otel.Enabled {
		m, err := tvotel.NewMetrics()
		if err != nil {
			return fmt.Errorf("otel metrics: %w", err)
		}
		recorder = m
	}
	agg := metrics.New(recorder)

	// --- Infrastructure ---

	// PostgreSQL (L3 + catalog + access patterns)
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	// NATS JetStream (L2 cache + L4 archive)
	nc, err := nats.Connect(cfg.NATS.URL, nats.Name(cfg.Logging.Service))
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("jetstream: %w", err)
	}

	kv, err := natskv.Open(ctx, js, cfg.NATS.KVBucket, cfg.NATS.KVTTL)
	if err != nil {
		return fmt.Errorf("open kv bucket: %w", err)
	}

	archive, err := natsobj.Open(ctx, js, cfg.NATS.ArchiveBucket)
	if err != nil {
		return fmt.Errorf("open archive bucket: %w", err)
	}
	slog.Info("nats connected", "kv_bucket", cfg.NATS.KVBucket, "archive_bucket", cfg.NATS.ArchiveBucket)

	// --- Storage tiers ---

	db := postgres.NewStore(pool)
	l1 := memory.New()

	// Remote tiers fail fast behind circuit breakers so a dead backend
	// degrades reads to the next tier instead of stalling them.
	l2 := service.NewGuardedStore(kv,
		resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
	l4 := service.NewGuardedStore(service.NewArchiveStore(db, archive),
		resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	tiers := service.Tiers{
		L1: l1,
		L2: l2,
		L3: service.NewRelationalStore(db),
		L4: l4,
	}

	// --- Services ---

	tracker := service.NewTracker(db)
	if err := tracker.Load(ctx); err != nil {
		return fmt.Errorf("tracker: %w", err)
	}

	coordinator := service.NewCoordinator(cfg.Cache, tiers, tracker, agg)

	lifecycle := service.NewLifecycle(cfg.Lifecycle, l1, l2, db, archive, tracker, agg)
	lifecycle.Start()

	// --- HTTP ---

	handlers := tvhttp.NewHandlers(coordinator, lifecycle)

	r := chi.NewRouter()
	r.Use(tvhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(tvhttp.RequestID)
	r.Use(tvhttp.Logger)
	r.Use(tvhttp.SecurityHeaders)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(tvotel.HTTPMiddleware(cfg.Logging.Service))

	tvhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown failed", "error", err)
	}

	// Stop maintenance before flushing so no pass races the final state.
	lifecycle.Stop()
	if err := coordinator.Close(shutdownCtx); err != nil {
		return fmt.Errorf("flush access patterns: %w", err)
	}
	return nil
}
