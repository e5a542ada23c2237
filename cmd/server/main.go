package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/promptlabs/promptlab/internal/api"
	"github.com/promptlabs/promptlab/internal/config"
	"github.com/promptlabs/promptlab/internal/experiment"
	"github.com/promptlabs/promptlab/internal/llm"
	"github.com/promptlabs/promptlab/internal/ratelimit"
	"github.com/promptlabs/promptlab/internal/store"
	"github.com/promptlabs/promptlab/internal/telemetry"
	"github.com/redis/go-redis/v9"
)

var version = "dev"

func main() {
	configDir := flag.String("config", "configs", "path to configuration directory")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	loader := config.NewLoader(*configDir, logger)
	if err := loader.Load(); err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := loader.Watch(); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}

	cfg := loader.Config()

	// Connect to PostgreSQL
	dbPool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		logger.Warn("database not reachable (server will start but persistence will fail)", "error", err)
	} else {
		logger.Info("database connected")
	}

	// Connect to Redis
	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis not reachable (usage cache and rate limiting disabled)", "error", err)
			rdb = nil
		} else {
			logger.Info("redis connected")
		}
	}

	// Build provider client; rebuilt when provider config changes
	llmClient := llm.NewClient(cfg.Providers)
	loader.OnReload(func() {
		newClient := llm.NewClient(loader.Config().Providers)
		*llmClient = *newClient
		logger.Info("provider client reloaded")
	})

	// Stores and orchestration
	experiments := store.NewExperimentStore(dbPool)
	usage := store.NewCachedUsageStore(store.NewPGUsageStore(dbPool), rdb)
	runner := experiment.NewRunner(llmClient, experiments, usage)
	limiter := ratelimit.NewExperimentLimiter(rdb, cfg.Limits.DailyExperiments)
	metrics := telemetry.NewMetrics()

	handler := api.NewHandler(runner, experiments, usage, limiter, metrics, func() api.Limits {
		limits := loader.Config().Limits
		return api.Limits{
			MaxPromptLength:  limits.MaxPromptLength,
			MaxTestSamples:   limits.MaxTestSamples,
			DailyExperiments: limits.DailyExperiments,
		}
	}, version)

	// Router setup
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)

	r.Get("/", handler.Root)
	r.Get("/health", handler.Health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/experiments", handler.RunExperiment)
		r.Get("/experiments", handler.ListExperiments)
		r.Get("/usage", handler.UsageStats)
		r.Delete("/reset", handler.Reset)
		r.Post("/export", handler.Export)
	})

	// Metrics listener
	if cfg.Telemetry.MetricsPort > 0 {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsAddr := fmt.Sprintf(":%d", cfg.Telemetry.MetricsPort)
		go func() {
			logger.Info("metrics listener starting", "addr", metricsAddr)
			if err := http.ListenAndServe(metricsAddr, metricsMux); err != nil {
				logger.Error("metrics listener failed", "error", err)
			}
		}()
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", addr, "version", version)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", reqID)
		ctx := context.WithValue(r.Context(), requestIDKey, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type contextKey string

const requestIDKey contextKey = "request_id"

func generateRequestID() string {
	now := time.Now()
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("req_%d_%s", now.UnixMilli(), hex.EncodeToString(b))
}
