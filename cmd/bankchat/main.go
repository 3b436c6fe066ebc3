package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bankchat/internal/cache"
	"bankchat/internal/config"
	"bankchat/internal/convo"
	"bankchat/internal/handlers"
	"bankchat/internal/llm"
	"bankchat/internal/metrics"
	"bankchat/internal/nlu"
	"bankchat/internal/repo"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("starting bankchat", "env", cfg.AppEnv, "listen", cfg.HTTPListenAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(cfg.MetricsNamespace, registry)

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	var redisCache *cache.Redis
	if cfg.RedisAddr != "" {
		redisCache, err = cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			return err
		}
		defer redisCache.Close()
	} else {
		logger.Info("redis not configured, session locking disabled")
	}

	client := llm.New(llm.Config{
		APIURL:   cfg.OllamaAPIURL,
		Model:    cfg.OllamaModel,
		Attempts: cfg.OllamaAttempts,
		Backoff:  cfg.OllamaBackoff,
		Timeout:  cfg.OllamaTimeout,
	}, m, logger)
	extractor := nlu.New(client, m, logger)

	var rng *rand.Rand
	if cfg.RandSeed != 0 {
		rng = rand.New(rand.NewSource(cfg.RandSeed))
	}
	engine := convo.New(extractor, m, logger, rng, nil)

	mux := http.NewServeMux()
	handlers.NewChat(store, redisCache, engine, m, logger, cfg.HistoryLimit, cfg.SessionLockTTL).Register(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repo.Store, error) {
	if cfg.DatabaseURL != "" {
		logger.Info("using postgres store")
		return repo.NewPostgres(ctx, cfg.DatabaseURL, logger)
	}
	logger.Info("using sqlite store", "path", cfg.SQLitePath)
	return repo.NewSQLite(ctx, cfg.SQLitePath, logger)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
