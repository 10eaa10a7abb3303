package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/formship/formship/internal/api"
	"github.com/formship/formship/internal/audit"
	"github.com/formship/formship/internal/config"
	"github.com/formship/formship/internal/snapshot"
	"github.com/formship/formship/internal/store"
	"github.com/formship/formship/internal/telemetry"
	"github.com/formship/formship/internal/webhook"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load failed")
	}
	if cfg.AppEnv == "dev" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("config validation failed")
	}

	telemetry.Init()

	ctx := context.Background()

	backend, err := store.Open(ctx, cfg.StoreType, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("storage backend failed")
	}
	st := backend.Store
	defer st.Close()

	// the queryable memory sink always backs the audit API; the durable sink
	// shares the store's postgres pool when there is one
	memSink := audit.NewMemorySink(0)
	var auditSink audit.AuditSink
	if backend.Pool != nil {
		auditSink = audit.NewMultiSink(memSink, audit.NewPostgresSink(backend.Pool))
	} else {
		auditSink = audit.NewMultiSink(memSink, audit.NewLogSink(logger))
	}

	auditSvc := audit.NewService(auditSink, nil, nil, nil, 1000)
	defer auditSvc.Stop()

	registry := webhook.NewMemoryRegistry()
	dispatcher := webhook.NewDispatcher(registry)
	dispatcher.Start()
	defer dispatcher.Stop()

	srvAPI := api.NewServer(st, cfg.Env, cfg.AdminAPIKey).
		WithAudit(auditSvc, memSink).
		WithWebhooks(dispatcher, registry).
		WithRateLimit(cfg.RateLimitPerIP)

	// warm the snapshot before accepting traffic
	if err := srvAPI.RebuildSnapshot(ctx, cfg.Env); err != nil {
		logger.Fatal().Err(err).Msg("initial snapshot build failed")
	}
	snap := snapshot.Load()
	logger.Info().
		Int("forms", len(snap.Forms)).
		Str("etag", snap.ETag).
		Str("env", cfg.Env).
		Msg("snapshot ready")

	// metrics endpoint on its own listener
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srvAPI.Router(),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 0, // SSE streams must not be cut off
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShut, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShut)
	logger.Info().Msg("stopped")
}
