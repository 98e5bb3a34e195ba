package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cohortcast/internal/core/services"
	httphandlers "cohortcast/internal/handlers/http"
	"cohortcast/internal/infrastructure/cache"
	"cohortcast/internal/infrastructure/hms"
	"cohortcast/internal/infrastructure/monitoring"
	"cohortcast/pkg/circuitbreaker"
	"cohortcast/pkg/config"
	"cohortcast/pkg/logger"
	"cohortcast/pkg/retry"
	"cohortcast/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
			defer func() { _ = zapLogger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, zapLogger)
		},
	}
}

// app holds the wired service and everything that needs closing.
type app struct {
	handler http.Handler
	closers []func(context.Context) error
}

func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i](ctx)
	}
}

func buildApp(cfg *config.Config, zapLogger *zap.Logger, reg *prometheus.Registry) (*app, error) {
	log := zapLogger.Sugar()
	a := &app{}

	tracing.SetLogger(zapr.NewLogger(zapLogger.Named("otel")))
	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     BuildVersion,
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.closers = append(a.closers, tp.Shutdown)

	tokens, err := newTokenService(cfg)
	if err != nil {
		return nil, err
	}

	metrics := monitoring.NewPrometheusCollector(reg)

	mgmtTokens, err := hms.NewManagementTokenSource(cfg.HMS.ManagementToken.Value(), cfg.HMS.Secret.Value(), cfg.HMS.AccessKey)
	if err != nil {
		return nil, err
	}

	breakerCfg := circuitbreaker.DefaultConfig()
	breakerCfg.FailureThreshold = cfg.Recordings.CircuitBreaker.FailureThreshold
	breakerCfg.SuccessThreshold = cfg.Recordings.CircuitBreaker.SuccessThreshold
	breakerCfg.Timeout = cfg.Recordings.CircuitBreaker.Timeout

	retryCfg := retry.DefaultConfig()
	retryCfg.Enabled = cfg.Recordings.Retry.Enabled
	retryCfg.MaxAttempts = cfg.Recordings.Retry.MaxAttempts
	retryCfg.InitialDelay = cfg.Recordings.Retry.InitialDelay
	retryCfg.MaxDelay = cfg.Recordings.Retry.MaxDelay

	client := hms.NewClient(hms.Config{
		BaseURL: cfg.HMS.APIBaseURL,
		Timeout: cfg.HMS.RequestTimeout,
		Retry:   retryCfg,
		Breaker: breakerCfg,
	}, mgmtTokens, metrics, log.Named("hms"))

	client.Breaker().OnStateChange(func(from, to circuitbreaker.State) {
		metrics.SetBreakerState(to)
		log.Warnw("platform circuit breaker state changed", "from", from, "to", to)
	})

	store := cache.New(cfg, log)
	a.closers = append(a.closers, func(context.Context) error { return store.Close() })

	recordings := services.NewRecordingService(client, store, cfg.Recordings.CacheTTL, metrics, log.Named("recordings"))

	checker := monitoring.NewHealthChecker()
	checker.AddCacheCheck(store, 2*time.Second)
	checker.AddCircuitBreakerCheck("hms_api", client.Breaker())

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	a.handler = httphandlers.NewRouter(httphandlers.RouterDeps{
		Config:     cfg,
		Logger:     logger.NewContextLogger(zapLogger),
		Auth:       httphandlers.NewAuthHandler(tokens, tokens, metrics),
		Recordings: httphandlers.NewRecordingHandler(recordings, tokens),
		Health:     httphandlers.NewHealthHandler(checker, BuildVersion),
		Metrics:    metrics,
		Gatherer:   reg,
	})

	log.Infow("service configured",
		"room_id", cfg.HMS.RoomID,
		"api_base_url", cfg.HMS.APIBaseURL,
		"static_management_token", cfg.HMS.ManagementToken != "",
		"redis_enabled", cfg.Redis.Enabled,
		"tracing_enabled", cfg.Tracing.Enabled,
	)
	return a, nil
}

func serve(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) error {
	log := zapLogger.Sugar()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := buildApp(cfg, zapLogger, reg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("starting cohortcast on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		a.close(context.Background())
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("error force closing server", "error", closeErr)
		}
	} else {
		log.Info("server shutdown gracefully")
	}

	a.close(shutdownCtx)
	log.Info("cohortcast stopped")
	return nil
}
