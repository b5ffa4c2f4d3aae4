package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"librarymanager/internal/config"
	apphttp "librarymanager/internal/http"
	"librarymanager/internal/httpx"
	"librarymanager/internal/lending"
	"librarymanager/internal/metrics"
	"librarymanager/internal/rating"
	"librarymanager/internal/store"
)

func main() {
	config.LoadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	gateway, err := store.Open(ctx, store.OpenOptions{
		Driver:     cfg.Store.Driver,
		DSN:        cfg.Store.DSN,
		SQLitePath: cfg.Store.SQLitePath,
		Timeout:    cfg.Store.Timeout,
	})
	if err != nil {
		return err
	}
	defer gateway.Close()
	logger.Info("store ready", slog.String("driver", cfg.Store.Driver))

	recorder, metricsHandler, shutdownMetrics, err := metrics.Setup(ctx, cfg.Metrics)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown", slog.String("error", err.Error()))
		}
	}()

	limiter := httpx.NewRateLimitMiddleware(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)
	defer limiter.Stop()

	handler := buildHandler(cfg, gateway, logger, recorder, metricsHandler, limiter)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			slog.String("addr", cfg.Addr),
			slog.String("scoring", string(cfg.Scoring)),
		)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func buildHandler(
	cfg config.Config,
	gateway store.Gateway,
	logger *slog.Logger,
	recorder *metrics.Recorder,
	metricsHandler http.Handler,
	limiter *httpx.RateLimitMiddleware,
) http.Handler {
	service := lending.NewService(gateway, rating.NewEngine(cfg.Scoring), logger).WithObserver(recorder)

	router := apphttp.NewRouter(apphttp.Handlers{
		Users:   apphttp.NewUserHandler(service),
		Books:   apphttp.NewBookHandler(service),
		Health:  apphttp.NewHealthHandler(gateway),
		Metrics: metricsHandler,
	})

	return httpx.Chain(router,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware(logger),
		httpx.RecoveryMiddleware,
		httpx.SecurityHeadersMiddleware(cfg.HTTP.EnableHSTS),
		httpx.CORSMiddleware(cfg.HTTP.AllowedOrigins),
		limiter.Middleware,
		httpx.RequestSizeLimitMiddleware(cfg.HTTP.MaxBodyBytes),
		httpx.MetricsMiddleware(recorder),
	)
}
