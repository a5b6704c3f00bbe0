package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os/signal"
	"syscall"
	"time"

	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/pkg/config"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/pkg/observability"
)

// Run loads configuration, wires all dependencies, and serves HTTP until the
// process receives SIGINT or SIGTERM.
func Run() error {
	cfg := config.Load()
	logger := observability.NewLogger(cfg.Server.LogLevel)

	logger.Info("configuration loaded",
		slog.String("addr", cfg.Server.Addr()),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.Bool("jobs_enabled", cfg.Jobs.Enabled),
		slog.Bool("metrics_enabled", cfg.Observability.MetricsEnabled),
		slog.Bool("seed_enabled", cfg.Seed.Enabled),
	)

	deps, err := InitDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to init dependencies: %w", err)
	}
	defer deps.Cleanup()

	if cfg.Profiling.Enabled {
		go func() {
			addr := fmt.Sprintf("localhost:%d", cfg.Profiling.Port)
			logger.Info("pprof server starting", slog.String("addr", addr))
			if err := http.ListenAndServe(addr, nil); err != nil {
				logger.Warn("pprof server stopped", slog.Any("error", err))
			}
		}()
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      NewRouter(deps),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
