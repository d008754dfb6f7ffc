package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/database"
	"github.com/ekaya-inc/growth-engine/pkg/handlers"
	"github.com/ekaya-inc/growth-engine/pkg/middleware"
)

const shutdownTimeout = 30 * time.Second

var serveMemory bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API.",
	Long: `Serve the analysis API:

  GET  /health
  GET  /ping
  POST /api/stores/{sid}/analyses
  GET  /api/stores/{sid}/analyses/{aid}
  POST /api/stores/{sid}/analyses/{aid}/cancel
  GET  /api/stores/{sid}/suggestions
  PUT  /api/stores/{sid}/suggestions/{sgid}/status

Analyses are stored in PostgreSQL unless --memory is given.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveMemory, "memory", false, "Keep analyses in memory instead of PostgreSQL")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting growth-engine",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL))

	var (
		store       *storage
		redisClient *redis.Client
	)
	if serveMemory {
		store = memoryStorage()
	} else {
		if store, err = postgresStorage(ctx, cfg, logger); err != nil {
			return err
		}
		// Redis only caches knowledge; the API works without it.
		if redisClient, err = database.NewRedisClient(ctx, &cfg.Redis); err != nil {
			logger.Warn("Knowledge cache disabled", zap.Error(err))
			redisClient = nil
		}
	}

	eng, err := buildEngine(ctx, cfg, store, redisClient, logger)
	if err != nil {
		store.close()
		return err
	}

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, eng.router, logger).RegisterRoutes(mux)
	handlers.NewAnalysisHandler(eng.pipeline, store.suggestions, logger.Named("http")).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.Recoverer(logger)(middleware.RequestLogger(logger)(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err = <-serveErr:
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(shutdownErr))
	}
	eng.close(shutdownCtx)

	if err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
