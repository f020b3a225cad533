package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/rajasatyajit/QuakeAlert/config"
	"github.com/rajasatyajit/QuakeAlert/internal/api"
	"github.com/rajasatyajit/QuakeAlert/internal/database"
	"github.com/rajasatyajit/QuakeAlert/internal/logger"
	"github.com/rajasatyajit/QuakeAlert/internal/metrics"
	middlewares "github.com/rajasatyajit/QuakeAlert/internal/middleware"
	"github.com/rajasatyajit/QuakeAlert/internal/pipeline"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the feed scheduler",
	Long: `Start the HTTP API (manual checks, notification history, health) and,
unless disabled, the periodic feed pollers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if noSchedule, _ := cmd.Flags().GetBool("no-schedule"); noSchedule {
			cfg.Schedule.Enabled = false
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("no-schedule", false, "serve the API without periodic feed checks")
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger.Info("Starting QuakeAlert",
		"version", Version,
		"build_time", BuildTime,
		"git_commit", GitCommit,
	)

	metrics.Init(cfg.Metrics.Enabled)
	if cfg.Metrics.Enabled {
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	}

	if cfg.Database.URL != "" && cfg.Database.MigrateOnStart {
		if err := database.Migrate(cfg.Database.URL); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if cfg.Schedule.Enabled {
		go func() {
			if err := a.pipeline.Run(ctx, pipeline.SchedulesFromConfig(cfg.Schedule)); err != nil {
				logger.Error("Scheduler error", "error", err)
			}
		}()
	} else {
		logger.Info("Periodic checks disabled; cycles run only on manual trigger")
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.Logging)
	r.Use(middlewares.Metrics)
	r.Use(middleware.Recoverer)
	r.Use(middlewares.Security)
	r.Use(middlewares.CORS(cfg.Server.AllowedOrigins))

	apiHandler := api.NewHandler(a.store, a.pipeline, Version, BuildTime, GitCommit)
	apiHandler.RegisterRoutes(r, middlewares.RateLimit(cfg.Server.TriggerRateLimit))

	if cfg.Metrics.Enabled {
		go startMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
	return nil
}

func startMetricsServer(port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Starting metrics server", "address", addr, "path", path)

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics server failed", "error", err)
	}
}
