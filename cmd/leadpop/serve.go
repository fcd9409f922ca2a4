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

	"github.com/spf13/cobra"

	"github.com/leadpop/leadpop/internal/api"
	"github.com/leadpop/leadpop/internal/config"
	"github.com/leadpop/leadpop/internal/db"
	"github.com/leadpop/leadpop/internal/delivery"
	"github.com/leadpop/leadpop/internal/metrics"
	"github.com/leadpop/leadpop/internal/notify"
	"github.com/leadpop/leadpop/internal/repository"
	"github.com/leadpop/leadpop/internal/webhook"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the popup delivery server",
	RunE:  runServe,
}

var configFile string

func init() {
	serveCmd.Flags().StringVarP(&configFile, "config", "c", "/etc/leadpop/leadpop.yaml", "Path to configuration file")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	// Setup logger
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: parseLogLevel(cfg.Logging.Level),
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: parseLogLevel(cfg.Logging.Level),
		})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return err
	}

	popups := repository.NewPopupRepository(database.DB)
	leads := repository.NewLeadRepository(database.DB)
	settings := repository.NewSettingsRepository(database.DB)
	users := repository.NewUserRepository(database.DB)

	svc := delivery.New(popups, leads, logger)

	// Lead forwarders: webhook first, then email notification
	dispatcher := webhook.New(cfg.Webhook, settings, logger)
	svc.AddForwarder(dispatcher)

	mailer := notify.New(cfg.Notify, logger)
	svc.AddForwarder(mailer)

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		m := metrics.New()
		metrics.SetGlobal(m)
		svc.SetRecorder(m)

		metricsServer = metrics.NewServer(m, cfg.Metrics.ListenAddr, logger)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	srv := api.NewServer(cfg, svc, popups, leads, settings, users, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-sigCh:
		logger.Info("shutting down...", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics shutdown failed", "error", err)
		}
	}

	// Drain in-flight lead forwards
	dispatcher.Close()
	mailer.Close()

	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
