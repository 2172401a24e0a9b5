package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rateintel/rateintel-go/internal/api"
	"github.com/rateintel/rateintel-go/internal/conf"
	"github.com/rateintel/rateintel-go/internal/datastore"
	"github.com/rateintel/rateintel-go/internal/datastore/repository"
	"github.com/rateintel/rateintel-go/internal/logger"
	"github.com/rateintel/rateintel-go/internal/notification"
	"github.com/rateintel/rateintel-go/internal/observability/metrics"
)

// Version info (set by ldflags)
var version = "dev"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:     "rateintel",
		Short:   "Rate-intelligence alert rule service",
		Long:    "rateintel serves the hotel rate-intelligence alert API: rule storage, compiled rule rows, change history, and the lookup tables the alert settings form is built from.",
		Version: version,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")

	rootCmd.AddCommand(newServeCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	settings, err := conf.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.NewSlogLogger(os.Stdout, logLevel(settings.Log.Level), []logger.Field{
		logger.String("service", "rateintel"),
	})

	db, err := datastore.Open(settings.Database)
	if err != nil {
		return err
	}
	repo := repository.NewAlertRepository(db)

	noticeConfig, err := notification.ConfigFromSettings(&settings.Notices, log)
	if err != nil {
		return err
	}
	notification.Initialize(noticeConfig)

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if settings.Alerts.HistoryRetentionDays > 0 {
		go runHistoryCleanup(ctx, repo, settings.Alerts.HistoryRetentionDays, log)
	}

	controller := api.New(settings, repo, notification.GetService(), log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- controller.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return controller.Shutdown(shutdownCtx)
}

// runHistoryCleanup prunes change-history entries past the retention
// window, once at startup and then daily.
func runHistoryCleanup(ctx context.Context, repo repository.AlertRepository, retentionDays int, log logger.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		cutoff := time.Now().AddDate(0, 0, -retentionDays)
		pruned, err := repo.DeleteChangesBefore(ctx, cutoff)
		if err != nil {
			log.Error("history cleanup failed", logger.Error(err))
		} else if pruned > 0 {
			metrics.AddHistoryPruned(pruned)
			log.Info("pruned alert history",
				logger.Int64("entries", pruned),
				logger.String("cutoff", cutoff.Format(time.RFC3339)))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func logLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.LogLevelDebug
	case "warn":
		return logger.LogLevelWarn
	case "error":
		return logger.LogLevelError
	default:
		return logger.LogLevelInfo
	}
}
