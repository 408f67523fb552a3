package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Merchously/iRun/internal/session"
	"github.com/Merchously/iRun/internal/session/cleanup"
	sessionPostgres "github.com/Merchously/iRun/internal/session/postgres"
	"github.com/Merchously/iRun/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background maintenance workers that run beside the HTTP server.`,
}

var sessionWorkerCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Sweep expired sessions",
	Long:  `Delete expired sessions on an interval, or once with --once.`,
	Run: func(cmd *cobra.Command, args []string) {
		startSessionWorker()
	},
}

var runOnce bool

func startSessionWorker() {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	lg := logger.LoggerWrapper()

	db, err := initDB(cfg.Database)
	if err != nil {
		lg.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	sessions := session.NewService(sessionPostgres.NewRepository(db), lg,
		session.WithLifetime(cfg.Security.SessionLifetime))
	worker, err := cleanup.New(sessions,
		cleanup.WithInterval(cfg.Workers.SessionCleanupInterval),
		cleanup.WithLogger(lg))
	if err != nil {
		lg.Error("failed to create session worker", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if runOnce {
		n, err := worker.RunOnce(ctx)
		if err != nil {
			lg.Error("session sweep failed", "error", err)
			os.Exit(1)
		}
		lg.Info("session sweep complete", "purged", n)
		return
	}

	lg.Info("session worker started", "interval", cfg.Workers.SessionCleanupInterval)
	if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		lg.Error("session worker stopped", "error", err)
		os.Exit(1)
	}
	lg.Info("session worker shutdown complete")
}

func init() {
	sessionWorkerCmd.Flags().BoolVar(&runOnce, "once", false, "sweep once and exit")
	workerCmd.AddCommand(sessionWorkerCmd)
}
