package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/Merchously/iRun/internal"
	"github.com/Merchously/iRun/internal/audit"
	"github.com/Merchously/iRun/internal/auth"
	"github.com/Merchously/iRun/internal/event"
	"github.com/Merchously/iRun/internal/metrics"
	"github.com/Merchously/iRun/internal/session/cleanup"
	"github.com/Merchously/iRun/internal/transport"
	"github.com/Merchously/iRun/internal/transport/middleware"
	"github.com/Merchously/iRun/internal/transport/rest"
	"github.com/Merchously/iRun/internal/transport/swagger"
	"github.com/Merchously/iRun/internal/user"
	"github.com/Merchously/iRun/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

var withSessionCleanup bool

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Router   *chi.Mux
	Services *services
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	lg := deps.Logger

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if withSessionCleanup {
		worker, err := cleanup.New(deps.Services.Sessions,
			cleanup.WithInterval(deps.Config.Workers.SessionCleanupInterval),
			cleanup.WithLogger(lg))
		if err != nil {
			lg.Error("failed to create session cleanup worker", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("session cleanup stopped", "error", err)
			}
		}()
	}

	serverErrChan := make(chan error, 1)
	go func() {
		lg.Info("starting HTTP server", "address", addr)
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		lg.Info("received signal, shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("server shutdown error", "error", err)
		}
		if err := deps.Services.Bus.Drain(shutdownCtx); err != nil {
			lg.Warn("event bus did not drain", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("server failed to start", "error", err)
			_ = deps.DB.Close()
			os.Exit(1)
		}
	}

	if err := deps.DB.Close(); err != nil {
		lg.Error("database close error", "error", err)
	}
	lg.Info("server stopped")
}

func setupRoutes(deps *Dependencies) {
	cfg := deps.Config
	svc := deps.Services
	base := transport.NewBaseHandler(deps.Logger)

	doc, err := swagger.LoadDocument(context.Background(), cfg.Server.OpenAPIPath)
	if err != nil {
		deps.Logger.Warn("openapi document unavailable, swagger disabled", "error", err)
	}

	metricsPath := ""
	if cfg.Observability.Metrics.Enabled {
		metrics.Init()
		metricsPath = cfg.Observability.Metrics.Path
	}

	rest.RegisterAllRoutes(deps.Router, rest.Routes{
		Health: rest.NewHealthHandler(deps.DB),
		RBAC:   auth.NewRBACAuthorization(svc.Guard, cfg.Security.SessionCookieName, deps.Logger),
		Auth: auth.NewHandler(base, svc.Auth, auth.CookieConfig{
			Name:   cfg.Security.SessionCookieName,
			Secure: cfg.Security.SecureCookie || cfg.IsProduction(),
		}),
		User:           user.NewHandler(base, svc.Users),
		Event:          event.NewHandler(base, svc.Events),
		Audit:          audit.NewHandler(base, svc.Audit),
		OpenAPI:        doc,
		MetricsPath:    metricsPath,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AuthLimiter:    middleware.NewClientRateLimiter(cfg.Security.AuthRatePerMinute, cfg.Security.AuthRateBurst),
	}, deps.Logger)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	gdb, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Dependencies{
		Config:   config,
		DB:       db,
		Router:   chi.NewRouter(),
		Services: newServices(config, db, gdb, lg),
		Logger:   lg,
	}, nil
}

func init() {
	httpServerCmd.Flags().BoolVar(&withSessionCleanup, "with-session-cleanup", false, "also run the expired session sweep in this process")
}
