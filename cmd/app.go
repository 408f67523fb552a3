package cmd

import (
	"log/slog"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"

	"github.com/Merchously/iRun/internal"
	"github.com/Merchously/iRun/internal/audit"
	auditPostgres "github.com/Merchously/iRun/internal/audit/postgres"
	"github.com/Merchously/iRun/internal/auth"
	authPostgres "github.com/Merchously/iRun/internal/auth/postgres"
	"github.com/Merchously/iRun/internal/core/events"
	"github.com/Merchously/iRun/internal/event"
	eventPostgres "github.com/Merchously/iRun/internal/event/postgres"
	"github.com/Merchously/iRun/internal/permission"
	"github.com/Merchously/iRun/internal/session"
	sessionPostgres "github.com/Merchously/iRun/internal/session/postgres"
	"github.com/Merchously/iRun/internal/user"
	userPostgres "github.com/Merchously/iRun/internal/user/postgres"
)

// services holds every domain service wired against one database.
type services struct {
	Bus      *events.EventBus
	Audit    *audit.Service
	Sessions *session.Service
	Guard    *auth.Guard
	Auth     *auth.Service
	Users    *user.Service
	Events   *event.Service
}

func newServices(cfg *internal.Config, db *sqlx.DB, gdb *gorm.DB, logger *slog.Logger) *services {
	matrix := permission.DefaultMatrix()

	auditService := audit.NewService(auditPostgres.NewRepository(gdb), logger)
	sessionService := session.NewService(sessionPostgres.NewRepository(db), logger,
		session.WithLifetime(cfg.Security.SessionLifetime))

	identities := authPostgres.NewRepository(gdb)
	guard := auth.NewGuard(sessionService, identities, matrix, logger)
	authService := auth.NewService(identities, sessionService, auditService, cfg.Security.BCryptCost, logger)

	userService := user.NewService(userPostgres.NewUserRepository(gdb), matrix, auditService, logger)

	bus := events.NewEventBus(logger)
	eventService := event.NewService(eventPostgres.NewEventRepository(gdb), bus, auditService, logger)
	event.RegisterSubscribers(bus, eventService)

	return &services{
		Bus:      bus,
		Audit:    auditService,
		Sessions: sessionService,
		Guard:    guard,
		Auth:     authService,
		Users:    userService,
		Events:   eventService,
	}
}
