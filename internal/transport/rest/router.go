package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/Merchously/iRun/internal/audit"
	"github.com/Merchously/iRun/internal/auth"
	"github.com/Merchously/iRun/internal/event"
	"github.com/Merchously/iRun/internal/metrics"
	"github.com/Merchously/iRun/internal/permission"
	"github.com/Merchously/iRun/internal/transport/middleware"
	"github.com/Merchously/iRun/internal/transport/swagger"
	"github.com/Merchously/iRun/internal/user"
)

// Routes collects what RegisterAllRoutes mounts. Nil handlers leave their routes out.
type Routes struct {
	Health         *HealthHandler
	RBAC           *auth.RBACAuthorization
	Auth           *auth.Handler
	User           *user.Handler
	Event          *event.Handler
	Audit          *audit.Handler
	OpenAPI        []byte
	MetricsPath    string
	AllowedOrigins string
	AuthLimiter    *middleware.ClientRateLimiter
}

func RegisterAllRoutes(router chi.Router, routes Routes, logger *slog.Logger) {
	router.Use(middleware.CORS(routes.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.PeerAddress)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.SourceAddress)
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(metrics.Instrument)
	router.NotFound(NotFound)

	if routes.OpenAPI != nil {
		router.Get("/openapi.yml", swagger.DocumentHandler(routes.OpenAPI))
		router.Handle("/swagger/*", swagger.Handler())
	}
	if routes.MetricsPath != "" {
		router.Handle(routes.MetricsPath, metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		if routes.Health != nil {
			r.Get("/health", routes.Health.Health)
			r.Get("/ping", routes.Health.Ping)
		}

		if routes.Auth != nil {
			r.Route("/auth", func(ar chi.Router) {
				if routes.AuthLimiter != nil {
					ar.Use(middleware.RateLimit(routes.AuthLimiter))
				}
				ar.Post("/register", routes.Auth.Register)
				ar.Post("/login", routes.Auth.Login)
				ar.Post("/logout", routes.Auth.Logout)
			})
		}

		if routes.Event != nil {
			r.Route("/events", func(er chi.Router) {
				er.Get("/", routes.Event.ListEvents)
				er.Get("/featured", routes.Event.FeaturedEvents)
				er.Get("/upcoming", routes.Event.UpcomingEvents)
				er.Get("/terrain/{terrain}", routes.Event.EventsByTerrain)
				er.Get("/{slug}", routes.Event.GetEventBySlug)
				if routes.RBAC != nil {
					er.With(routes.RBAC.Authenticate).Post("/{id}/rsvp", routes.Event.ToggleRsvp)
				}
			})
		}

		if routes.RBAC == nil {
			return
		}
		rbac := routes.RBAC

		r.Group(func(pr chi.Router) {
			pr.Use(rbac.Authenticate)

			if routes.User != nil {
				pr.Get("/users/me", routes.User.GetCurrentUser)
			}

			pr.Route("/admin", func(ad chi.Router) {
				ad.Use(rbac.RequireStaff())

				if routes.Event != nil {
					ad.Route("/events", func(er chi.Router) {
						er.With(rbac.RequirePermission(permission.EventEditAny)).Get("/", routes.Event.ListAllEvents)
						er.With(rbac.RequirePermission(permission.EventCreate)).Post("/", routes.Event.CreateEvent)
						er.With(rbac.RequirePermission(permission.EventEditAny)).Get("/{id}", routes.Event.GetEvent)
						er.With(rbac.RequirePermission(permission.EventEditAny)).Put("/{id}", routes.Event.UpdateEvent)
						er.With(rbac.RequirePermission(permission.EventPublish)).Post("/{id}/publish", routes.Event.PublishEvent)
						er.With(rbac.RequirePermission(permission.EventPublish)).Post("/{id}/unpublish", routes.Event.UnpublishEvent)
						er.With(rbac.RequirePermission(permission.EventDelete)).Delete("/{id}", routes.Event.DeleteEvent)
					})
				}

				if routes.User != nil {
					ad.With(rbac.RequirePermission(permission.RoleAssign)).Post("/users/{id}/roles", routes.User.AssignRole)
					ad.With(rbac.RequirePermission(permission.UserManage)).Delete("/users/{id}", routes.User.DeleteUser)
				}

				if routes.Audit != nil {
					ad.With(rbac.RequirePermission(permission.AuditView)).Get("/audit", routes.Audit.ListEntries)
				}
			})
		})
	})
}

// NotFound answers unknown routes with the JSON error envelope.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]interface{}{
		"error": map[string]string{"type": "NOT_FOUND", "code": "ROUTE_NOT_FOUND", "message": "route not found"},
	})
}
