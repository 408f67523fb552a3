package auth

import (
	"log/slog"
	"net/http"

	"github.com/Merchously/iRun/internal"
	"github.com/Merchously/iRun/internal/permission"
	"github.com/Merchously/iRun/internal/transport"
	"github.com/Merchously/iRun/pkg/logger"
)

// RBACAuthorization adapts the Guard to chi middlewares: Unauthenticated becomes 401,
// Forbidden becomes 403.
type RBACAuthorization struct {
	*transport.BaseHandler
	guard      *Guard
	cookieName string
}

func NewRBACAuthorization(guard *Guard, cookieName string, lg *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(lg),
		guard:       guard,
		cookieName:  cookieName,
	}
}

// Authenticate resolves the caller's session and stores the Identity in the request context.
func (ra *RBACAuthorization) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r, ra.cookieName)
		id, err := ra.guard.RequireAuthenticated(r.Context(), token)
		if err != nil {
			ra.WriteAppError(w, r, err)
			return
		}

		ctx := ContextWithIdentity(r.Context(), id)
		ctx = internal.ContextWithUserID(ctx, id.UserID())
		ctx = logger.WithUser(ctx, id.UserID())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (ra *RBACAuthorization) check(authorize func(r *http.Request, id *Identity) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				ra.Logger.WarnContext(r.Context(), "authorization check failed: identity not found in context")
				ra.WriteAppError(w, r, internal.ErrUnauthenticated)
				return
			}
			if err := authorize(r, id); err != nil {
				ra.WriteAppError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (ra *RBACAuthorization) RequirePermission(p permission.Permission) func(http.Handler) http.Handler {
	return ra.check(func(r *http.Request, id *Identity) error {
		return ra.guard.Authorize(r.Context(), id, p)
	})
}

func (ra *RBACAuthorization) RequireRole(role permission.Role) func(http.Handler) http.Handler {
	return ra.check(func(r *http.Request, id *Identity) error {
		return ra.guard.AuthorizeRole(r.Context(), id, role)
	})
}

func (ra *RBACAuthorization) RequireStaff() func(http.Handler) http.Handler {
	return ra.check(func(r *http.Request, id *Identity) error {
		return ra.guard.AuthorizeStaff(r.Context(), id)
	})
}
