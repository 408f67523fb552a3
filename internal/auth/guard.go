package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Merchously/iRun/internal"
	"github.com/Merchously/iRun/internal/metrics"
	"github.com/Merchously/iRun/internal/permission"
)

// Guard composes session validation with the permission matrix. It has no side effects
// beyond the renewal performed by the session authority.
type Guard struct {
	sessions SessionAuthority
	users    IdentityRepository
	matrix   *permission.Matrix
	logger   *slog.Logger
}

func NewGuard(sessions SessionAuthority, users IdentityRepository, matrix *permission.Matrix, logger *slog.Logger) *Guard {
	if matrix == nil {
		matrix = permission.DefaultMatrix()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		sessions: sessions,
		users:    users,
		matrix:   matrix,
		logger:   logger,
	}
}

func (g *Guard) RequireAuthenticated(ctx context.Context, token string) (*Identity, error) {
	sess, err := g.sessions.Validate(ctx, token)
	if err != nil {
		if internal.IsType(err, internal.ErrorTypeUnauthenticated) {
			metrics.AuthorizationDenied.WithLabelValues("unauthenticated").Inc()
		}
		return nil, err
	}

	user, roles, err := g.users.GetIdentity(ctx, sess.UserID)
	if errors.Is(err, internal.ErrUserNotFound) {
		metrics.AuthorizationDenied.WithLabelValues("unauthenticated").Inc()
		return nil, internal.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}

	return &Identity{
		User:    *user,
		Session: sess,
		Roles:   permission.ToRoles(roles),
	}, nil
}

func (g *Guard) RequirePermission(ctx context.Context, token string, p permission.Permission) (*Identity, error) {
	id, err := g.RequireAuthenticated(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := g.Authorize(ctx, id, p); err != nil {
		return nil, err
	}
	return id, nil
}

func (g *Guard) RequireRole(ctx context.Context, token string, role permission.Role) (*Identity, error) {
	id, err := g.RequireAuthenticated(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := g.AuthorizeRole(ctx, id, role); err != nil {
		return nil, err
	}
	return id, nil
}

// RequireStaff admits any internal role.
func (g *Guard) RequireStaff(ctx context.Context, token string) (*Identity, error) {
	id, err := g.RequireAuthenticated(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := g.AuthorizeStaff(ctx, id); err != nil {
		return nil, err
	}
	return id, nil
}

// Authorize checks an already resolved identity against p.
func (g *Guard) Authorize(ctx context.Context, id *Identity, p permission.Permission) error {
	if id == nil {
		return internal.ErrUnauthenticated
	}
	if !g.matrix.HasPermission(id.Roles, p) {
		g.deny(ctx, id, "required_permission", string(p))
		return internal.ErrForbidden
	}
	return nil
}

func (g *Guard) AuthorizeRole(ctx context.Context, id *Identity, role permission.Role) error {
	if id == nil {
		return internal.ErrUnauthenticated
	}
	if !permission.HasRole(id.Roles, role) {
		g.deny(ctx, id, "required_role", string(role))
		return internal.ErrForbidden
	}
	return nil
}

func (g *Guard) AuthorizeStaff(ctx context.Context, id *Identity) error {
	if id == nil {
		return internal.ErrUnauthenticated
	}
	if !permission.IsStaff(id.Roles) {
		g.deny(ctx, id, "required_role", "staff")
		return internal.ErrForbidden
	}
	return nil
}

func (g *Guard) deny(ctx context.Context, id *Identity, key, value string) {
	metrics.AuthorizationDenied.WithLabelValues("forbidden").Inc()
	g.logger.WarnContext(ctx, "access denied",
		"user_id", id.UserID(),
		key, value,
		"roles", id.Roles)
}
