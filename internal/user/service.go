package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Merchously/iRun/internal/audit"
	"github.com/Merchously/iRun/internal/core/common/validation"
	userDatamodel "github.com/Merchously/iRun/internal/core/datamodel/user"
	"github.com/Merchously/iRun/internal/ids"
	"github.com/Merchously/iRun/internal/permission"
)

// Repository returns internal.ErrUserNotFound for missing users and
// internal.ErrRoleAlreadyAssigned when the (user, role) pair already exists.
type Repository interface {
	GetByID(ctx context.Context, userID string) (*userDatamodel.User, error)
	AddRole(ctx context.Context, ra *userDatamodel.RoleAssignment) error
	Delete(ctx context.Context, userID string) error
}

type ServiceAPI interface {
	GetByID(ctx context.Context, userID string) (*User, error)
	GrantRole(ctx context.Context, actorID, userID string, dto AssignRoleDTO) (*RoleAssignment, error)
	DeleteUser(ctx context.Context, actorID, userID string) error
}

type Service struct {
	repo   Repository
	matrix *permission.Matrix
	audit  audit.Recorder
	logger *slog.Logger
}

func NewService(repo Repository, matrix *permission.Matrix, recorder audit.Recorder, logger *slog.Logger) *Service {
	if matrix == nil {
		matrix = permission.DefaultMatrix()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		matrix: matrix,
		audit:  recorder,
		logger: logger,
	}
}

func (s *Service) GetByID(ctx context.Context, userID string) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromDataModel(u, s.matrix), nil
}

func (s *Service) GrantRole(ctx context.Context, actorID, userID string, dto AssignRoleDTO) (*RoleAssignment, error) {
	names := make([]string, 0, len(permission.Roles()))
	for _, r := range permission.Roles() {
		names = append(names, string(r))
	}
	v := validation.NewValidator()
	v.Field("role", dto.Role).Required().OneOf(names...)
	if err := v.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	row := &userDatamodel.RoleAssignment{
		ID:         ids.New(),
		UserID:     userID,
		Role:       dto.Role,
		AssignedAt: time.Now().UTC(),
	}
	if actorID != "" {
		row.AssignedBy = &actorID
	}
	if err := s.repo.AddRole(ctx, row); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "role assigned", "user_id", userID, "role", dto.Role, "assigned_by", actorID)
	s.audit.Record(ctx, audit.Entry{
		ActorID:    actorID,
		Action:     audit.ActionRoleAssign,
		EntityType: audit.EntityUser,
		EntityID:   userID,
		Metadata:   map[string]interface{}{"role": dto.Role},
	})
	return assignmentFromDataModel(row), nil
}

// DeleteUser removes the account; sessions, role assignments and RSVPs go with it.
func (s *Service) DeleteUser(ctx context.Context, actorID, userID string) error {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete user %s: %w", userID, err)
	}

	s.logger.InfoContext(ctx, "user deleted", "user_id", userID, "deleted_by", actorID)
	s.audit.Record(ctx, audit.Entry{
		ActorID:    actorID,
		Action:     audit.ActionUserDelete,
		EntityType: audit.EntityUser,
		EntityID:   userID,
		Metadata:   map[string]interface{}{"email": u.Email},
	})
	return nil
}

var _ ServiceAPI = (*Service)(nil)
