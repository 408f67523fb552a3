package postgres

import (
	"context"
	"fmt"

	"github.com/Merchously/iRun/internal"
	"github.com/Merchously/iRun/internal/core/common/dberr"
	userDatamodel "github.com/Merchously/iRun/internal/core/datamodel/user"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, userID string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).
		Preload("Roles", func(db *gorm.DB) *gorm.DB { return db.Order("assigned_at ASC") }).
		Where("id = ?", userID).
		First(&u).Error
	if dberr.IsNotFound(err) {
		return nil, internal.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}
	return &u, nil
}

// AddRole relies on idx_user_roles_user_role so racing duplicates also fail.
func (r *UserRepository) AddRole(ctx context.Context, ra *userDatamodel.RoleAssignment) error {
	err := r.db.WithContext(ctx).Create(ra).Error
	if dberr.IsUniqueViolation(err) {
		return internal.ErrRoleAlreadyAssigned
	}
	if err != nil {
		return fmt.Errorf("add role %s to %s: %w", ra.Role, ra.UserID, err)
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, userID string) error {
	res := r.db.WithContext(ctx).Where("id = ?", userID).Delete(&userDatamodel.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}
