package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Merchously/iRun/internal"
	"github.com/Merchously/iRun/internal/auth"
	"github.com/Merchously/iRun/internal/core/common/dberr"
	userDatamodel "github.com/Merchously/iRun/internal/core/datamodel/user"
	"github.com/Merchously/iRun/internal/ids"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetIdentity(ctx context.Context, userID string) (*auth.UserSummary, []string, error) {
	var row userDatamodel.User
	err := r.db.WithContext(ctx).
		Preload("Roles").
		Select("id", "email", "display_name").
		Where("id = ?", userID).
		First(&row).Error
	if dberr.IsNotFound(err) {
		return nil, nil, internal.ErrUserNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get identity %s: %w", userID, err)
	}

	roles := make([]string, 0, len(row.Roles))
	for _, ra := range row.Roles {
		roles = append(roles, ra.Role)
	}
	return &auth.UserSummary{ID: row.ID, Email: row.Email, DisplayName: row.DisplayName}, roles, nil
}

func (r *Repository) FindCredentialsByEmail(ctx context.Context, email string) (*auth.Credentials, error) {
	var row userDatamodel.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&row).Error
	if dberr.IsNotFound(err) {
		return nil, internal.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find credentials: %w", err)
	}
	return &auth.Credentials{
		UserID:       row.ID,
		Email:        row.Email,
		DisplayName:  row.DisplayName,
		PasswordHash: row.PasswordHash,
	}, nil
}

func (r *Repository) CreateWithRole(ctx context.Context, acct auth.NewAccount) (*auth.UserSummary, error) {
	now := time.Now().UTC()
	row := &userDatamodel.User{
		ID:           ids.New(),
		Email:        acct.Email,
		PasswordHash: acct.PasswordHash,
		DisplayName:  acct.DisplayName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(row).Error; err != nil {
			return err
		}
		return tx.Create(&userDatamodel.RoleAssignment{
			ID:         ids.New(),
			UserID:     row.ID,
			Role:       string(acct.Role),
			AssignedAt: now,
		}).Error
	})
	if dberr.IsUniqueViolation(err) {
		return nil, internal.ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return &auth.UserSummary{ID: row.ID, Email: row.Email, DisplayName: row.DisplayName}, nil
}
