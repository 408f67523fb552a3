package postgres

import (
	"context"

	auditDatamodel "github.com/Merchously/iRun/internal/core/datamodel/audit"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Append(ctx context.Context, row *auditDatamodel.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) List(ctx context.Context, limit, offset int) ([]auditDatamodel.AuditLogEntry, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&auditDatamodel.AuditLogEntry{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []auditDatamodel.AuditLogEntry
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return rows, total, err
}
