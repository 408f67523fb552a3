package audit

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLogEntry is append-only. UserID is a historical reference, not a foreign key.
type AuditLogEntry struct {
	ID         string            `gorm:"primaryKey;size:26"`
	UserID     *string           `gorm:"column:user_id;size:36;index"`
	Action     string            `gorm:"column:action;size:64;not null;index"`
	EntityType *string           `gorm:"column:entity_type;size:32"`
	EntityID   *string           `gorm:"column:entity_id;size:64"`
	Metadata   datatypes.JSONMap `gorm:"column:metadata"`
	IPAddress  string            `gorm:"column:ip_address;size:64;not null"`
	CreatedAt  time.Time         `gorm:"column:created_at;not null;index"`
}

func (AuditLogEntry) TableName() string {
	return "audit_logs"
}
