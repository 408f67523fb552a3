package audit

import (
	"context"
	"time"

	auditDatamodel "github.com/Merchously/iRun/internal/core/datamodel/audit"
)

const (
	ActionUserRegister   = "user.register"
	ActionUserLogin      = "user.login"
	ActionUserLogout     = "user.logout"
	ActionUserDelete     = "user.delete"
	ActionRoleAssign     = "role.assign"
	ActionEventCreate    = "event.create"
	ActionEventUpdate    = "event.update"
	ActionEventPublish   = "event.publish"
	ActionEventUnpublish = "event.unpublish"
	ActionEventDelete    = "event.delete"
)

const (
	EntityUser  = "user"
	EntityEvent = "event"
)

// Entry is what a mutating command hands to the trail. SourceAddress falls back to the request context.
type Entry struct {
	ActorID       string
	Action        string
	EntityType    string
	EntityID      string
	Metadata      map[string]interface{}
	SourceAddress string
}

type LogEntry struct {
	ID            string                 `json:"id"`
	ActorID       *string                `json:"actor_id"`
	Action        string                 `json:"action"`
	EntityType    *string                `json:"entity_type,omitempty"`
	EntityID      *string                `json:"entity_id,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	SourceAddress string                 `json:"source_address"`
	CreatedAt     time.Time              `json:"created_at"`
}

// Recorder is the write side every mutating component depends on.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

type Repository interface {
	Append(ctx context.Context, row *auditDatamodel.AuditLogEntry) error
	List(ctx context.Context, limit, offset int) ([]auditDatamodel.AuditLogEntry, int64, error)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func FromDataModel(row *auditDatamodel.AuditLogEntry) *LogEntry {
	return &LogEntry{
		ID:            row.ID,
		ActorID:       row.UserID,
		Action:        row.Action,
		EntityType:    row.EntityType,
		EntityID:      row.EntityID,
		Metadata:      row.Metadata,
		SourceAddress: row.IPAddress,
		CreatedAt:     row.CreatedAt,
	}
}
