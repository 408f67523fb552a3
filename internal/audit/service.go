package audit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Merchously/iRun/internal"
	auditDatamodel "github.com/Merchously/iRun/internal/core/datamodel/audit"
	"github.com/Merchously/iRun/internal/ids"
	"github.com/Merchously/iRun/internal/metrics"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	maxListPage      = math.MaxInt32 / maxListLimit
)

type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) toRow(ctx context.Context, e Entry) *auditDatamodel.AuditLogEntry {
	now := s.now().UTC()
	source := e.SourceAddress
	if source == "" {
		source = internal.SourceAddressFromContext(ctx)
	}
	row := &auditDatamodel.AuditLogEntry{
		ID:         ids.NewULIDAt(now),
		UserID:     optional(e.ActorID),
		Action:     e.Action,
		EntityType: optional(e.EntityType),
		EntityID:   optional(e.EntityID),
		IPAddress:  source,
		CreatedAt:  now,
	}
	if len(e.Metadata) > 0 {
		row.Metadata = e.Metadata
	}
	return row
}

// Append writes one entry and reports the store error.
func (s *Service) Append(ctx context.Context, e Entry) error {
	if e.Action == "" {
		return internal.NewValidationFieldError("action", "action is required", internal.ErrCodeRequired)
	}
	if err := s.repo.Append(ctx, s.toRow(ctx, e)); err != nil {
		return fmt.Errorf("append audit entry %s: %w", e.Action, err)
	}
	return nil
}

// Record is the best-effort variant used after a domain mutation has already succeeded:
// a failed audit write is logged and counted, never propagated.
func (s *Service) Record(ctx context.Context, e Entry) {
	if err := s.Append(ctx, e); err != nil {
		metrics.AuditWriteFailures.Inc()
		s.logger.ErrorContext(ctx, "audit write failed",
			"action", e.Action,
			"actor_id", e.ActorID,
			"entity_type", e.EntityType,
			"entity_id", e.EntityID,
			"error", err)
	}
}

// List returns entries newest first.
func (s *Service) List(ctx context.Context, page, limit int) (*ListResult, error) {
	if page < 1 {
		page = 1
	}
	if page > maxListPage {
		page = maxListPage
	}
	if limit < 1 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, total, err := s.repo.List(ctx, limit, (page-1)*limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list audit entries", "error", err)
		return nil, fmt.Errorf("list audit entries: %w", err)
	}

	entries := make([]*LogEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, FromDataModel(&rows[i]))
	}
	return &ListResult{Entries: entries, Total: total, Page: page, Limit: limit}, nil
}

type ListResult struct {
	Entries []*LogEntry `json:"entries"`
	Total   int64       `json:"total"`
	Page    int         `json:"page"`
	Limit   int         `json:"limit"`
}
