package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Merchously/iRun/internal"
	"github.com/Merchously/iRun/internal/audit"
	eventDatamodel "github.com/Merchously/iRun/internal/core/datamodel/event"
	"github.com/Merchously/iRun/internal/core/events"
	"github.com/Merchously/iRun/internal/ids"
	"github.com/Merchously/iRun/internal/metrics"
)

type ServiceAPI interface {
	GetFilteredEvents(ctx context.Context, f Filters) (*Page, error)
	GetFeaturedEvents(ctx context.Context, limit int) ([]Event, error)
	GetUpcomingEvents(ctx context.Context, limit int) ([]Event, error)
	GetEventsByCategory(ctx context.Context, terrain string, limit int) ([]Event, error)
	GetEventBySlug(ctx context.Context, slug string) (*Event, error)
	GetEventByID(ctx context.Context, id string) (*Event, error)
	ListAllEvents(ctx context.Context) ([]Event, error)
	GetUserRsvp(ctx context.Context, userID, eventID string) (*Rsvp, error)

	CreateEvent(ctx context.Context, actorID string, in EventInput, distances []DistanceInput) (*Event, error)
	UpdateEvent(ctx context.Context, actorID, id string, in EventInput, distances []DistanceInput) (*Event, error)
	PublishEvent(ctx context.Context, actorID, id string) error
	UnpublishEvent(ctx context.Context, actorID, id string) error
	DeleteEvent(ctx context.Context, actorID, id string) error
	RecordView(ctx context.Context, e *Event)
	ToggleRsvp(ctx context.Context, userID, eventID string) (bool, error)
}

type Service struct {
	repo      Repository
	publisher events.Publisher
	audit     audit.Recorder
	logger    *slog.Logger
	clock     func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.clock = now
		}
	}
}

func NewService(repo Repository, publisher events.Publisher, recorder audit.Recorder, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:      repo,
		publisher: publisher,
		audit:     recorder,
		logger:    logger,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateEvent inserts the event and then each distance on its own. Distances that fail
// validation are skipped rather than failing the whole command.
func (s *Service) CreateEvent(ctx context.Context, actorID string, in EventInput, distances []DistanceInput) (*Event, error) {
	in = in.Normalize()
	if err := in.Validate(true); err != nil {
		return nil, err
	}

	now := s.now()
	var createdBy *string
	if actorID != "" {
		createdBy = &actorID
	}
	row := in.ToDataModel(ids.New(), createdBy, now)
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, err
	}

	for i, d := range distances {
		if verr := d.Validate(); verr != nil {
			s.logger.DebugContext(ctx, "skipping invalid distance", "event_id", row.ID, "index", i, "error", verr)
			continue
		}
		if err := s.repo.AddDistance(ctx, d.ToDataModel(ids.New(), row.ID, now)); err != nil {
			return nil, fmt.Errorf("add distance to %s: %w", row.ID, err)
		}
	}

	s.logger.InfoContext(ctx, "event created", "event_id", row.ID, "slug", row.Slug, "created_by", actorID)
	s.audit.Record(ctx, audit.Entry{
		ActorID:    actorID,
		Action:     audit.ActionEventCreate,
		EntityType: audit.EntityEvent,
		EntityID:   row.ID,
		Metadata:   map[string]interface{}{"name": row.Name},
	})
	return s.GetEventByID(ctx, row.ID)
}

// UpdateEvent applies the present fields. A nil distances slice leaves the distance rows
// alone; any other value replaces them wholesale, and RSVPs pointing at removed rows keep
// their now dangling distance id.
func (s *Service) UpdateEvent(ctx context.Context, actorID, id string, in EventInput, distances []DistanceInput) (*Event, error) {
	in = in.Normalize()
	if err := in.Validate(false); err != nil {
		return nil, err
	}
	if err := s.checkDateOrder(ctx, id, in); err != nil {
		return nil, err
	}

	now := s.now()
	changes := in.Changes()
	changes["updated_at"] = now

	var replacement []eventDatamodel.Distance
	replace := distances != nil
	for i, d := range distances {
		if verr := d.Validate(); verr != nil {
			s.logger.DebugContext(ctx, "skipping invalid distance", "event_id", id, "index", i, "error", verr)
			continue
		}
		replacement = append(replacement, *d.ToDataModel(ids.New(), id, now))
	}

	if err := s.repo.Update(ctx, id, changes, replacement, replace); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:    actorID,
		Action:     audit.ActionEventUpdate,
		EntityType: audit.EntityEvent,
		EntityID:   id,
	})
	return s.GetEventByID(ctx, id)
}

// checkDateOrder holds a one-sided date change to end_date >= start_date against the stored row.
func (s *Service) checkDateOrder(ctx context.Context, id string, in EventInput) error {
	if (in.StartDate == nil) == (in.EndDate == nil) {
		return nil
	}
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	start, end := row.StartDate, row.EndDate
	if in.StartDate != nil {
		start = *in.StartDate
	}
	if in.EndDate != nil {
		end = in.EndDate
	}
	if end != nil && end.Before(start) {
		return internal.NewValidationFieldError("end_date", "end_date must not be before start_date", internal.ErrCodeOutOfRange)
	}
	return nil
}

func (s *Service) PublishEvent(ctx context.Context, actorID, id string) error {
	return s.setStatus(ctx, actorID, id, StatusPublished, audit.ActionEventPublish)
}

func (s *Service) UnpublishEvent(ctx context.Context, actorID, id string) error {
	return s.setStatus(ctx, actorID, id, StatusDraft, audit.ActionEventUnpublish)
}

func (s *Service) setStatus(ctx context.Context, actorID, id, status, action string) error {
	if err := s.repo.SetStatus(ctx, id, status, s.now()); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "event status changed", "event_id", id, "status", status)
	s.audit.Record(ctx, audit.Entry{
		ActorID:    actorID,
		Action:     action,
		EntityType: audit.EntityEvent,
		EntityID:   id,
	})
	return nil
}

// DeleteEvent removes the event; distances and RSVPs cascade in the store.
func (s *Service) DeleteEvent(ctx context.Context, actorID, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "event deleted", "event_id", id, "deleted_by", actorID)
	s.audit.Record(ctx, audit.Entry{
		ActorID:    actorID,
		Action:     audit.ActionEventDelete,
		EntityType: audit.EntityEvent,
		EntityID:   id,
	})
	return nil
}

// RecordView hands the increment to the event bus and returns at once.
func (s *Service) RecordView(ctx context.Context, e *Event) {
	if s.publisher == nil || e == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.NewCatalogEventViewed(e.ID, e.Slug)); err != nil {
		metrics.EventViews.WithLabelValues("dropped").Inc()
		s.logger.WarnContext(ctx, "view not published", "event_id", e.ID, "error", err)
	}
}

// IncrementViewCount adds one to the stored counter in a single server-side update.
func (s *Service) IncrementViewCount(ctx context.Context, id string) error {
	if err := s.repo.IncrementViewCount(ctx, id); err != nil {
		metrics.EventViews.WithLabelValues("failed").Inc()
		return err
	}
	metrics.EventViews.WithLabelValues("counted").Inc()
	return nil
}

// ToggleRsvp saves an "interested" RSVP or removes the existing one. It reports whether
// an RSVP exists afterwards.
func (s *Service) ToggleRsvp(ctx context.Context, userID, eventID string) (bool, error) {
	if _, err := s.repo.GetByID(ctx, eventID); err != nil {
		return false, err
	}

	existing, err := s.repo.GetRsvp(ctx, userID, eventID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		if err := s.repo.DeleteRsvp(ctx, existing.ID); err != nil {
			return false, fmt.Errorf("delete rsvp: %w", err)
		}
		return false, nil
	}

	now := s.now()
	err = s.repo.CreateRsvp(ctx, &eventDatamodel.Rsvp{
		ID:        ids.New(),
		UserID:    userID,
		EventID:   eventID,
		Status:    RsvpInterested,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

var _ ServiceAPI = (*Service)(nil)
