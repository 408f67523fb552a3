package event

import (
	"context"
	"time"

	eventDatamodel "github.com/Merchously/iRun/internal/core/datamodel/event"
)

// Query is the predicate set and ordering handed to the store. Every non-zero field
// adds one conjunctive predicate.
type Query struct {
	Status       string
	Province     string
	City         string
	DateFrom     *time.Time
	DateTo       *time.Time
	StartsAfter  *time.Time
	PriceMax     *int
	FeaturedOnly bool
	Terrain      []string
	Sort         string
}

// Repository is the catalog store. Missing rows are reported as internal.ErrEventNotFound
// and slug collisions as internal.ErrSlugTaken. GetRsvp returns nil, nil when there is no
// RSVP, and CreateRsvp reports a duplicate (user, event) pair as internal.ErrRsvpExists.
type Repository interface {
	Count(ctx context.Context, q Query) (int64, error)
	Find(ctx context.Context, q Query, limit, offset int) ([]eventDatamodel.Event, error)
	// DistancesFor loads the distances of every listed event in a single query.
	DistancesFor(ctx context.Context, eventIDs []string) ([]eventDatamodel.Distance, error)
	GetBySlug(ctx context.Context, slug string) (*eventDatamodel.Event, error)
	GetByID(ctx context.Context, id string) (*eventDatamodel.Event, error)
	ListAll(ctx context.Context) ([]eventDatamodel.Event, error)

	Create(ctx context.Context, row *eventDatamodel.Event) error
	AddDistance(ctx context.Context, row *eventDatamodel.Distance) error
	// Update applies changes and, when replace is true, swaps the distance set in the same transaction.
	Update(ctx context.Context, id string, changes map[string]interface{}, distances []eventDatamodel.Distance, replace bool) error
	SetStatus(ctx context.Context, id, status string, at time.Time) error
	Delete(ctx context.Context, id string) error
	IncrementViewCount(ctx context.Context, id string) error

	GetRsvp(ctx context.Context, userID, eventID string) (*eventDatamodel.Rsvp, error)
	CreateRsvp(ctx context.Context, row *eventDatamodel.Rsvp) error
	DeleteRsvp(ctx context.Context, id string) error
}
