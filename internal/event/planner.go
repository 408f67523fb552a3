package event

import (
	"context"
	"fmt"
	"math"
	"time"

	eventDatamodel "github.com/Merchously/iRun/internal/core/datamodel/event"
	"golang.org/x/sync/errgroup"
)

const defaultShelfLimit = 6

// BuildQuery translates validated filters into store predicates. The distance
// categories are not part of it: they live in a child table and are applied in memory.
func BuildQuery(f Filters) Query {
	return Query{
		Status:       f.Status,
		Province:     f.Province,
		City:         f.City,
		DateFrom:     f.DateFrom,
		DateTo:       f.DateTo,
		PriceMax:     f.PriceMax,
		FeaturedOnly: f.Featured,
		Terrain:      f.Terrain,
		Sort:         f.Sort,
	}
}

// GetFilteredEvents runs the count and the page fetch concurrently, then batch loads the
// page's distances. The distance filter narrows the page after pagination, so a page may
// hold fewer than Limit events while Total still counts the unfiltered matches.
func (s *Service) GetFilteredEvents(ctx context.Context, f Filters) (*Page, error) {
	f = f.WithDefaults()
	if err := f.Validate(); err != nil {
		return nil, err
	}

	q := BuildQuery(f)
	offset := (f.Page - 1) * f.Limit

	var (
		total int64
		rows  []eventDatamodel.Event
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.repo.Count(gctx, q)
		if err != nil {
			return fmt.Errorf("count events: %w", err)
		}
		total = n
		return nil
	})
	g.Go(func() error {
		r, err := s.repo.Find(gctx, q, f.Limit, offset)
		if err != nil {
			return fmt.Errorf("find events: %w", err)
		}
		rows = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	events, err := s.attachDistances(ctx, rows)
	if err != nil {
		return nil, err
	}

	if len(f.Distances) > 0 {
		events = filterByDistance(events, f.Distances)
	}

	return &Page{
		Events:     events,
		Total:      total,
		Page:       f.Page,
		TotalPages: int(math.Ceil(float64(total) / float64(f.Limit))),
	}, nil
}

func (s *Service) attachDistances(ctx context.Context, rows []eventDatamodel.Event) ([]Event, error) {
	out := make([]Event, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	ids := make([]string, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	distances, err := s.repo.DistancesFor(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load distances: %w", err)
	}

	byEvent := make(map[string][]eventDatamodel.Distance, len(rows))
	for _, d := range distances {
		byEvent[d.EventID] = append(byEvent[d.EventID], d)
	}
	for i := range rows {
		out = append(out, FromDataModel(&rows[i], byEvent[rows[i].ID]))
	}
	return out, nil
}

func filterByDistance(events []Event, categories []string) []Event {
	wanted := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		wanted[c] = struct{}{}
	}

	kept := make([]Event, 0, len(events))
	for _, e := range events {
		for _, d := range e.Distances {
			if _, ok := wanted[d.Distance]; ok {
				kept = append(kept, e)
				break
			}
		}
	}
	return kept
}

func (s *Service) shelf(ctx context.Context, q Query, limit int) ([]Event, error) {
	if limit <= 0 || limit > MaxLimit {
		limit = defaultShelfLimit
	}
	q.Status = StatusPublished
	q.Sort = SortDate
	rows, err := s.repo.Find(ctx, q, limit, 0)
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	return s.attachDistances(ctx, rows)
}

func (s *Service) GetFeaturedEvents(ctx context.Context, limit int) ([]Event, error) {
	return s.shelf(ctx, Query{FeaturedOnly: true}, limit)
}

// GetUpcomingEvents only returns events that have not started yet.
func (s *Service) GetUpcomingEvents(ctx context.Context, limit int) ([]Event, error) {
	now := s.now()
	return s.shelf(ctx, Query{StartsAfter: &now}, limit)
}

func (s *Service) GetEventsByCategory(ctx context.Context, terrain string, limit int) ([]Event, error) {
	if !contains(Terrains, terrain) {
		return []Event{}, nil
	}
	now := s.now()
	return s.shelf(ctx, Query{Terrain: []string{terrain}, StartsAfter: &now}, limit)
}

func (s *Service) GetEventBySlug(ctx context.Context, slug string) (*Event, error) {
	row, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.withDistances(ctx, row)
}

func (s *Service) GetEventByID(ctx context.Context, id string) (*Event, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withDistances(ctx, row)
}

func (s *Service) withDistances(ctx context.Context, row *eventDatamodel.Event) (*Event, error) {
	events, err := s.attachDistances(ctx, []eventDatamodel.Event{*row})
	if err != nil {
		return nil, err
	}
	return &events[0], nil
}

// ListAllEvents is the admin listing: every status, newest first, without distances.
func (s *Service) ListAllEvents(ctx context.Context) ([]Event, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	out := make([]Event, 0, len(rows))
	for i := range rows {
		out = append(out, FromDataModel(&rows[i], nil))
	}
	return out, nil
}

func (s *Service) GetUserRsvp(ctx context.Context, userID, eventID string) (*Rsvp, error) {
	row, err := s.repo.GetRsvp(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return RsvpFromDataModel(row), nil
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}
