package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Merchously/iRun/internal"
	"github.com/Merchously/iRun/internal/core/common/dberr"
	eventDatamodel "github.com/Merchously/iRun/internal/core/datamodel/event"
	"github.com/Merchously/iRun/internal/event"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) scoped(ctx context.Context, q event.Query) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&eventDatamodel.Event{})
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.Province != "" {
		db = db.Where("province = ?", q.Province)
	}
	if q.City != "" {
		db = db.Where("LOWER(city) LIKE ?", "%"+strings.ToLower(q.City)+"%")
	}
	if q.DateFrom != nil {
		db = db.Where("start_date >= ?", *q.DateFrom)
	}
	if q.DateTo != nil {
		db = db.Where("start_date <= ?", *q.DateTo)
	}
	if q.StartsAfter != nil {
		db = db.Where("start_date >= ?", *q.StartsAfter)
	}
	if q.PriceMax != nil {
		db = db.Where("price_from_cad <= ?", *q.PriceMax)
	}
	if q.FeaturedOnly {
		db = db.Where("featured = ?", true)
	}
	if len(q.Terrain) > 0 {
		db = db.Where("terrain IN ?", q.Terrain)
	}
	return db
}

// orderBy appends id as a tie-break so equal sort keys page deterministically.
func orderBy(sort string) string {
	switch sort {
	case event.SortPrice:
		return "price_from_cad ASC, id ASC"
	case event.SortPopular:
		return "view_count DESC, id ASC"
	default:
		return "start_date ASC, id ASC"
	}
}

func (r *EventRepository) Count(ctx context.Context, q event.Query) (int64, error) {
	var total int64
	if err := r.scoped(ctx, q).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *EventRepository) Find(ctx context.Context, q event.Query, limit, offset int) ([]eventDatamodel.Event, error) {
	var rows []eventDatamodel.Event
	err := r.scoped(ctx, q).
		Order(orderBy(q.Sort)).
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *EventRepository) DistancesFor(ctx context.Context, eventIDs []string) ([]eventDatamodel.Distance, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	var rows []eventDatamodel.Distance
	err := r.db.WithContext(ctx).
		Where("event_id IN ?", eventIDs).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *EventRepository) first(ctx context.Context, column, value string) (*eventDatamodel.Event, error) {
	var row eventDatamodel.Event
	err := r.db.WithContext(ctx).Where(column+" = ?", value).First(&row).Error
	if dberr.IsNotFound(err) {
		return nil, internal.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event by %s: %w", column, err)
	}
	return &row, nil
}

func (r *EventRepository) GetBySlug(ctx context.Context, slug string) (*eventDatamodel.Event, error) {
	return r.first(ctx, "slug", slug)
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*eventDatamodel.Event, error) {
	return r.first(ctx, "id", id)
}

func (r *EventRepository) ListAll(ctx context.Context) ([]eventDatamodel.Event, error) {
	var rows []eventDatamodel.Event
	if err := r.db.WithContext(ctx).Order("created_at DESC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *EventRepository) Create(ctx context.Context, row *eventDatamodel.Event) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(row).Error
	if dberr.IsUniqueViolation(err) {
		return internal.ErrSlugTaken
	}
	return err
}

func (r *EventRepository) AddDistance(ctx context.Context, row *eventDatamodel.Distance) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *EventRepository) Update(ctx context.Context, id string, changes map[string]interface{}, distances []eventDatamodel.Distance, replace bool) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&eventDatamodel.Event{}).Where("id = ?", id).Updates(changes)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return internal.ErrEventNotFound
		}
		if !replace {
			return nil
		}
		if err := tx.Where("event_id = ?", id).Delete(&eventDatamodel.Distance{}).Error; err != nil {
			return err
		}
		if len(distances) == 0 {
			return nil
		}
		return tx.Create(&distances).Error
	})
	if dberr.IsUniqueViolation(err) {
		return internal.ErrSlugTaken
	}
	return err
}

func (r *EventRepository) SetStatus(ctx context.Context, id, status string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&eventDatamodel.Event{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrEventNotFound
	}
	return nil
}

func (r *EventRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&eventDatamodel.Event{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrEventNotFound
	}
	return nil
}

func (r *EventRepository) IncrementViewCount(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&eventDatamodel.Event{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
}

func (r *EventRepository) GetRsvp(ctx context.Context, userID, eventID string) (*eventDatamodel.Rsvp, error) {
	var row eventDatamodel.Rsvp
	err := r.db.WithContext(ctx).Where("user_id = ? AND event_id = ?", userID, eventID).First(&row).Error
	if dberr.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *EventRepository) CreateRsvp(ctx context.Context, row *eventDatamodel.Rsvp) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(row).Error
	if dberr.IsUniqueViolation(err) {
		return internal.ErrRsvpExists
	}
	return err
}

func (r *EventRepository) DeleteRsvp(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&eventDatamodel.Rsvp{}).Error
}

var _ event.Repository = (*EventRepository)(nil)
