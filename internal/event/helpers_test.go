package event_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/Merchously/iRun/internal/audit"
	eventDatamodel "github.com/Merchously/iRun/internal/core/datamodel/event"
	"github.com/Merchously/iRun/internal/event"
)

type recordingAuditor struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *recordingAuditor) Record(_ context.Context, e audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *recordingAuditor) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func timePtr(t time.Time) *time.Time { return &t }

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 9, 0, 0, 0, time.UTC)
}

type seedEvent struct {
	id        string
	status    string
	start     time.Time
	city      string
	province  string
	terrain   string
	price     *int
	featured  bool
	views     int64
	distances []string
}

func insertEvent(db *gorm.DB, s seedEvent) {
	if s.status == "" {
		s.status = "published"
	}
	if s.city == "" {
		s.city = "Toronto"
	}
	if s.province == "" {
		s.province = "ON"
	}
	now := time.Now().UTC()
	row := eventDatamodel.Event{
		ID:        s.id,
		Slug:      "slug-" + s.id,
		Name:      "Event " + s.id,
		EventType: "race",
		Status:    s.status,
		StartDate: s.start,
		City:      s.city,
		Province:  s.province,
		Country:   "CA",
		Currency:  "CAD",
		Featured:  s.featured,
		ViewCount: s.views,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if s.terrain != "" {
		row.Terrain = strPtr(s.terrain)
	}
	row.PriceFromCad = s.price
	Expect(db.Omit("Creator", "Distances", "Rsvps").Create(&row).Error).To(Succeed())

	for i, d := range s.distances {
		Expect(db.Create(&eventDatamodel.Distance{
			ID:        fmt.Sprintf("%s-d%d", s.id, i),
			EventID:   s.id,
			Distance:  d,
			CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
		}).Error).To(Succeed())
	}
}

func idsOf(events []event.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}
