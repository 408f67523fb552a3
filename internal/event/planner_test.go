package event_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/Merchously/iRun/internal"
	"github.com/Merchously/iRun/internal/event"
	eventPostgres "github.com/Merchously/iRun/internal/event/postgres"
	"github.com/Merchously/iRun/internal/testsupport"
)

var _ = Describe("Catalog query planner", func() {
	var (
		ctx     context.Context
		db      *gorm.DB
		service *event.Service
		now     time.Time
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testsupport.OpenSQLite()
		Expect(err).ToNot(HaveOccurred())
		now = day(2026, time.June, 1)
		service = event.NewService(eventPostgres.NewEventRepository(db), nil, &recordingAuditor{}, nil,
			event.WithClock(func() time.Time { return now }))
	})

	AfterEach(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	Describe("GetFilteredEvents", func() {
		It("shows only published events by default", func() {
			insertEvent(db, seedEvent{id: "a", start: day(2026, time.January, 1)})
			insertEvent(db, seedEvent{id: "b", start: day(2026, time.February, 1), status: "draft"})

			page, err := service.GetFilteredEvents(ctx, event.Filters{})
			Expect(err).ToNot(HaveOccurred())
			Expect(idsOf(page.Events)).To(Equal([]string{"a"}))
			Expect(page.Total).To(Equal(int64(1)))
			Expect(page.Page).To(Equal(1))
		})

		It("paginates from the pre-pagination count", func() {
			for i := 0; i < 25; i++ {
				insertEvent(db, seedEvent{id: fmt.Sprintf("e%02d", i), start: day(2026, time.March, 1).AddDate(0, 0, i)})
			}

			page, err := service.GetFilteredEvents(ctx, event.Filters{Page: 2, Limit: 20})
			Expect(err).ToNot(HaveOccurred())
			Expect(page.Events).To(HaveLen(5))
			Expect(page.Total).To(Equal(int64(25)))
			Expect(page.TotalPages).To(Equal(2))
			Expect(page.Events[0].ID).To(Equal("e20"))
		})

		It("rejects a page whose offset would overflow instead of serving page one", func() {
			for i := 0; i < 3; i++ {
				insertEvent(db, seedEvent{id: fmt.Sprintf("e%d", i), start: day(2026, time.March, 1).AddDate(0, 0, i)})
			}

			page, err := service.GetFilteredEvents(ctx, event.Filters{Page: math.MaxInt/20 + 2, Limit: 20})
			Expect(page).To(BeNil())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			detail, ok := appErr.Field()
			Expect(ok).To(BeTrue())
			Expect(detail.Field).To(Equal("page"))
		})

		It("serves an empty page at the highest accepted page number", func() {
			insertEvent(db, seedEvent{id: "a", start: day(2026, time.January, 1)})

			page, err := service.GetFilteredEvents(ctx, event.Filters{Page: event.MaxPage, Limit: event.MaxLimit})
			Expect(err).ToNot(HaveOccurred())
			Expect(page.Events).To(BeEmpty())
			Expect(page.Total).To(Equal(int64(1)))
			Expect(page.Page).To(Equal(event.MaxPage))
		})

		It("applies the distance filter after pagination without touching the totals", func() {
			insertEvent(db, seedEvent{id: "a", start: day(2026, time.January, 1), distances: []string{"5k"}})
			insertEvent(db, seedEvent{id: "b", start: day(2026, time.January, 2), distances: []string{"marathon", "half"}})
			insertEvent(db, seedEvent{id: "c", start: day(2026, time.January, 3), distances: []string{"marathon"}})
			insertEvent(db, seedEvent{id: "d", start: day(2026, time.January, 4)})

			page, err := service.GetFilteredEvents(ctx, event.Filters{Distances: []string{"marathon"}, Limit: 2})
			Expect(err).ToNot(HaveOccurred())
			Expect(idsOf(page.Events)).To(Equal([]string{"b"}))
			Expect(page.Total).To(Equal(int64(4)))
			Expect(page.TotalPages).To(Equal(2))

			Expect(page.Events[0].Distances).To(HaveLen(2))
		})

		It("attaches each event's own distances from one batch", func() {
			insertEvent(db, seedEvent{id: "a", start: day(2026, time.January, 1), distances: []string{"5k", "10k"}})
			insertEvent(db, seedEvent{id: "b", start: day(2026, time.January, 2)})

			page, err := service.GetFilteredEvents(ctx, event.Filters{})
			Expect(err).ToNot(HaveOccurred())
			Expect(page.Events[0].Distances).To(HaveLen(2))
			Expect(page.Events[0].Distances[0].Distance).To(Equal("5k"))
			Expect(page.Events[1].Distances).To(BeEmpty())
		})

		It("combines predicates with AND", func() {
			insertEvent(db, seedEvent{id: "match", start: day(2026, time.May, 1), city: "North Vancouver", province: "BC", terrain: "trail", price: intPtr(5000), featured: true})
			insertEvent(db, seedEvent{id: "wrong-province", start: day(2026, time.May, 1), city: "Vancouver", province: "ON", terrain: "trail", price: intPtr(5000), featured: true})
			insertEvent(db, seedEvent{id: "wrong-terrain", start: day(2026, time.May, 1), city: "Vancouver", province: "BC", terrain: "road", price: intPtr(5000), featured: true})
			insertEvent(db, seedEvent{id: "too-pricey", start: day(2026, time.May, 1), city: "Vancouver", province: "BC", terrain: "trail", price: intPtr(9000), featured: true})
			insertEvent(db, seedEvent{id: "no-price", start: day(2026, time.May, 1), city: "Vancouver", province: "BC", terrain: "trail", featured: true})
			insertEvent(db, seedEvent{id: "not-featured", start: day(2026, time.May, 1), city: "Vancouver", province: "BC", terrain: "trail", price: intPtr(5000)})
			insertEvent(db, seedEvent{id: "too-late", start: day(2026, time.August, 1), city: "Vancouver", province: "BC", terrain: "trail", price: intPtr(5000), featured: true})

			page, err := service.GetFilteredEvents(ctx, event.Filters{
				Province: "BC",
				City:     "vancouver",
				Terrain:  []string{"trail", "mixed"},
				PriceMax: intPtr(6000),
				Featured: true,
				DateFrom: timePtr(day(2026, time.April, 1)),
				DateTo:   timePtr(day(2026, time.July, 1)),
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(idsOf(page.Events)).To(Equal([]string{"match"}))
			Expect(page.Total).To(Equal(int64(1)))
		})

		DescribeTable("orders by the requested key with id as tie-break",
			func(sort string, expected []string) {
				insertEvent(db, seedEvent{id: "c", start: day(2026, time.January, 3), price: intPtr(3000), views: 5})
				insertEvent(db, seedEvent{id: "a", start: day(2026, time.January, 2), price: intPtr(1000), views: 5})
				insertEvent(db, seedEvent{id: "b", start: day(2026, time.January, 1), price: intPtr(1000), views: 9})

				page, err := service.GetFilteredEvents(ctx, event.Filters{Sort: sort})
				Expect(err).ToNot(HaveOccurred())
				Expect(idsOf(page.Events)).To(Equal(expected))
			},
			Entry("date", "date", []string{"b", "a", "c"}),
			Entry("price", "price", []string{"a", "b", "c"}),
			Entry("popular", "popular", []string{"b", "a", "c"}),
		)

		DescribeTable("rejects filters outside the contract",
			func(f event.Filters, field string) {
				_, err := service.GetFilteredEvents(ctx, f)
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				detail, ok := appErr.Field()
				Expect(ok).To(BeTrue())
				Expect(detail.Field).To(Equal(field))
			},
			Entry("limit above 50", event.Filters{Limit: 51}, "limit"),
			Entry("negative page", event.Filters{Page: -1}, "page"),
			Entry("page past the offset range", event.Filters{Page: event.MaxPage + 1}, "page"),
			Entry("unknown sort", event.Filters{Sort: "alpha"}, "sort"),
			Entry("unknown terrain", event.Filters{Terrain: []string{"sand"}}, "terrain"),
			Entry("unknown distance", event.Filters{Distances: []string{"3k"}}, "distances"),
			Entry("negative price", event.Filters{PriceMax: intPtr(-1)}, "price_max"),
		)
	})

	Describe("shelves", func() {
		BeforeEach(func() {
			insertEvent(db, seedEvent{id: "past-trail", start: day(2026, time.May, 1), terrain: "trail", featured: true})
			insertEvent(db, seedEvent{id: "next-trail", start: day(2026, time.July, 1), terrain: "trail"})
			insertEvent(db, seedEvent{id: "next-road", start: day(2026, time.June, 15), terrain: "road", featured: true})
			insertEvent(db, seedEvent{id: "draft-trail", start: day(2026, time.July, 2), terrain: "trail", status: "draft", featured: true})
		})

		It("returns featured published events regardless of date", func() {
			events, err := service.GetFeaturedEvents(ctx, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(idsOf(events)).To(Equal([]string{"past-trail", "next-road"}))
		})

		It("returns only events that have not started", func() {
			events, err := service.GetUpcomingEvents(ctx, 6)
			Expect(err).ToNot(HaveOccurred())
			Expect(idsOf(events)).To(Equal([]string{"next-road", "next-trail"}))
		})

		It("filters upcoming events by terrain", func() {
			events, err := service.GetEventsByCategory(ctx, "trail", 6)
			Expect(err).ToNot(HaveOccurred())
			Expect(idsOf(events)).To(Equal([]string{"next-trail"}))

			events, err = service.GetEventsByCategory(ctx, "sand", 6)
			Expect(err).ToNot(HaveOccurred())
			Expect(events).To(BeEmpty())
		})

		It("honours the limit", func() {
			events, err := service.GetUpcomingEvents(ctx, 1)
			Expect(err).ToNot(HaveOccurred())
			Expect(idsOf(events)).To(Equal([]string{"next-road"}))
		})
	})

	Describe("single lookups", func() {
		It("finds by slug and id with distances", func() {
			insertEvent(db, seedEvent{id: "a", start: day(2026, time.January, 1), distances: []string{"ultra"}})

			bySlug, err := service.GetEventBySlug(ctx, "slug-a")
			Expect(err).ToNot(HaveOccurred())
			Expect(bySlug.Distances).To(HaveLen(1))

			byID, err := service.GetEventByID(ctx, "a")
			Expect(err).ToNot(HaveOccurred())
			Expect(byID.Slug).To(Equal("slug-a"))
		})

		It("reports a miss as not found", func() {
			_, err := service.GetEventBySlug(ctx, "nope")
			Expect(errors.Is(err, internal.ErrEventNotFound)).To(BeTrue())
		})

		It("lists every status for admins, newest first", func() {
			insertEvent(db, seedEvent{id: "a", start: day(2026, time.January, 1)})
			time.Sleep(2 * time.Millisecond)
			insertEvent(db, seedEvent{id: "b", start: day(2026, time.January, 2), status: "draft"})

			events, err := service.ListAllEvents(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(idsOf(events)).To(Equal([]string{"b", "a"}))
		})
	})
})
