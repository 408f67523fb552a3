package event_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/Merchously/iRun/internal"
	"github.com/Merchously/iRun/internal/audit"
	auditDatamodel "github.com/Merchously/iRun/internal/core/datamodel/audit"
	eventDatamodel "github.com/Merchously/iRun/internal/core/datamodel/event"
	userDatamodel "github.com/Merchously/iRun/internal/core/datamodel/user"
	"github.com/Merchously/iRun/internal/core/events"
	"github.com/Merchously/iRun/internal/event"
	eventPostgres "github.com/Merchously/iRun/internal/event/postgres"
	"github.com/Merchously/iRun/internal/testsupport"
)

type failingAuditRepository struct{}

func (failingAuditRepository) Append(context.Context, *auditDatamodel.AuditLogEntry) error {
	return errors.New("audit store down")
}

func (failingAuditRepository) List(context.Context, int, int) ([]auditDatamodel.AuditLogEntry, int64, error) {
	return nil, 0, errors.New("audit store down")
}

var _ = Describe("Catalog commands", func() {
	var (
		ctx     context.Context
		db      *gorm.DB
		repo    *eventPostgres.EventRepository
		bus     *events.EventBus
		auditor *recordingAuditor
		service *event.Service
		input   func(slug string) event.EventInput
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testsupport.OpenSQLite()
		Expect(err).ToNot(HaveOccurred())

		now := time.Now().UTC()
		Expect(db.Create(&userDatamodel.User{ID: "editor-1", Email: "editor@example.com", PasswordHash: "x", DisplayName: "Ed", CreatedAt: now, UpdatedAt: now}).Error).To(Succeed())

		repo = eventPostgres.NewEventRepository(db)
		bus = events.NewEventBus(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))
		auditor = &recordingAuditor{}
		service = event.NewService(repo, bus, auditor, nil)
		event.RegisterSubscribers(bus, service)

		input = func(slug string) event.EventInput {
			return event.EventInput{
				Name:      strPtr("Banff Marathon"),
				Slug:      strPtr(slug),
				EventType: strPtr("race"),
				StartDate: timePtr(day(2026, time.June, 21)),
				City:      strPtr("Banff"),
				Province:  strPtr("AB"),
				Terrain:   strPtr("road"),
				Tags:      []string{"scenic"},
			}
		}
	})

	AfterEach(func() {
		Expect(bus.Drain(context.Background())).To(Succeed())
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	Describe("CreateEvent", func() {
		It("stores the event as a draft with defaults and valid distances only", func() {
			e, err := service.CreateEvent(ctx, "editor-1", input("banff-marathon"), []event.DistanceInput{
				{Distance: "marathon", DistanceKm: floatPtr(42.2)},
				{Distance: "2k"},
				{Distance: "half", Capacity: intPtr(0)},
				{Distance: "10k", PriceCad: intPtr(4500)},
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(e.Status).To(Equal(event.StatusDraft))
			Expect(e.Country).To(Equal("CA"))
			Expect(e.Currency).To(Equal("CAD"))
			Expect(e.Tags).To(Equal([]string{"scenic"}))
			Expect(*e.CreatedBy).To(Equal("editor-1"))
			Expect(e.Distances).To(HaveLen(2))
			Expect([]string{e.Distances[0].Distance, e.Distances[1].Distance}).To(ConsistOf("marathon", "10k"))

			Expect(auditor.actions()).To(Equal([]string{audit.ActionEventCreate}))
			Expect(auditor.entries[0].Metadata).To(HaveKeyWithValue("name", "Banff Marathon"))
		})

		It("reports only the first failing field", func() {
			in := input("Bad Slug")
			in.Name = strPtr("ab")

			_, err := service.CreateEvent(ctx, "editor-1", in, nil)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			detail, _ := appErr.Field()
			Expect(detail.Field).To(Equal("name"))
		})

		It("treats blank optional strings as absent", func() {
			in := input("blank-urls")
			in.WebsiteURL = strPtr("")

			e, err := service.CreateEvent(ctx, "editor-1", in, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(e.WebsiteURL).To(BeNil())
		})

		It("maps a taken slug to a conflict", func() {
			_, err := service.CreateEvent(ctx, "editor-1", input("banff-marathon"), nil)
			Expect(err).ToNot(HaveOccurred())

			_, err = service.CreateEvent(ctx, "editor-1", input("banff-marathon"), nil)
			Expect(errors.Is(err, internal.ErrSlugTaken)).To(BeTrue())
			Expect(auditor.actions()).To(HaveLen(1))
		})
	})

	Describe("UpdateEvent", func() {
		var created *event.Event

		BeforeEach(func() {
			var err error
			created, err = service.CreateEvent(ctx, "editor-1", input("banff-marathon"), []event.DistanceInput{
				{Distance: "marathon"}, {Distance: "half"},
			})
			Expect(err).ToNot(HaveOccurred())
		})

		It("changes only the supplied fields and leaves distances alone when none are given", func() {
			e, err := service.UpdateEvent(ctx, "editor-1", created.ID, event.EventInput{City: strPtr("Canmore")}, nil)

			Expect(err).ToNot(HaveOccurred())
			Expect(e.City).To(Equal("Canmore"))
			Expect(e.Name).To(Equal("Banff Marathon"))
			Expect(e.Distances).To(HaveLen(2))
			Expect(auditor.actions()).To(ContainElement(audit.ActionEventUpdate))
		})

		It("replaces the distance set and leaves RSVP distance ids dangling", func() {
			oldDistance := created.Distances[0].ID
			now := time.Now().UTC()
			Expect(db.Create(&eventDatamodel.Rsvp{ID: "r1", UserID: "editor-1", EventID: created.ID, DistanceID: &oldDistance, Status: "registered", CreatedAt: now, UpdatedAt: now}).Error).To(Succeed())

			e, err := service.UpdateEvent(ctx, "editor-1", created.ID, event.EventInput{}, []event.DistanceInput{{Distance: "ultra"}})
			Expect(err).ToNot(HaveOccurred())
			Expect(e.Distances).To(HaveLen(1))
			Expect(e.Distances[0].Distance).To(Equal("ultra"))

			var rsvp eventDatamodel.Rsvp
			Expect(db.First(&rsvp, "id = ?", "r1").Error).To(Succeed())
			Expect(*rsvp.DistanceID).To(Equal(oldDistance))

			var count int64
			Expect(db.Model(&eventDatamodel.Distance{}).Where("id = ?", oldDistance).Count(&count).Error).To(Succeed())
			Expect(count).To(BeZero())
		})

		It("clears distances when given an empty list", func() {
			e, err := service.UpdateEvent(ctx, "editor-1", created.ID, event.EventInput{}, []event.DistanceInput{})
			Expect(err).ToNot(HaveOccurred())
			Expect(e.Distances).To(BeEmpty())
		})

		It("rolls the distance replace back with the event update", func() {
			_, err := service.CreateEvent(ctx, "editor-1", input("other-race"), nil)
			Expect(err).ToNot(HaveOccurred())

			_, err = service.UpdateEvent(ctx, "editor-1", created.ID, event.EventInput{Slug: strPtr("other-race")}, []event.DistanceInput{{Distance: "5k"}})
			Expect(errors.Is(err, internal.ErrSlugTaken)).To(BeTrue())

			e, err := service.GetEventByID(ctx, created.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(e.Distances).To(HaveLen(2))
		})

		It("checks a lone end_date against the stored start_date", func() {
			_, err := service.UpdateEvent(ctx, "editor-1", created.ID, event.EventInput{EndDate: timePtr(day(2026, time.June, 20))}, nil)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			detail, ok := appErr.Field()
			Expect(ok).To(BeTrue())
			Expect(detail.Field).To(Equal("end_date"))

			e, err := service.GetEventByID(ctx, created.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(e.EndDate).To(BeNil())
		})

		It("accepts a lone end_date on or after the stored start_date", func() {
			e, err := service.UpdateEvent(ctx, "editor-1", created.ID, event.EventInput{EndDate: timePtr(day(2026, time.June, 22))}, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(e.EndDate).ToNot(BeNil())
			Expect(e.EndDate.Equal(day(2026, time.June, 22))).To(BeTrue())
		})

		It("checks a lone start_date against the stored end_date", func() {
			_, err := service.UpdateEvent(ctx, "editor-1", created.ID, event.EventInput{EndDate: timePtr(day(2026, time.June, 22))}, nil)
			Expect(err).ToNot(HaveOccurred())

			_, err = service.UpdateEvent(ctx, "editor-1", created.ID, event.EventInput{StartDate: timePtr(day(2026, time.July, 1))}, nil)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("reports a missing event", func() {
			_, err := service.UpdateEvent(ctx, "editor-1", "missing", event.EventInput{City: strPtr("X")}, nil)
			Expect(errors.Is(err, internal.ErrEventNotFound)).To(BeTrue())
		})
	})

	Describe("status and deletion", func() {
		It("publishes and unpublishes", func() {
			e, err := service.CreateEvent(ctx, "editor-1", input("banff-marathon"), nil)
			Expect(err).ToNot(HaveOccurred())

			Expect(service.PublishEvent(ctx, "editor-1", e.ID)).To(Succeed())
			got, _ := service.GetEventByID(ctx, e.ID)
			Expect(got.Status).To(Equal(event.StatusPublished))

			Expect(service.UnpublishEvent(ctx, "editor-1", e.ID)).To(Succeed())
			got, _ = service.GetEventByID(ctx, e.ID)
			Expect(got.Status).To(Equal(event.StatusDraft))

			Expect(auditor.actions()).To(Equal([]string{audit.ActionEventCreate, audit.ActionEventPublish, audit.ActionEventUnpublish}))
			Expect(errors.Is(service.PublishEvent(ctx, "editor-1", "missing"), internal.ErrEventNotFound)).To(BeTrue())
		})

		It("cascades deletion to distances and RSVPs", func() {
			e, err := service.CreateEvent(ctx, "editor-1", input("banff-marathon"), []event.DistanceInput{{Distance: "5k"}})
			Expect(err).ToNot(HaveOccurred())
			_, err = service.ToggleRsvp(ctx, "editor-1", e.ID)
			Expect(err).ToNot(HaveOccurred())

			Expect(service.DeleteEvent(ctx, "editor-1", e.ID)).To(Succeed())

			for _, model := range []interface{}{&eventDatamodel.Distance{}, &eventDatamodel.Rsvp{}} {
				var count int64
				Expect(db.Model(model).Where("event_id = ?", e.ID).Count(&count).Error).To(Succeed())
				Expect(count).To(BeZero())
			}
			Expect(errors.Is(service.DeleteEvent(ctx, "editor-1", e.ID), internal.ErrEventNotFound)).To(BeTrue())
		})
	})

	Describe("views", func() {
		It("increments the counter once per recorded view, including concurrent ones", func() {
			e, err := service.CreateEvent(ctx, "editor-1", input("banff-marathon"), nil)
			Expect(err).ToNot(HaveOccurred())

			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					service.RecordView(ctx, e)
				}()
			}
			wg.Wait()
			Expect(bus.Drain(ctx)).To(Succeed())

			got, err := service.GetEventByID(ctx, e.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(got.ViewCount).To(Equal(int64(10)))
		})

		It("does not disturb the caller when the increment fails", func() {
			service.RecordView(ctx, &event.Event{ID: "missing", Slug: "missing"})
			Expect(bus.Drain(ctx)).To(Succeed())
		})
	})

	Describe("ToggleRsvp", func() {
		It("saves and then removes the RSVP", func() {
			e, err := service.CreateEvent(ctx, "editor-1", input("banff-marathon"), nil)
			Expect(err).ToNot(HaveOccurred())

			saved, err := service.ToggleRsvp(ctx, "editor-1", e.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(saved).To(BeTrue())

			rsvp, err := service.GetUserRsvp(ctx, "editor-1", e.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(rsvp.Status).To(Equal(event.RsvpInterested))

			saved, err = service.ToggleRsvp(ctx, "editor-1", e.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(saved).To(BeFalse())

			rsvp, err = service.GetUserRsvp(ctx, "editor-1", e.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(rsvp).To(BeNil())
		})

		It("maps a duplicate insert to a conflict", func() {
			e, err := service.CreateEvent(ctx, "editor-1", input("banff-marathon"), nil)
			Expect(err).ToNot(HaveOccurred())
			now := time.Now().UTC()
			row := &eventDatamodel.Rsvp{ID: "r-1", UserID: "editor-1", EventID: e.ID, Status: "interested", CreatedAt: now, UpdatedAt: now}
			Expect(repo.CreateRsvp(ctx, row)).To(Succeed())

			row.ID = "r-2"
			Expect(errors.Is(repo.CreateRsvp(ctx, row), internal.ErrRsvpExists)).To(BeTrue())
		})

		It("reports an unknown event", func() {
			_, err := service.ToggleRsvp(ctx, "editor-1", "missing")
			Expect(errors.Is(err, internal.ErrEventNotFound)).To(BeTrue())
		})
	})

	Describe("audit failures", func() {
		It("do not fail the mutation", func() {
			recorder := audit.NewService(failingAuditRepository{}, slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 4})))
			svc := event.NewService(repo, nil, recorder, nil)

			e, err := svc.CreateEvent(ctx, "editor-1", input("audited"), nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(svc.PublishEvent(ctx, "editor-1", e.ID)).To(Succeed())
		})
	})
})

func floatPtr(f float64) *float64 { return &f }
