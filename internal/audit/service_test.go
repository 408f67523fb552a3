package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/Merchously/iRun/internal"
	"github.com/Merchously/iRun/internal/audit"
	auditPostgres "github.com/Merchously/iRun/internal/audit/postgres"
	auditDatamodel "github.com/Merchously/iRun/internal/core/datamodel/audit"
	"github.com/Merchously/iRun/internal/testsupport"
	"github.com/Merchously/iRun/internal/transport"
)

type failingRepository struct{}

func (failingRepository) Append(context.Context, *auditDatamodel.AuditLogEntry) error {
	return errors.New("disk full")
}

func (failingRepository) List(context.Context, int, int) ([]auditDatamodel.AuditLogEntry, int64, error) {
	return nil, 0, errors.New("disk full")
}

var _ = Describe("Audit Service", func() {
	var (
		ctx     context.Context
		db      *gorm.DB
		service *audit.Service
		slogger *slog.Logger
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 4}))
		db, err = testsupport.OpenSQLite()
		Expect(err).NotTo(HaveOccurred())
		service = audit.NewService(auditPostgres.NewRepository(db), slogger)
	})

	Describe("Append", func() {
		It("persists the entry with metadata and the request source address", func() {
			reqCtx := internal.ContextWithSourceAddress(ctx, "203.0.113.7")
			err := service.Append(reqCtx, audit.Entry{
				ActorID:    "user-1",
				Action:     audit.ActionEventCreate,
				EntityType: audit.EntityEvent,
				EntityID:   "event-1",
				Metadata:   map[string]interface{}{"name": "Spring 10K"},
			})
			Expect(err).NotTo(HaveOccurred())

			var rows []auditDatamodel.AuditLogEntry
			Expect(db.Find(&rows).Error).To(Succeed())
			Expect(rows).To(HaveLen(1))
			Expect(*rows[0].UserID).To(Equal("user-1"))
			Expect(rows[0].IPAddress).To(Equal("203.0.113.7"))
			Expect(rows[0].Metadata).To(HaveKeyWithValue("name", "Spring 10K"))
			Expect(rows[0].ID).To(HaveLen(26))
		})

		It("records anonymous actions with no actor and an unknown source", func() {
			Expect(service.Append(ctx, audit.Entry{Action: audit.ActionUserLogin})).To(Succeed())

			var row auditDatamodel.AuditLogEntry
			Expect(db.First(&row).Error).To(Succeed())
			Expect(row.UserID).To(BeNil())
			Expect(row.EntityType).To(BeNil())
			Expect(row.IPAddress).To(Equal(internal.UnknownSourceAddress))
		})

		It("rejects an entry without an action", func() {
			err := service.Append(ctx, audit.Entry{ActorID: "user-1"})
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})

		It("returns the store error", func() {
			failing := audit.NewService(failingRepository{}, slogger)
			Expect(failing.Append(ctx, audit.Entry{Action: audit.ActionUserLogout})).To(MatchError(ContainSubstring("disk full")))
		})
	})

	Describe("Record", func() {
		It("swallows store failures", func() {
			failing := audit.NewService(failingRepository{}, slogger)
			Expect(func() {
				failing.Record(ctx, audit.Entry{Action: audit.ActionEventDelete})
			}).NotTo(Panic())
		})
	})

	Describe("List", func() {
		It("returns entries newest first with the total count", func() {
			for _, action := range []string{audit.ActionUserRegister, audit.ActionUserLogin, audit.ActionUserLogout} {
				Expect(service.Append(ctx, audit.Entry{ActorID: "user-1", Action: action})).To(Succeed())
			}

			result, err := service.List(ctx, 1, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Total).To(Equal(int64(3)))
			Expect(result.Entries).To(HaveLen(2))
			Expect(result.Entries[0].Action).To(Equal(audit.ActionUserLogout))
			Expect(result.Entries[1].Action).To(Equal(audit.ActionUserLogin))
		})

		It("caps huge page numbers so the offset cannot wrap back to the first page", func() {
			Expect(service.Append(ctx, audit.Entry{Action: audit.ActionUserLogin})).To(Succeed())

			result, err := service.List(ctx, math.MaxInt/50+2, 50)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Entries).To(BeEmpty())
			Expect(result.Total).To(Equal(int64(1)))
			Expect(result.Page).To(BeNumerically("<=", math.MaxInt32))
		})

		It("serves the list over HTTP", func() {
			Expect(service.Append(ctx, audit.Entry{Action: audit.ActionUserLogin})).To(Succeed())
			handler := audit.NewHandler(&transport.BaseHandler{Logger: slogger}, service)

			req := httptest.NewRequest(http.MethodGet, "/admin/audit?page=1&limit=10", nil)
			w := httptest.NewRecorder()
			handler.ListEntries(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var body audit.ListResult
			Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
			Expect(body.Total).To(Equal(int64(1)))
			Expect(body.Limit).To(Equal(10))
		})
	})
})
