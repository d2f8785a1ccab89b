package audit_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/frahmantamala/member-management/internal/audit"
	auditPostgres "github.com/frahmantamala/member-management/internal/audit/postgres"
	auditDatamodel "github.com/frahmantamala/member-management/internal/core/datamodel/audit"
	"github.com/frahmantamala/member-management/internal/core/events"
	"github.com/frahmantamala/member-management/internal/transport"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// limitSpy records the limit it was asked for.
type limitSpy struct {
	audit.RepositoryAPI
	asked int
}

func (s *limitSpy) ListRecent(_ context.Context, limit int) ([]*auditDatamodel.AuditLog, error) {
	s.asked = limit
	return nil, nil
}

var _ = Describe("Audit", func() {
	var (
		ctx     context.Context
		slogger *slog.Logger
		bus     *events.EventBus
		sink    *audit.Sink
	)

	BeforeEach(func() {
		ctx = context.Background()
		slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&auditDatamodel.AuditLog{})).To(Succeed())

		sink = audit.NewSink(auditPostgres.NewAuditRepository(db), slogger)
		bus = events.NewEventBus(slogger)
		sink.Subscribe(bus)
	})

	Describe("EntryFromEvent", func() {
		It("should attribute a denial to the denied user", func() {
			e, err := audit.EntryFromEvent(events.NewAuthorizationDeniedEvent(7, "ROLLER_SILME", http.MethodDelete, "/api/v1/roller/3"))

			Expect(err).NotTo(HaveOccurred())
			Expect(e.EntityType).To(Equal(audit.EntityPermission))
			Expect(e.EntityID).To(Equal("ROLLER_SILME"))
			Expect(*e.ActorID).To(Equal(int64(7)))
			Expect(string(e.Details)).To(ContainSubstring(`"path":"/api/v1/roller/3"`))
		})

		It("should key role events by role id", func() {
			actor := int64(1)
			e, err := audit.EntryFromEvent(events.NewRoleChangedEvent(events.EventTypeRoleDeleted, 12, "Editor", &actor))

			Expect(err).NotTo(HaveOccurred())
			Expect(e.Action).To(Equal(events.EventTypeRoleDeleted))
			Expect(e.EntityType).To(Equal(audit.EntityRole))
			Expect(e.EntityID).To(Equal("12"))
			Expect(e.ActorID).To(Equal(&actor))
		})

		It("should key catalog syncs by source", func() {
			e, err := audit.EntryFromEvent(events.NewPermissionsSyncedEvent(3, 1, 0, 0, "config/permissions.yml"))

			Expect(err).NotTo(HaveOccurred())
			Expect(e.EntityType).To(Equal(audit.EntityCatalog))
			Expect(e.EntityID).To(Equal("config/permissions.yml"))
			Expect(e.ActorID).To(BeNil())
		})
	})

	Describe("Sink", func() {
		It("should persist every published event, newest first", func() {
			// Given
			older := events.NewUserRolesAssignedEvent(4, []int64{1, 2}, true, nil)
			older.Timestamp = time.Now().Add(-time.Minute)
			newer := events.NewUserRoleRemovedEvent(4, 2, nil)

			// When
			Expect(bus.PublishSync(ctx, older)).To(Succeed())
			Expect(bus.PublishSync(ctx, newer)).To(Succeed())

			// Then
			entries, err := sink.Recent(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].Action).To(Equal(events.EventTypeUserRoleRemoved))
			Expect(entries[1].Action).To(Equal(events.EventTypeUserRolesAssigned))
			Expect(entries[1].EntityID).To(Equal("4"))
			Expect(string(entries[1].Details)).To(ContainSubstring(`"admin_enforced":true`))
		})

		It("should clamp the requested limit", func() {
			spy := &limitSpy{}
			s := audit.NewSink(spy, slogger)

			_, _ = s.Recent(ctx, 0)
			Expect(spy.asked).To(Equal(audit.DefaultRecentLimit))

			_, _ = s.Recent(ctx, 10_000)
			Expect(spy.asked).To(Equal(audit.MaxRecentLimit))

			_, _ = s.Recent(ctx, 5)
			Expect(spy.asked).To(Equal(5))
		})
	})

	Describe("Handler", func() {
		var handler *audit.Handler

		BeforeEach(func() {
			handler = audit.NewHandler(&transport.BaseHandler{Logger: slogger}, sink)
			Expect(bus.PublishSync(ctx, events.NewPermissionToggledEvent("KISI_V", false, nil))).To(Succeed())
		})

		It("should list entries", func() {
			req := httptest.NewRequest(http.MethodGet, "/audit-logs?limit=10", nil)
			w := httptest.NewRecorder()

			handler.ListEntries(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp audit.EntriesResponse
			Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
			Expect(resp.Entries).To(HaveLen(1))
			Expect(resp.Entries[0].EntityID).To(Equal("KISI_V"))
		})

		It("should reject a bad limit", func() {
			req := httptest.NewRequest(http.MethodGet, "/audit-logs?limit=abc", nil)
			w := httptest.NewRecorder()

			handler.ListEntries(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
