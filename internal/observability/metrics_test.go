package observability_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/frahmantamala/member-management/internal/core/events"
	"github.com/frahmantamala/member-management/internal/observability"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Metrics", func() {
	var m *observability.Metrics

	BeforeEach(func() {
		m = observability.NewMetrics(nil)
	})

	It("should tolerate a nil receiver", func() {
		var none *observability.Metrics
		Expect(func() {
			none.RecordDecision("KISI_V", true)
			none.RecordCacheHit()
			none.RecordAssignment("single", nil)
			none.RecordCatalogSync(errors.New("boom"))
		}).NotTo(Panic())
	})

	It("should count decisions by outcome", func() {
		m.RecordDecision("KISI_V", true)
		m.RecordDecision("KISI_V", false)
		m.RecordDecision("KISI_V", false)

		Expect(testutil.ToFloat64(m.AuthzDecisionsTotal.WithLabelValues("KISI_V", "granted"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(m.AuthzDecisionsTotal.WithLabelValues("KISI_V", "denied"))).To(Equal(2.0))
	})

	It("should label assignments by mode and status", func() {
		m.RecordAssignment("bulk", nil)
		m.RecordAssignment("bulk", errors.New("user not found"))

		Expect(testutil.ToFloat64(m.AssignmentsTotal.WithLabelValues("bulk", "success"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(m.AssignmentsTotal.WithLabelValues("bulk", "failed"))).To(Equal(1.0))
	})

	Describe("Subscribe", func() {
		It("should count catalog reconciliations from the bus", func() {
			// Given
			bus := events.NewEventBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
			m.Subscribe(bus)
			ctx := context.Background()

			// When
			Expect(bus.PublishSync(ctx, events.NewPermissionsSyncedEvent(3, 1, 10, 0, "config/permissions.yml"))).To(Succeed())
			Expect(bus.PublishSync(ctx, events.NewPermissionsSyncedEvent(0, 0, 10, 2, "config/permissions.yml"))).To(Succeed())

			// Then
			Expect(testutil.ToFloat64(m.CatalogSyncTotal.WithLabelValues("success"))).To(Equal(1.0))
			Expect(testutil.ToFloat64(m.CatalogSyncTotal.WithLabelValues("failed"))).To(Equal(1.0))
		})
	})

	Describe("HTTPMiddleware", func() {
		It("should label requests with the route pattern", func() {
			// Given
			r := chi.NewRouter()
			r.Use(m.HTTPMiddleware)
			r.Get("/roller/{id}", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			})

			// When
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/roller/5", nil))
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/roller/6", nil))

			// Then
			Expect(testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/roller/{id}", "404"))).To(Equal(2.0))
		})

		It("should expose the registry", func() {
			m.RecordCacheHit()
			w := httptest.NewRecorder()

			m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring("member_role_cache_hits_total 1"))
		})
	})
})
