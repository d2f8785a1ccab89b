package authz_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/frahmantamala/member-management/internal"
	"github.com/frahmantamala/member-management/internal/authz"
	"github.com/frahmantamala/member-management/internal/core/events"
	"github.com/frahmantamala/member-management/internal/observability"
	"github.com/frahmantamala/member-management/internal/permission"
	"github.com/frahmantamala/member-management/internal/role"
	"github.com/frahmantamala/member-management/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ = Describe("Middleware", func() {
	var (
		publisher *recordingPublisher
		metrics   *observability.Metrics
		router    *chi.Mux
	)

	BeforeEach(func() {
		store := newFakeRoles(
			&role.Role{ID: 1, Name: role.AdminRoleName, IsAdmin: true, IsActive: true},
			&role.Role{ID: 2, Name: "Editor", Permissions: []string{"KISI_V"}, IsActive: true},
		)
		users := &fakeUsers{roles: map[int64][]int64{}}
		users.set(1, 1)
		users.set(2, 2)
		codes := &staticCodes{codes: permission.NewCodeSet("KISI_V", "ROLLER_GORUNTULEME")}
		guard := authz.NewGuard(users, authz.NewRoleCache(store, 0, time.Minute, nil, quietLogger()), codes, quietLogger())

		publisher = &recordingPublisher{}
		metrics = observability.NewMetrics(nil)
		base := &transport.BaseHandler{Logger: quietLogger()}
		mw := authz.NewMiddleware(base, guard, publisher, metrics)
		handler := authz.NewHandler(base, guard)

		ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

		router = chi.NewRouter()
		router.With(mw.Require("KISI_V")).Get("/kisiler", ok)
		router.With(mw.Require("ROLLER_GORUNTULEME")).Get("/roller", ok)
		router.With(mw.RequireSelfOrAdmin("id")).Get("/users/{id}/permissions", handler.UserPermissions)
	})

	serve := func(path string, userID int64) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if userID > 0 {
			req = req.WithContext(internal.ContextWithPrincipal(req.Context(), &internal.Principal{ID: userID}))
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("should pass a caller holding the code", func() {
		w := serve("/kisiler", 2)

		Expect(w.Code).To(Equal(http.StatusNoContent))
		Expect(testutil.ToFloat64(metrics.AuthzDecisionsTotal.WithLabelValues("KISI_V", "granted"))).To(Equal(1.0))
	})

	It("should answer 403 with the envelope and publish the denial", func() {
		// When
		w := serve("/roller", 2)

		// Then
		Expect(w.Code).To(Equal(http.StatusForbidden))
		var body internal.ErrorResponse
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body.Msg).NotTo(BeEmpty())
		Expect(body.Code).To(Equal(internal.ErrCodeAuthorizationDenied))

		published := publisher.all()
		Expect(published).To(HaveLen(1))
		denied, ok := published[0].(*events.AuthorizationDeniedEvent)
		Expect(ok).To(BeTrue())
		Expect(denied.UserID).To(Equal(int64(2)))
		Expect(denied.Permission).To(Equal("ROLLER_GORUNTULEME"))
		Expect(denied.Path).To(Equal("/roller"))
	})

	It("should let the admin through every gate", func() {
		Expect(serve("/roller", 1).Code).To(Equal(http.StatusNoContent))
		Expect(serve("/kisiler", 1).Code).To(Equal(http.StatusNoContent))
	})

	It("should answer 401 without a principal", func() {
		Expect(serve("/kisiler", 0).Code).To(Equal(http.StatusUnauthorized))
	})

	Describe("RequireSelfOrAdmin", func() {
		It("should let a user read their own permissions", func() {
			w := serve("/users/2/permissions", 2)

			Expect(w.Code).To(Equal(http.StatusOK))
			var view authz.PermissionsView
			Expect(json.NewDecoder(w.Body).Decode(&view)).To(Succeed())
			Expect(view.Permissions).To(Equal([]string{"KISI_V"}))
			Expect(view.IsAdmin).To(BeFalse())
		})

		It("should forbid reading someone else's permissions", func() {
			Expect(serve("/users/1/permissions", 2).Code).To(Equal(http.StatusForbidden))
		})

		It("should let the admin read anyone", func() {
			w := serve("/users/2/permissions", 1)
			Expect(w.Code).To(Equal(http.StatusOK))
		})
	})
})
