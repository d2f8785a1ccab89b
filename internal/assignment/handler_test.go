package assignment_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/member-management/internal"
	"github.com/frahmantamala/member-management/internal/assignment"
	"github.com/frahmantamala/member-management/internal/transport"
	"github.com/frahmantamala/member-management/internal/user"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Assignment Handler Integration", func() {
	var (
		f      *fixture
		router *chi.Mux
		sysadm *user.User
		plain  *user.User
	)

	BeforeEach(func() {
		f = newFixture(true)
		service := assignment.NewService(f.users, f.roles, f.bus, nil, quietLogger(), 2)
		handler := assignment.NewHandler(&transport.BaseHandler{Logger: quietLogger()}, service)

		router = chi.NewRouter()
		router.Post("/users/assign-roles-bulk", handler.AssignRolesBulk)
		router.Put("/users/{id}/roles", handler.AssignRoles)
		router.Delete("/users/{id}/roles/{roleId}", handler.RemoveRole)

		sysadm = f.createUser(systemAdminEmail)
		plain = f.createUser("uye@member.local")
	})

	send := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("should return the projection with the Admin notice", func() {
		w := send(http.MethodPut, fmt.Sprintf("/users/%d/roles", sysadm.ID), map[string]interface{}{
			"roleIds": []int64{f.editor.ID},
		})

		Expect(w.Code).To(Equal(http.StatusOK))
		var res assignment.Result
		Expect(json.NewDecoder(w.Body).Decode(&res)).To(Succeed())
		Expect(res.ID).To(Equal(sysadm.ID))
		Expect(res.Roles).To(HaveLen(2))
		Expect(res.Notices).To(ConsistOf(assignment.AdminKeptNotice))
	})

	It("should answer 400 when removing Admin from the system administrator", func() {
		w := send(http.MethodDelete, fmt.Sprintf("/users/%d/roles/%d", sysadm.ID, f.admin.ID), nil)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		var body internal.ErrorResponse
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body.Code).To(Equal(internal.ErrCodeProtectedAdminRole))
	})

	It("should report partial bulk failure with 200", func() {
		w := send(http.MethodPost, "/users/assign-roles-bulk", map[string]interface{}{
			"userIds": []int64{plain.ID, 999},
			"roleIds": []int64{f.editor.ID},
		})

		Expect(w.Code).To(Equal(http.StatusOK))
		var res assignment.BulkResult
		Expect(json.NewDecoder(w.Body).Decode(&res)).To(Succeed())
		Expect(res.Success).To(Equal(1))
		Expect(res.Failed).To(Equal(1))
	})

	It("should reject a bulk request without users", func() {
		w := send(http.MethodPost, "/users/assign-roles-bulk", map[string]interface{}{
			"userIds": []int64{},
			"roleIds": []int64{f.editor.ID},
		})

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("should reject a missing roleIds field", func() {
		w := send(http.MethodPut, fmt.Sprintf("/users/%d/roles", plain.ID), map[string]interface{}{})

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
