package role_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"

	"github.com/frahmantamala/member-management/internal"
	"github.com/frahmantamala/member-management/internal/role"
	rolePostgres "github.com/frahmantamala/member-management/internal/role/postgres"
	"github.com/frahmantamala/member-management/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Role Handler Integration", func() {
	var (
		router *chi.Mux
		admin  *role.Role
	)

	BeforeEach(func() {
		var err error
		service := role.NewService(rolePostgres.NewRoleRepository(openDB()), newCatalog(), nil, quietLogger())
		admin, err = service.Create(context.Background(), role.CreateRoleRequest{Name: role.AdminRoleName, IsAdmin: true}, nil)
		Expect(err).NotTo(HaveOccurred())

		handler := role.NewHandler(&transport.BaseHandler{Logger: quietLogger()}, service)
		router = chi.NewRouter()
		router.Get("/roller", handler.ListRoles)
		router.Post("/roller", handler.CreateRole)
		router.Post("/roller/bulk-delete", handler.BulkDelete)
		router.Get("/roller/{id}", handler.GetRole)
		router.Put("/roller/{id}", handler.UpdateRole)
		router.Delete("/roller/{id}", handler.DeleteRole)
		router.Delete("/roller/{id}/yetkiler/{code}", handler.RemovePermission)
	})

	send := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	decodeError := func(w *httptest.ResponseRecorder) internal.ErrorResponse {
		var resp internal.ErrorResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		return resp
	}

	It("should create a role and return 201", func() {
		w := send(http.MethodPost, "/roller", map[string]interface{}{
			"name":        "Editor",
			"permissions": []string{"KISI_V"},
		})

		Expect(w.Code).To(Equal(http.StatusCreated))
		var created role.Role
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())
		Expect(created.Permissions).To(Equal([]string{"KISI_V"}))
	})

	It("should reject malformed permission codes before the service runs", func() {
		w := send(http.MethodPost, "/roller", map[string]interface{}{
			"name":        "Editor",
			"permissions": []string{"kisi-v"},
		})

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(decodeError(w).Code).To(Equal(internal.ErrCodeValidationFailed))
	})

	It("should answer 400 with the protected code when renaming Admin", func() {
		w := send(http.MethodPut, "/roller/"+strconv.FormatInt(admin.ID, 10), map[string]interface{}{"name": "Root"})

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(decodeError(w).Code).To(Equal(internal.ErrCodeProtectedRoleRename))
	})

	It("should answer 404 for an unknown role", func() {
		w := send(http.MethodGet, "/roller/4242", nil)

		Expect(w.Code).To(Equal(http.StatusNotFound))
		Expect(decodeError(w).Code).To(Equal(internal.ErrCodeRoleNotFound))
	})

	It("should reject a non numeric id", func() {
		w := send(http.MethodDelete, "/roller/abc", nil)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("should report bulk delete outcomes with 200", func() {
		w := send(http.MethodPost, "/roller/bulk-delete", map[string]interface{}{"ids": []int64{admin.ID}})

		Expect(w.Code).To(Equal(http.StatusOK))
		var result role.BulkDeleteResult
		Expect(json.NewDecoder(w.Body).Decode(&result)).To(Succeed())
		Expect(result.Success).To(Equal(0))
		Expect(result.Failed).To(Equal(1))
	})

	It("should list active roles", func() {
		w := send(http.MethodGet, "/roller", nil)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp role.RolesResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Roles).To(HaveLen(1))
	})
})
