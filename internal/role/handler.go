package role

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/member-management/internal"
	"github.com/frahmantamala/member-management/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, req CreateRoleRequest, actorID *int64) (*Role, error)
	Update(ctx context.Context, id int64, req UpdateRoleRequest, actorID *int64) (*Role, error)
	Delete(ctx context.Context, id int64, actorID *int64) error
	BulkDelete(ctx context.Context, ids []int64, actorID *int64) *BulkDeleteResult
	RemovePermission(ctx context.Context, id int64, code string, actorID *int64) (*Role, error)
	ListActive(ctx context.Context) ([]*Role, error)
	ListAll(ctx context.Context) ([]*Role, error)
	GetByID(ctx context.Context, id int64) (*Role, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// ListRoles handles GET /roller. Inactive roles are included with ?all=true.
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	var (
		roles []*Role
		err   error
	)
	if r.URL.Query().Get("all") == "true" {
		roles, err = h.Service.ListAll(r.Context())
	} else {
		roles, err = h.Service.ListActive(r.Context())
	}
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, RolesResponse{Roles: roles})
}

// GetRole handles GET /roller/{id}
func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	role, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, role)
}

// CreateRole handles POST /roller
func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	role, err := h.Service.Create(r.Context(), req, transport.ActorID(r))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, role)
}

// UpdateRole handles PUT /roller/{id}
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	var req UpdateRoleRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	role, err := h.Service.Update(r.Context(), id, req, transport.ActorID(r))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, role)
}

// DeleteRole handles DELETE /roller/{id}
func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	if err := h.Service.Delete(r.Context(), id, transport.ActorID(r)); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BulkDelete handles POST /roller/bulk-delete. Per-role failures are reported
// in the body; the request itself succeeds.
func (h *Handler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req BulkDeleteRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	result := h.Service.BulkDelete(r.Context(), req.IDs, transport.ActorID(r))
	h.WriteJSON(w, http.StatusOK, result)
}

// RemovePermission handles DELETE /roller/{id}/yetkiler/{code}
func (h *Handler) RemovePermission(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	code := chi.URLParam(r, "code")
	if code == "" {
		h.HandleServiceError(w, r, internal.NewValidationFieldError("code", "code is required", internal.ErrCodeValidationFailed))
		return
	}

	role, err := h.Service.RemovePermission(r.Context(), id, code, transport.ActorID(r))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, role)
}
