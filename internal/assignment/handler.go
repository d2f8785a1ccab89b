package assignment

import (
	"context"
	"net/http"

	"github.com/frahmantamala/member-management/internal/transport"
)

type ServiceAPI interface {
	AssignRoles(ctx context.Context, userID int64, roleIDs []int64, opts Options) (*Result, error)
	AssignRolesBulk(ctx context.Context, userIDs, roleIDs []int64, actorID *int64) (*BulkResult, error)
	RemoveRole(ctx context.Context, userID, roleID int64, actorID *int64) (*Result, error)
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

// AssignRoles handles PUT /users/{id}/roles
func (h *Handler) AssignRoles(w http.ResponseWriter, r *http.Request) {
	userID, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	var req AssignRolesRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	res, err := h.Service.AssignRoles(r.Context(), userID, req.RoleIDs, Options{
		SkipRefresh: req.SkipRefresh,
		SkipNotify:  req.SkipNotify,
		ActorID:     transport.ActorID(r),
	})
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, res)
}

// AssignRolesBulk handles POST /users/assign-roles-bulk. Per-user failures
// are reported in the body with status 200.
func (h *Handler) AssignRolesBulk(w http.ResponseWriter, r *http.Request) {
	var req BulkAssignRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	res, err := h.Service.AssignRolesBulk(r.Context(), req.UserIDs, req.RoleIDs, transport.ActorID(r))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, res)
}

// RemoveRole handles DELETE /users/{id}/roles/{roleId}
func (h *Handler) RemoveRole(w http.ResponseWriter, r *http.Request) {
	userID, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	roleID, err := h.ParseIDParam(r, "roleId")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	res, err := h.Service.RemoveRole(r.Context(), userID, roleID, transport.ActorID(r))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, res)
}
