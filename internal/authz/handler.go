package authz

import (
	"net/http"

	"github.com/frahmantamala/member-management/internal/transport"
)

// PermissionsView is the resolved permission list of one user.
type PermissionsView struct {
	UserID      int64    `json:"userId"`
	Permissions []string `json:"permissions"`
	IsAdmin     bool     `json:"isAdmin"`
}

func ViewOf(userID int64, g Grants) PermissionsView {
	return PermissionsView{UserID: userID, Permissions: g.Codes(), IsAdmin: g.Admin}
}

type Handler struct {
	*transport.BaseHandler
	Guard *Guard
}

func NewHandler(baseHandler *transport.BaseHandler, guard *Guard) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Guard:       guard,
	}
}

// UserPermissions handles GET /users/{id}/permissions
func (h *Handler) UserPermissions(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	grants, err := h.Guard.GrantsFor(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ViewOf(id, grants))
}
