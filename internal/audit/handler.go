package audit

import (
	"context"
	"net/http"
	"strconv"

	"github.com/frahmantamala/member-management/internal"
	"github.com/frahmantamala/member-management/internal/transport"
)

type ServiceAPI interface {
	Recent(ctx context.Context, limit int) ([]*Entry, error)
}

type EntriesResponse struct {
	Entries []*Entry `json:"entries"`
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

// ListEntries handles GET /audit-logs?limit=
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.HandleServiceError(w, r, internal.NewValidationFieldError("limit", "must be a positive integer", internal.ErrCodeValidationFailed))
			return
		}
		limit = n
	}

	entries, err := h.Service.Recent(r.Context(), limit)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, EntriesResponse{Entries: entries})
}
