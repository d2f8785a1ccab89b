package permission

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/member-management/internal"
	"github.com/frahmantamala/member-management/internal/transport"
)

type ServiceAPI interface {
	Reconcile(ctx context.Context, defs []Definition) (*ReconcileResult, error)
	SyncFile(ctx context.Context, path string) (*ReconcileResult, error)
	ListAll(ctx context.Context) ([]*Permission, error)
	ListActive(ctx context.Context) ([]*Permission, error)
	ListByModule(ctx context.Context, module string) ([]*Permission, error)
	ListModules(ctx context.Context) ([]string, error)
	SetActive(ctx context.Context, code string, active bool, actorID *int64) (*Permission, error)
}

type Handler struct {
	*transport.BaseHandler
	Service     ServiceAPI
	CatalogPath string
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, catalogPath string) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		CatalogPath: catalogPath,
	}
}

// ListPermissions handles GET /yetkiler. Optional filters: ?module=, ?active=true.
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	var (
		perms []*Permission
		err   error
	)

	q := r.URL.Query()
	switch {
	case q.Get("module") != "":
		perms, err = h.Service.ListByModule(r.Context(), q.Get("module"))
	case q.Get("active") == "true":
		perms, err = h.Service.ListActive(r.Context())
	default:
		perms, err = h.Service.ListAll(r.Context())
	}
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, PermissionsResponse{Permissions: perms})
}

// ListModules handles GET /yetkiler/moduller
func (h *Handler) ListModules(w http.ResponseWriter, r *http.Request) {
	modules, err := h.Service.ListModules(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ModulesResponse{Modules: modules})
}

// Sync handles POST /yetkiler/sync. An empty body reconciles the configured
// catalog file; a body with definitions reconciles those instead.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if r.ContentLength > 0 {
		if err := h.DecodeJSON(r, &req); err != nil {
			h.HandleServiceError(w, r, err)
			return
		}
	}

	var (
		result *ReconcileResult
		err    error
	)
	if len(req.Definitions) > 0 {
		result, err = h.Service.Reconcile(r.Context(), req.Definitions)
	} else {
		result, err = h.Service.SyncFile(r.Context(), h.CatalogPath)
	}
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// SetActive handles PATCH /yetkiler/{code}
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		h.HandleServiceError(w, r, internal.NewValidationFieldError("code", "code is required", internal.ErrCodeValidationFailed))
		return
	}

	var req SetActiveRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	p, err := h.Service.SetActive(r.Context(), code, *req.Active, transport.ActorID(r))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, p)
}
