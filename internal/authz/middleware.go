package authz

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/member-management/internal"
	"github.com/frahmantamala/member-management/internal/core/events"
	"github.com/frahmantamala/member-management/internal/observability"
	"github.com/frahmantamala/member-management/internal/transport"
	"github.com/frahmantamala/member-management/pkg/logger"
)

// Middleware gates chi routes on permission codes.
type Middleware struct {
	*transport.BaseHandler
	guard   *Guard
	bus     events.Publisher
	metrics *observability.Metrics
}

func NewMiddleware(baseHandler *transport.BaseHandler, guard *Guard, bus events.Publisher, metrics *observability.Metrics) *Middleware {
	if bus == nil {
		bus = events.Nop{}
	}
	return &Middleware{
		BaseHandler: baseHandler,
		guard:       guard,
		bus:         bus,
		metrics:     metrics,
	}
}

// Require admits the request only when the caller holds code.
func (m *Middleware) Require(code string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := internal.PrincipalFromContext(r.Context())
			if !ok {
				m.HandleServiceError(w, r, internal.ErrUnauthenticated)
				return
			}

			grants, err := m.guard.Resolve(r.Context(), p)
			if err != nil {
				m.HandleServiceError(w, r, err)
				return
			}

			granted := grants.Has(code)
			m.metrics.RecordDecision(code, granted)
			if !granted {
				m.deny(w, r, p, code)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireSelfOrAdmin admits callers reading their own record, identified by
// the URL parameter param, and admins.
func (m *Middleware) RequireSelfOrAdmin(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := internal.PrincipalFromContext(r.Context())
			if !ok {
				m.HandleServiceError(w, r, internal.ErrUnauthenticated)
				return
			}

			if target, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64); err == nil && target == p.ID {
				next.ServeHTTP(w, r)
				return
			}

			grants, err := m.guard.Resolve(r.Context(), p)
			if err != nil {
				m.HandleServiceError(w, r, err)
				return
			}
			m.metrics.RecordDecision("SELF_OR_ADMIN", grants.Admin)
			if !grants.Admin {
				m.deny(w, r, p, "SELF_OR_ADMIN")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) deny(w http.ResponseWriter, r *http.Request, p *internal.Principal, code string) {
	logger.From(r.Context()).Warn("access denied: insufficient permissions",
		"user_id", p.ID,
		"required_permission", code,
		"method", r.Method,
		"path", r.URL.Path)

	evt := events.NewAuthorizationDeniedEvent(p.ID, code, r.Method, r.URL.Path)
	if err := m.bus.Publish(r.Context(), evt); err != nil {
		m.Logger.Warn("failed to publish denial", "error", err)
	}

	m.HandleServiceError(w, r, internal.ErrAuthorizationDenied)
}
