package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/member-management/internal/assignment"
	"github.com/frahmantamala/member-management/internal/audit"
	"github.com/frahmantamala/member-management/internal/auth"
	"github.com/frahmantamala/member-management/internal/authz"
	"github.com/frahmantamala/member-management/internal/observability"
	"github.com/frahmantamala/member-management/internal/permission"
	"github.com/frahmantamala/member-management/internal/role"
	"github.com/frahmantamala/member-management/internal/transport/middleware"
	"github.com/frahmantamala/member-management/internal/transport/swagger"
	"github.com/frahmantamala/member-management/internal/user"
)

// Routes carries everything the router mounts. Nil handlers leave their
// routes out.
type Routes struct {
	Health     *HealthHandler
	Auth       *auth.Handler
	Users      *user.Handler
	Roles      *role.Handler
	Permission *permission.Handler
	Assignment *assignment.Handler
	Grants     *authz.Handler
	Audit      *audit.Handler
	Authz      *authz.Middleware

	Metrics     *observability.Metrics
	MetricsPath string
	Validator   *middleware.RequestValidator
	SpecPath    string

	AllowedOrigins string
	Tracing        bool
}

func RegisterAllRoutes(router *chi.Mux, rt Routes, logger *slog.Logger) {
	router.Use(middleware.CORS(rt.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.TraceID(logger))
	router.Use(middleware.RequestLogger)
	router.Use(middleware.Recovery)
	if rt.Metrics != nil {
		router.Use(rt.Metrics.HTTPMiddleware)
	}

	if rt.Metrics != nil && rt.MetricsPath != "" {
		router.Handle(rt.MetricsPath, rt.Metrics.Handler())
	}

	// OpenAPI description and Swagger UI live outside the API prefix
	specPath := rt.SpecPath
	if specPath == "" {
		specPath = "./api/openapi.yml"
	}
	router.Get(swagger.SpecURL, func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, specPath)
	})
	router.Handle("/swagger/*", swagger.Handler(swagger.SpecURL))

	router.Route("/api/v1", func(r chi.Router) {
		if rt.Tracing {
			r.Use(func(next http.Handler) http.Handler {
				return observability.InstrumentHandler(next, "api")
			})
		}
		if rt.Validator != nil {
			r.Use(rt.Validator.Middleware)
		}

		if rt.Health != nil {
			r.Get("/health", rt.Health.Health)
			r.Get("/ping", rt.Health.Ping)
		}

		if rt.Auth == nil {
			return
		}

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", rt.Auth.Login)
			sr.Post("/refresh", rt.Auth.RefreshToken)
			sr.Post("/logout", rt.Auth.Logout)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(rt.Auth.AuthMiddleware)
			mountProtected(pr, rt)
		})
	})
}

func mountProtected(pr chi.Router, rt Routes) {
	require := rt.Authz.Require

	if rt.Users != nil {
		pr.Get("/users/me", rt.Users.GetCurrentUser)
		pr.With(require(permission.UsersView)).Get("/users", rt.Users.ListUsers)
		pr.With(require(permission.UsersCreate)).Post("/users", rt.Users.CreateUser)
	}

	if rt.Assignment != nil {
		pr.Group(func(ar chi.Router) {
			ar.Use(require(permission.UsersUpdate))
			ar.Post("/users/assign-roles-bulk", rt.Assignment.AssignRolesBulk)
			ar.Put("/users/{id}/roles", rt.Assignment.AssignRoles)
			ar.Delete("/users/{id}/roles/{roleId}", rt.Assignment.RemoveRole)
		})
	}

	if rt.Grants != nil {
		pr.With(rt.Authz.RequireSelfOrAdmin("id")).Get("/users/{id}/permissions", rt.Grants.UserPermissions)
	}

	if rt.Roles != nil {
		pr.Route("/roller", func(rr chi.Router) {
			rr.With(require(permission.RolesView)).Get("/", rt.Roles.ListRoles)
			rr.With(require(permission.RolesView)).Get("/{id}", rt.Roles.GetRole)
			rr.With(require(permission.RolesCreate)).Post("/", rt.Roles.CreateRole)
			rr.With(require(permission.RolesUpdate)).Put("/{id}", rt.Roles.UpdateRole)
			rr.With(require(permission.RolesUpdate)).Delete("/{id}/yetkiler/{code}", rt.Roles.RemovePermission)
			rr.With(require(permission.RolesDelete)).Delete("/{id}", rt.Roles.DeleteRole)
			rr.With(require(permission.RolesDelete)).Post("/bulk-delete", rt.Roles.BulkDelete)
		})
	}

	if rt.Permission != nil {
		pr.Route("/yetkiler", func(yr chi.Router) {
			yr.With(require(permission.PermissionsView)).Get("/", rt.Permission.ListPermissions)
			yr.With(require(permission.PermissionsView)).Get("/moduller", rt.Permission.ListModules)
			yr.With(require(permission.PermissionsUpdate)).Post("/sync", rt.Permission.Sync)
			yr.With(require(permission.PermissionsUpdate)).Patch("/{code}", rt.Permission.SetActive)
		})
	}

	if rt.Audit != nil {
		pr.With(require(permission.AuditView)).Get("/audit-logs", rt.Audit.ListEntries)
	}
}
