package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/frahmantamala/member-management/internal/assignment"
	"github.com/frahmantamala/member-management/internal/audit"
	"github.com/frahmantamala/member-management/internal/auth"
	"github.com/frahmantamala/member-management/internal/authz"
	"github.com/frahmantamala/member-management/internal/observability"
	"github.com/frahmantamala/member-management/internal/permission"
	"github.com/frahmantamala/member-management/internal/role"
	"github.com/frahmantamala/member-management/internal/transport"
	"github.com/frahmantamala/member-management/internal/transport/middleware"
	"github.com/frahmantamala/member-management/internal/transport/rest"
	"github.com/frahmantamala/member-management/internal/user"
)

const (
	defaultPingTimeout     = 5 * time.Second
	defaultShutdownTimeout = 30 * time.Second
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startHTTPServer()
	},
}

func startHTTPServer() error {
	cfg, err := loadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	initLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Observability.Tracing, a.Logger)
	if err != nil {
		return err
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			a.Logger.Warn("tracing shutdown error", "error", err)
		}
	}()

	router, err := setupRoutes(ctx, a)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info("starting HTTP server", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	if a.Broadcaster != nil {
		g.Go(func() error {
			return a.Broadcaster.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info("shutting down HTTP server")
		sctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		return server.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		a.Logger.Error("server stopped with error", "error", err)
		return err
	}
	a.Logger.Info("server stopped")
	return nil
}

func setupRoutes(ctx context.Context, a *app) (*chi.Mux, error) {
	cfg := a.Config
	base := transport.NewBaseHandler(a.Logger)

	var extra map[string]rest.Check
	if a.Redis != nil {
		extra = map[string]rest.Check{
			"redis": func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() },
		}
	}

	rt := rest.Routes{
		Health:     rest.NewHealthHandler(a.SQL.DB, extra),
		Auth:       auth.NewHandler(base, a.Auth),
		Users:      user.NewHandler(base, a.Users),
		Roles:      role.NewHandler(base, a.Roles),
		Permission: permission.NewHandler(base, a.Permissions, cfg.RBAC.CatalogPath),
		Assignment: assignment.NewHandler(base, a.Assignments),
		Grants:     authz.NewHandler(base, a.Guard),
		Audit:      audit.NewHandler(base, a.Audit),
		Authz:      authz.NewMiddleware(base, a.Guard, a.Bus, a.Metrics),

		SpecPath:       cfg.OpenAPI.SpecPath,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Tracing:        cfg.Observability.Tracing.Enabled,
	}
	if cfg.Observability.Metrics.Enabled {
		rt.Metrics = a.Metrics
		rt.MetricsPath = cfg.Observability.Metrics.Path
	}
	if cfg.OpenAPI.ValidateRequests {
		v, err := middleware.NewRequestValidator(ctx, cfg.OpenAPI.SpecPath)
		if err != nil {
			return nil, err
		}
		rt.Validator = v
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rt, a.Logger)
	return router, nil
}
