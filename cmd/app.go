package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/member-management/internal"
	"github.com/frahmantamala/member-management/internal/assignment"
	"github.com/frahmantamala/member-management/internal/audit"
	auditPostgres "github.com/frahmantamala/member-management/internal/audit/postgres"
	"github.com/frahmantamala/member-management/internal/auth"
	authPostgres "github.com/frahmantamala/member-management/internal/auth/postgres"
	"github.com/frahmantamala/member-management/internal/authz"
	"github.com/frahmantamala/member-management/internal/core/events"
	"github.com/frahmantamala/member-management/internal/observability"
	"github.com/frahmantamala/member-management/internal/permission"
	permissionPostgres "github.com/frahmantamala/member-management/internal/permission/postgres"
	"github.com/frahmantamala/member-management/internal/role"
	rolePostgres "github.com/frahmantamala/member-management/internal/role/postgres"
	"github.com/frahmantamala/member-management/internal/user"
	userPostgres "github.com/frahmantamala/member-management/internal/user/postgres"
	"github.com/frahmantamala/member-management/pkg/logger"
)

// app is the wired service graph shared by the commands.
type app struct {
	Config *internal.Config
	Logger *slog.Logger
	SQL    *sqlx.DB
	Gorm   *gorm.DB
	Bus    *events.EventBus

	Metrics     *observability.Metrics
	Permissions *permission.Service
	Roles       *role.Service
	Users       *user.Service
	Assignments *assignment.Service
	Auth        *auth.Service
	Audit       *audit.Sink
	RoleCache   *authz.RoleCache
	Guard       *authz.Guard

	Redis       *redis.Client
	Broadcaster *authz.Broadcaster
}

func newApp(cfg *internal.Config) (*app, error) {
	lg := logger.LoggerWrapper()

	sqlDB, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB.DB}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}

	a := &app{
		Config:  cfg,
		Logger:  lg,
		SQL:     sqlDB,
		Gorm:    gormDB,
		Bus:     events.NewEventBus(lg),
		Metrics: observability.NewMetrics(nil),
	}

	a.Permissions = permission.NewService(permissionPostgres.NewPermissionRepository(gormDB), a.Bus, lg)
	a.Roles = role.NewService(rolePostgres.NewRoleRepository(gormDB), a.Permissions, a.Bus, lg)
	a.Users = user.NewService(userPostgres.NewUserRepository(gormDB), a.Roles, a.Bus, lg,
		cfg.RBAC.SystemAdminEmail, cfg.Security.BCryptCost)
	a.Assignments = assignment.NewService(a.Users, a.Roles, a.Bus, a.Metrics, lg, cfg.RBAC.BulkParallelism)

	tokens := auth.NewJWTTokenGenerator(cfg.Security.AccessTokenSecret, cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration, cfg.Security.RefreshTokenDuration)
	a.Auth = auth.NewService(authPostgres.NewRepository(gormDB), tokens, lg)

	a.RoleCache = authz.NewRoleCache(a.Roles, cfg.RBAC.Cache.Size, cfg.RBAC.Cache.TTL, a.Metrics, lg)
	a.RoleCache.Subscribe(a.Bus)
	a.Guard = authz.NewGuard(a.Users, a.RoleCache, a.Permissions, lg)

	a.Audit = audit.NewSink(auditPostgres.NewAuditRepository(gormDB), lg)
	a.Audit.Subscribe(a.Bus)
	a.Metrics.Subscribe(a.Bus)

	if addr := cfg.RBAC.Cache.RedisAddr; addr != "" {
		a.Redis = redis.NewClient(&redis.Options{Addr: addr})
		a.Broadcaster = authz.NewBroadcaster(a.Redis, cfg.RBAC.Cache.RedisChannel, a.RoleCache, a.Permissions, a.Metrics, lg)
		a.Broadcaster.Subscribe(a.Bus)
	}

	return a, nil
}

func (a *app) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("redis close error", "error", err)
		}
	}
	if err := a.SQL.Close(); err != nil {
		a.Logger.Error("database close error", "error", err)
	}
}

// initDB opens the pgx backed connection pool shared by sqlx and gorm.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
	defer cancel()
	if err := dbConn.PingContext(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
