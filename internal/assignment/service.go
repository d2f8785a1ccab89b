package assignment

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/frahmantamala/member-management/internal"
	"github.com/frahmantamala/member-management/internal/core/events"
	"github.com/frahmantamala/member-management/internal/observability"
	"github.com/frahmantamala/member-management/internal/role"
	"github.com/frahmantamala/member-management/internal/user"
)

const DefaultParallelism = 8

type UserStore interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
	ReplaceRoles(ctx context.Context, userID int64, roleIDs []int64) error
	RemoveRole(ctx context.Context, userID, roleID int64) error
	IsSystemAdmin(u *user.User) bool
}

type RoleStore interface {
	GetByIDs(ctx context.Context, ids []int64) ([]*role.Role, error)
	GetAdminRole(ctx context.Context) (*role.Role, error)
}

type Service struct {
	users       UserStore
	roles       RoleStore
	bus         events.Publisher
	metrics     *observability.Metrics
	logger      *slog.Logger
	parallelism int
	locks       *userLocks
}

func NewService(users UserStore, roles RoleStore, bus events.Publisher, metrics *observability.Metrics, logger *slog.Logger, parallelism int) *Service {
	if bus == nil {
		bus = events.Nop{}
	}
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	return &Service{
		users:       users,
		roles:       roles,
		bus:         bus,
		metrics:     metrics,
		logger:      logger,
		parallelism: parallelism,
		locks:       newUserLocks(),
	}
}

// AssignRoles overwrites the role set of one user. For the system
// administrator the Admin role is appended when missing and a notice is
// returned instead of an error. The user.roles_assigned event is published
// for every stored change regardless of opts.
func (s *Service) AssignRoles(ctx context.Context, userID int64, roleIDs []int64, opts Options) (*Result, error) {
	roles, err := s.resolve(ctx, roleIDs)
	if err != nil {
		s.metrics.RecordAssignment("single", err)
		return nil, err
	}

	res, err := s.assign(ctx, userID, roles, opts)
	s.metrics.RecordAssignment("single", err)
	return res, err
}

// AssignRolesBulk gives every listed user exactly roleIDs. Users are handled
// concurrently and independently; there is no cross-user atomicity.
func (s *Service) AssignRolesBulk(ctx context.Context, userIDs, roleIDs []int64, actorID *int64) (*BulkResult, error) {
	roles, err := s.resolve(ctx, roleIDs)
	if err != nil {
		return nil, err
	}

	ids := role.UniqueIDs(userIDs)
	details := make([]BulkItem, len(ids))

	var g errgroup.Group
	g.SetLimit(s.parallelism)
	for i, id := range ids {
		g.Go(func() error {
			_, err := s.assign(ctx, id, roles, Options{SkipRefresh: true, ActorID: actorID})
			s.metrics.RecordAssignment("bulk", err)

			item := BulkItem{UserID: id, Success: err == nil}
			if err != nil {
				item.Error = errorMessage(err)
				s.logger.Warn("bulk assignment failed for user", "user_id", id, "error", err)
			}
			details[i] = item
			return nil
		})
	}
	_ = g.Wait()

	result := &BulkResult{Details: details}
	for _, d := range details {
		if d.Success {
			result.Success++
		} else {
			result.Failed++
		}
	}

	s.logger.Info("bulk role assignment finished",
		"users", len(ids),
		"roles", role.RefIDs(role.RefsOf(roles)),
		"success", result.Success,
		"failed", result.Failed)
	return result, nil
}

// RemoveRole drops one role from a user. Taking the Admin role away from the
// system administrator is rejected and leaves the user unchanged.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID int64, actorID *int64) (*Result, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.users.IsSystemAdmin(u) {
		admin, err := s.roles.GetAdminRole(ctx)
		switch {
		case errors.Is(err, internal.ErrAdminRoleMissing):
		case err != nil:
			return nil, err
		case admin.ID == roleID:
			s.logger.Warn("rejected Admin role removal from system administrator", "user_id", userID)
			return nil, internal.ErrProtectedAdminRole
		}
	}

	unlock := s.locks.lock(userID)
	err = s.users.RemoveRole(ctx, userID, roleID)
	unlock()
	if err != nil {
		return nil, err
	}

	s.logger.Info("role removed from user", "user_id", userID, "role_id", roleID)
	if err := s.bus.PublishSync(ctx, events.NewUserRoleRemovedEvent(userID, roleID, actorID)); err != nil {
		s.logger.Warn("user.role_removed subscribers failed", "error", err)
	}

	return s.project(ctx, userID, nil)
}

func (s *Service) resolve(ctx context.Context, roleIDs []int64) ([]*role.Role, error) {
	ids := role.UniqueIDs(roleIDs)
	if len(ids) == 0 {
		return []*role.Role{}, nil
	}

	found, err := s.roles.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if missing := role.MissingIDs(ids, found); len(missing) > 0 {
		return nil, internal.ErrUnknownRole.WithDetails(map[string][]int64{"ids": missing})
	}
	return found, nil
}

func (s *Service) assign(ctx context.Context, userID int64, roles []*role.Role, opts Options) (*Result, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var (
		notices       []string
		adminEnforced bool
	)
	if s.users.IsSystemAdmin(u) {
		admin, err := s.roles.GetAdminRole(ctx)
		if err != nil {
			return nil, err
		}
		if len(role.MissingIDs([]int64{admin.ID}, roles)) > 0 {
			roles = append(append([]*role.Role{}, roles...), admin)
			notices = append(notices, AdminKeptNotice)
			adminEnforced = true
			s.metrics.RecordAdminReinsert()
			s.logger.Info("Admin role re-inserted for system administrator", "user_id", userID)
		}
	}

	ids := role.RefIDs(role.RefsOf(roles))

	unlock := s.locks.lock(userID)
	err = s.users.ReplaceRoles(ctx, userID, ids)
	unlock()
	if err != nil {
		return nil, err
	}

	s.logger.Info("roles assigned", "user_id", userID, "role_ids", ids, "admin_enforced", adminEnforced)

	evt := events.NewUserRolesAssignedEvent(userID, ids, adminEnforced, opts.ActorID)
	if err := s.bus.PublishSync(ctx, evt); err != nil {
		s.logger.Warn("user.roles_assigned subscribers failed", "error", err)
	}
	if opts.SkipNotify {
		notices = nil
	}

	if opts.SkipRefresh {
		return &Result{ID: userID, Roles: role.RefsOf(roles), Notices: notices}, nil
	}
	return s.project(ctx, userID, notices)
}

func (s *Service) project(ctx context.Context, userID int64, notices []string) (*Result, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Result{ID: u.ID, Roles: u.Roles, Notices: notices}, nil
}

func errorMessage(err error) string {
	if appErr, ok := internal.IsAppError(err); ok {
		return appErr.GetDetailedMessage()
	}
	return err.Error()
}
