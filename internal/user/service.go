package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/member-management/internal"
	userDatamodel "github.com/frahmantamala/member-management/internal/core/datamodel/user"
	"github.com/frahmantamala/member-management/internal/core/events"
	"github.com/frahmantamala/member-management/internal/role"
)

type RepositoryAPI interface {
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	List(ctx context.Context) ([]*userDatamodel.User, error)
	Create(ctx context.Context, u *userDatamodel.User) error
	ReplaceRoles(ctx context.Context, userID int64, roleIDs []int64) error
	RemoveRole(ctx context.Context, userID, roleID int64) (bool, error)
}

type RoleReader interface {
	GetByIDs(ctx context.Context, ids []int64) ([]*role.Role, error)
	GetDefaultRoles(ctx context.Context) ([]*role.Role, error)
	GetAdminRole(ctx context.Context) (*role.Role, error)
}

type Service struct {
	repo             RepositoryAPI
	roles            RoleReader
	bus              events.Publisher
	logger           *slog.Logger
	systemAdminEmail string
	bcryptCost       int
}

func NewService(repo RepositoryAPI, roles RoleReader, bus events.Publisher, logger *slog.Logger, systemAdminEmail string, bcryptCost int) *Service {
	if bus == nil {
		bus = events.Nop{}
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:             repo,
		roles:            roles,
		bus:              bus,
		logger:           logger,
		systemAdminEmail: strings.TrimSpace(systemAdminEmail),
		bcryptCost:       bcryptCost,
	}
}

// IsSystemAdmin reports whether u is the configured system administrator.
func (s *Service) IsSystemAdmin(u *User) bool {
	return u != nil && SameEmail(u.Email, s.systemAdminEmail)
}

func (s *Service) SystemAdminEmail() string {
	return s.systemAdminEmail
}

// GetByID returns the user with resolved role snapshots.
func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.resolveRoles(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetByEmail returns the user with unresolved role refs, or nil if absent.
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	row, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if row == nil {
		return nil, nil
	}
	return FromDataModel(row), nil
}

// GetRoleIDs returns the role ids held by the user. Inactive users hold none.
func (s *Service) GetRoleIDs(ctx context.Context, id int64) ([]int64, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return []int64{}, nil
	}
	return u.RoleIDs(), nil
}

func (s *Service) List(ctx context.Context) ([]*User, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to list users", err)
	}
	users := make([]*User, 0, len(rows))
	for _, row := range rows {
		users = append(users, FromDataModel(row))
	}
	if err := s.resolveRoles(ctx, users...); err != nil {
		return nil, err
	}
	return users, nil
}

// Create registers a user. Without explicit roles the default roles are
// attached; the system administrator always receives the Admin role.
func (s *Service) Create(ctx context.Context, req CreateUserRequest, actorID *int64) (*User, error) {
	email := strings.TrimSpace(req.Email)

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, internal.NewInternalError("failed to check email", err)
	}
	if existing != nil {
		return nil, internal.ErrDuplicateEmail
	}

	roleIDs, err := s.initialRoles(ctx, email, req.RoleIDs)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	u := &User{
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: string(hash),
		IsActive:     true,
	}
	for _, id := range roleIDs {
		u.Roles = append(u.Roles, role.Ref{ID: id})
	}

	row := ToDataModel(u)
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, internal.NewInternalError("failed to create user", err)
	}

	s.logger.Info("user created", "user_id", row.ID, "email", email, "roles", roleIDs)
	if err := s.bus.PublishSync(ctx, events.NewUserCreatedEvent(row.ID, email, actorID)); err != nil {
		s.logger.Warn("user.created subscribers failed", "error", err)
	}

	return s.GetByID(ctx, row.ID)
}

func (s *Service) initialRoles(ctx context.Context, email string, requested []int64) ([]int64, error) {
	var ids []int64
	if len(requested) > 0 {
		ids = role.UniqueIDs(requested)
		found, err := s.roles.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		if missing := role.MissingIDs(ids, found); len(missing) > 0 {
			return nil, internal.ErrUnknownRole.WithDetails(map[string][]int64{"ids": missing})
		}
	} else {
		defaults, err := s.roles.GetDefaultRoles(ctx)
		if err != nil {
			return nil, err
		}
		for _, r := range defaults {
			ids = append(ids, r.ID)
		}
	}

	if SameEmail(email, s.systemAdminEmail) {
		admin, err := s.roles.GetAdminRole(ctx)
		if err != nil {
			return nil, err
		}
		ids = role.UniqueIDs(append(ids, admin.ID))
	}
	return ids, nil
}

// ReplaceRoles overwrites the user's role set in one transaction.
func (s *Service) ReplaceRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	if err := s.repo.ReplaceRoles(ctx, userID, roleIDs); err != nil {
		if errors.Is(err, ErrNotFound) {
			return internal.ErrUserNotFound
		}
		return internal.NewInternalError("failed to store user roles", err)
	}
	return nil
}

// RemoveRole drops one role from the user. Removing a role the user does not
// hold is a no-op.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID int64) error {
	if _, err := s.repo.RemoveRole(ctx, userID, roleID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return internal.ErrUserNotFound
		}
		return internal.NewInternalError("failed to remove user role", err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, id int64) (*User, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if row == nil {
		return nil, internal.ErrUserNotFound
	}
	return FromDataModel(row), nil
}

// resolveRoles fills the role snapshots of every ref with one lookup.
func (s *Service) resolveRoles(ctx context.Context, users ...*User) error {
	var ids []int64
	for _, u := range users {
		ids = append(ids, u.RoleIDs()...)
	}
	if len(ids) == 0 {
		return nil
	}

	roles, err := s.roles.GetByIDs(ctx, role.UniqueIDs(ids))
	if err != nil {
		return fmt.Errorf("failed to resolve roles: %w", err)
	}
	byID := make(map[int64]*role.Role, len(roles))
	for _, r := range roles {
		byID[r.ID] = r
	}

	for _, u := range users {
		for i := range u.Roles {
			u.Roles[i].Role = byID[u.Roles[i].ID]
		}
	}
	return nil
}
