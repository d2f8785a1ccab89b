package authz

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/member-management/internal"
	"github.com/frahmantamala/member-management/internal/permission"
	"github.com/frahmantamala/member-management/internal/role"
)

// UserRoleSource returns the role ids currently held by a user, or
// internal.ErrUserNotFound.
type UserRoleSource interface {
	GetRoleIDs(ctx context.Context, userID int64) ([]int64, error)
}

type ActiveCodeSource interface {
	ActiveCodes(ctx context.Context) (permission.CodeSet, error)
}

// Guard resolves grants for a caller on every request. User->Role links are
// always read from storage; only Role->Permission snapshots come from cache.
type Guard struct {
	users   UserRoleSource
	roles   *RoleCache
	catalog ActiveCodeSource
	logger  *slog.Logger
}

func NewGuard(users UserRoleSource, roles *RoleCache, catalog ActiveCodeSource, logger *slog.Logger) *Guard {
	return &Guard{
		users:   users,
		roles:   roles,
		catalog: catalog,
		logger:  logger,
	}
}

// RolesFor loads the roles held by userID.
func (g *Guard) RolesFor(ctx context.Context, userID int64) ([]*role.Role, error) {
	ids, err := g.users.GetRoleIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	roles, err := g.roles.Get(ctx, ids)
	if err != nil {
		return nil, internal.NewInternalError("failed to load user roles", err)
	}
	return roles, nil
}

func (g *Guard) GrantsFor(ctx context.Context, userID int64) (Grants, error) {
	roles, err := g.RolesFor(ctx, userID)
	if err != nil {
		return Grants{}, err
	}

	// admin needs no catalog read
	if IsAdmin(roles) {
		return Derive(roles, nil), nil
	}

	active, err := g.catalog.ActiveCodes(ctx)
	if err != nil {
		return Grants{}, err
	}
	return Derive(roles, active), nil
}

// Resolve returns the grants of the authenticated principal.
func (g *Guard) Resolve(ctx context.Context, p *internal.Principal) (Grants, error) {
	if p == nil {
		return Grants{}, internal.ErrUnauthenticated
	}
	grants, err := g.GrantsFor(ctx, p.ID)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok && appErr.Code == internal.ErrCodeUserNotFound {
			// token outlived its user
			return Grants{}, internal.ErrUnauthenticated
		}
		return Grants{}, err
	}
	return grants, nil
}

// Check returns ErrAuthorizationDenied unless the principal holds code.
func (g *Guard) Check(ctx context.Context, p *internal.Principal, code string) error {
	grants, err := g.Resolve(ctx, p)
	if err != nil {
		return err
	}
	if !grants.Has(code) {
		return internal.ErrAuthorizationDenied
	}
	return nil
}
