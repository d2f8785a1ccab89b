package role

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/frahmantamala/member-management/internal"
	roleDatamodel "github.com/frahmantamala/member-management/internal/core/datamodel/role"
	"github.com/frahmantamala/member-management/internal/core/events"
	"github.com/frahmantamala/member-management/internal/permission"
)

type RepositoryAPI interface {
	GetAll(ctx context.Context, includeInactive bool) ([]*roleDatamodel.Role, error)
	GetByID(ctx context.Context, id int64) (*roleDatamodel.Role, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*roleDatamodel.Role, error)
	GetByName(ctx context.Context, name string) (*roleDatamodel.Role, error)
	GetAdmin(ctx context.Context) (*roleDatamodel.Role, error)
	GetDefaults(ctx context.Context) ([]*roleDatamodel.Role, error)
	CountAdmins(ctx context.Context, excludeID int64) (int64, error)
	CountUsers(ctx context.Context, roleID int64) (int64, error)
	Create(ctx context.Context, r *roleDatamodel.Role) error
	Update(ctx context.Context, r *roleDatamodel.Role) error
	Delete(ctx context.Context, id int64) error
}

// PermissionCatalog is the slice of the permission service roles validate against.
type PermissionCatalog interface {
	KnownCodes(ctx context.Context) (permission.CodeSet, error)
}

type Service struct {
	repo    RepositoryAPI
	catalog PermissionCatalog
	bus     events.Publisher
	logger  *slog.Logger
}

func NewService(repo RepositoryAPI, catalog PermissionCatalog, bus events.Publisher, logger *slog.Logger) *Service {
	if bus == nil {
		bus = events.Nop{}
	}
	return &Service{
		repo:    repo,
		catalog: catalog,
		bus:     bus,
		logger:  logger,
	}
}

func (s *Service) Create(ctx context.Context, req CreateRoleRequest, actorID *int64) (*Role, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, internal.NewValidationFieldError("name", "name is required", internal.ErrCodeValidationFailed)
	}

	codes, err := s.checkCodes(ctx, req.Permissions)
	if err != nil {
		return nil, err
	}

	if err := s.ensureNameFree(ctx, name, 0); err != nil {
		return nil, err
	}

	if req.IsAdmin {
		if err := s.ensureSingleAdmin(ctx, 0); err != nil {
			return nil, err
		}
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	r := &Role{
		Name:        name,
		Description: req.Description,
		Permissions: codes,
		IsAdmin:     req.IsAdmin,
		IsDefault:   req.IsDefault,
		IsActive:    active,
	}
	row := ToDataModel(r)
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, internal.NewInternalError("failed to create role", err)
	}

	created := FromDataModel(row)
	s.logger.Info("role created", "role_id", created.ID, "name", created.Name, "is_admin", created.IsAdmin)
	s.publish(ctx, events.NewRoleChangedEvent(events.EventTypeRoleCreated, created.ID, created.Name, actorID))
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateRoleRequest, actorID *int64) (*Role, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := current.Clone()

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name != current.Name {
			if current.IsProtectedAdmin() {
				return nil, internal.ErrProtectedRoleRename
			}
			if name == "" {
				return nil, internal.NewValidationFieldError("name", "name is required", internal.ErrCodeValidationFailed)
			}
			if err := s.ensureNameFree(ctx, name, id); err != nil {
				return nil, err
			}
			updated.Name = name
		}
	}

	if req.Description != nil {
		updated.Description = *req.Description
	}

	if req.Permissions != nil {
		codes, err := s.checkCodes(ctx, req.Permissions)
		if err != nil {
			return nil, err
		}
		updated.Permissions = codes
	}

	if req.IsAdmin != nil && *req.IsAdmin != current.IsAdmin {
		if current.IsProtectedAdmin() {
			return nil, internal.ErrProtectedRoleUpdate
		}
		if *req.IsAdmin {
			if err := s.ensureSingleAdmin(ctx, id); err != nil {
				return nil, err
			}
		}
		updated.IsAdmin = *req.IsAdmin
	}

	if req.IsDefault != nil {
		updated.IsDefault = *req.IsDefault
	}

	if req.IsActive != nil && *req.IsActive != current.IsActive {
		if current.IsProtectedAdmin() && !*req.IsActive {
			return nil, internal.ErrProtectedRoleUpdate.WithMessage("the Admin role cannot be deactivated")
		}
		updated.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, ToDataModel(updated)); err != nil {
		return nil, internal.NewInternalError("failed to update role", err)
	}

	s.logger.Info("role updated", "role_id", id, "name", updated.Name)
	s.publish(ctx, events.NewRoleChangedEvent(events.EventTypeRoleUpdated, id, updated.Name, actorID))
	return s.GetByID(ctx, id)
}

// RemovePermission drops one code from a role through the regular update path.
func (s *Service) RemovePermission(ctx context.Context, id int64, code string, actorID *int64) (*Role, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.HasPermission(code) {
		return nil, internal.NewValidationError(
			fmt.Sprintf("role %q does not hold permission %s", current.Name, code),
			internal.ErrCodeValidationFailed)
	}

	remaining := make([]string, 0, len(current.Permissions))
	for _, p := range current.Permissions {
		if p != code {
			remaining = append(remaining, p)
		}
	}
	return s.Update(ctx, id, UpdateRoleRequest{Permissions: remaining}, actorID)
}

func (s *Service) Delete(ctx context.Context, id int64, actorID *int64) error {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if current.IsAdmin || current.IsDefault {
		return internal.ErrProtectedRoleDelete
	}

	count, err := s.repo.CountUsers(ctx, id)
	if err != nil {
		return internal.NewInternalError("failed to count role users", err)
	}
	if count > 0 {
		return internal.ErrRoleInUse.
			WithMessage(fmt.Sprintf("role is assigned to %d user(s)", count)).
			WithDetails(map[string]int64{"count": count})
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return internal.NewInternalError("failed to delete role", err)
	}

	s.logger.Info("role deleted", "role_id", id, "name", current.Name)
	s.publish(ctx, events.NewRoleChangedEvent(events.EventTypeRoleDeleted, id, current.Name, actorID))
	return nil
}

// BulkDelete deletes each role independently; one failure never stops the rest.
func (s *Service) BulkDelete(ctx context.Context, ids []int64, actorID *int64) *BulkDeleteResult {
	result := &BulkDeleteResult{Details: make([]BulkDeleteItem, 0, len(ids))}
	for _, id := range UniqueIDs(ids) {
		item := BulkDeleteItem{RoleID: id, Success: true}
		if err := s.Delete(ctx, id, actorID); err != nil {
			item.Success = false
			item.Error = errorMessage(err)
			result.Failed++
		} else {
			result.Success++
		}
		result.Details = append(result.Details, item)
	}
	return result
}

func (s *Service) ListActive(ctx context.Context) ([]*Role, error) {
	rows, err := s.repo.GetAll(ctx, false)
	if err != nil {
		return nil, internal.NewInternalError("failed to list roles", err)
	}
	return fromDataModels(rows), nil
}

func (s *Service) ListAll(ctx context.Context) ([]*Role, error) {
	rows, err := s.repo.GetAll(ctx, true)
	if err != nil {
		return nil, internal.NewInternalError("failed to list roles", err)
	}
	return fromDataModels(rows), nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Role, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load role", err)
	}
	if row == nil {
		return nil, internal.ErrRoleNotFound
	}
	return FromDataModel(row), nil
}

// GetByIDs returns the roles that exist among ids; callers compare lengths
// to detect unknown ids.
func (s *Service) GetByIDs(ctx context.Context, ids []int64) ([]*Role, error) {
	if len(ids) == 0 {
		return []*Role{}, nil
	}
	rows, err := s.repo.GetByIDs(ctx, UniqueIDs(ids))
	if err != nil {
		return nil, internal.NewInternalError("failed to load roles", err)
	}
	return fromDataModels(rows), nil
}

// GetAdminRole returns the protected Admin role or ErrAdminRoleMissing.
func (s *Service) GetAdminRole(ctx context.Context) (*Role, error) {
	row, err := s.repo.GetAdmin(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to load admin role", err)
	}
	if row == nil {
		return nil, internal.ErrAdminRoleMissing
	}
	return FromDataModel(row), nil
}

func (s *Service) GetDefaultRoles(ctx context.Context) ([]*Role, error) {
	rows, err := s.repo.GetDefaults(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to load default roles", err)
	}
	return fromDataModels(rows), nil
}

func (s *Service) checkCodes(ctx context.Context, codes []string) ([]string, error) {
	codes = uniqueCodes(codes)
	if len(codes) == 0 {
		return codes, nil
	}
	known, err := s.catalog.KnownCodes(ctx)
	if err != nil {
		return nil, err
	}
	if missing := known.Missing(codes); len(missing) > 0 {
		return nil, internal.ErrUnknownPermission.WithDetails(map[string][]string{"codes": missing})
	}
	return codes, nil
}

func (s *Service) ensureNameFree(ctx context.Context, name string, selfID int64) error {
	existing, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return internal.NewInternalError("failed to check role name", err)
	}
	if existing != nil && existing.ID != selfID {
		return internal.ErrDuplicateName.WithMessage(fmt.Sprintf("role name %q already exists", name))
	}
	return nil
}

func (s *Service) ensureSingleAdmin(ctx context.Context, selfID int64) error {
	n, err := s.repo.CountAdmins(ctx, selfID)
	if err != nil {
		return internal.NewInternalError("failed to count admin roles", err)
	}
	if n > 0 {
		return internal.ErrAdminRoleExists
	}
	return nil
}

func (s *Service) publish(ctx context.Context, evt events.Event) {
	if err := s.bus.PublishSync(ctx, evt); err != nil {
		s.logger.Warn("role event subscribers failed", "event_type", evt.EventType(), "error", err)
	}
}

func errorMessage(err error) string {
	if appErr, ok := internal.IsAppError(err); ok {
		return appErr.GetDetailedMessage()
	}
	return err.Error()
}
