package postgres

import (
	"context"
	"errors"

	permissionDatamodel "github.com/frahmantamala/member-management/internal/core/datamodel/permission"
	"github.com/frahmantamala/member-management/internal/permission"
	"gorm.io/gorm"
)

type PermissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) permission.RepositoryAPI {
	return &PermissionRepository{db: db}
}

func (r *PermissionRepository) GetAll(ctx context.Context) ([]*permissionDatamodel.Permission, error) {
	var rows []*permissionDatamodel.Permission
	err := r.db.WithContext(ctx).Order("module ASC, code ASC").Find(&rows).Error
	return rows, err
}

func (r *PermissionRepository) GetByCode(ctx context.Context, code string) (*permissionDatamodel.Permission, error) {
	var row permissionDatamodel.Permission
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *PermissionRepository) GetByModule(ctx context.Context, module string) ([]*permissionDatamodel.Permission, error) {
	var rows []*permissionDatamodel.Permission
	err := r.db.WithContext(ctx).Where("module = ?", module).Order("code ASC").Find(&rows).Error
	return rows, err
}

func (r *PermissionRepository) GetActive(ctx context.Context) ([]*permissionDatamodel.Permission, error) {
	var rows []*permissionDatamodel.Permission
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("module ASC, code ASC").Find(&rows).Error
	return rows, err
}

func (r *PermissionRepository) GetModules(ctx context.Context) ([]string, error) {
	var modules []string
	err := r.db.WithContext(ctx).
		Model(&permissionDatamodel.Permission{}).
		Distinct().
		Order("module ASC").
		Pluck("module", &modules).Error
	return modules, err
}

func (r *PermissionRepository) Create(ctx context.Context, p *permissionDatamodel.Permission) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// Update rewrites the descriptive columns only; is_active has its own path.
func (r *PermissionRepository) Update(ctx context.Context, p *permissionDatamodel.Permission) error {
	return r.db.WithContext(ctx).
		Model(&permissionDatamodel.Permission{}).
		Where("code = ?", p.Code).
		Updates(map[string]interface{}{
			"name":        p.Name,
			"module":      p.Module,
			"action":      p.Action,
			"description": p.Description,
		}).Error
}

func (r *PermissionRepository) SetActive(ctx context.Context, code string, active bool) error {
	return r.db.WithContext(ctx).
		Model(&permissionDatamodel.Permission{}).
		Where("code = ?", code).
		Update("is_active", active).Error
}
