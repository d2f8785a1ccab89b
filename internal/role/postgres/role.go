package postgres

import (
	"context"
	"errors"
	"time"

	roleDatamodel "github.com/frahmantamala/member-management/internal/core/datamodel/role"
	userDatamodel "github.com/frahmantamala/member-management/internal/core/datamodel/user"
	"github.com/frahmantamala/member-management/internal/role"
	"gorm.io/gorm"
)

type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) role.RepositoryAPI {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) query(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Permissions")
}

func (r *RoleRepository) first(tx *gorm.DB) (*roleDatamodel.Role, error) {
	var row roleDatamodel.Role
	if err := tx.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *RoleRepository) GetAll(ctx context.Context, includeInactive bool) ([]*roleDatamodel.Role, error) {
	var rows []*roleDatamodel.Role
	tx := r.query(ctx).Order("name ASC")
	if !includeInactive {
		tx = tx.Where("is_active = ?", true)
	}
	err := tx.Find(&rows).Error
	return rows, err
}

func (r *RoleRepository) GetByID(ctx context.Context, id int64) (*roleDatamodel.Role, error) {
	return r.first(r.query(ctx).Where("id = ?", id))
}

func (r *RoleRepository) GetByIDs(ctx context.Context, ids []int64) ([]*roleDatamodel.Role, error) {
	var rows []*roleDatamodel.Role
	err := r.query(ctx).Where("id IN ?", ids).Order("id ASC").Find(&rows).Error
	return rows, err
}

// GetByName matches exactly; role names are case-sensitive.
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*roleDatamodel.Role, error) {
	return r.first(r.query(ctx).Where("name = ?", name))
}

func (r *RoleRepository) GetAdmin(ctx context.Context) (*roleDatamodel.Role, error) {
	return r.first(r.query(ctx).Where("is_admin = ? AND name = ?", true, role.AdminRoleName))
}

func (r *RoleRepository) GetDefaults(ctx context.Context) ([]*roleDatamodel.Role, error) {
	var rows []*roleDatamodel.Role
	err := r.query(ctx).Where("is_default = ? AND is_active = ?", true, true).Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *RoleRepository) CountAdmins(ctx context.Context, excludeID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&roleDatamodel.Role{}).
		Where("is_admin = ? AND id <> ?", true, excludeID).
		Count(&n).Error
	return n, err
}

func (r *RoleRepository) CountUsers(ctx context.Context, roleID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&userDatamodel.UserRole{}).
		Where("role_id = ?", roleID).
		Count(&n).Error
	return n, err
}

func (r *RoleRepository) Create(ctx context.Context, row *roleDatamodel.Role) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// Update rewrites the role columns and replaces its permission set in one
// transaction.
func (r *RoleRepository) Update(ctx context.Context, row *roleDatamodel.Role) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&roleDatamodel.Role{}).
			Where("id = ?", row.ID).
			Updates(map[string]interface{}{
				"name":        row.Name,
				"description": row.Description,
				"is_admin":    row.IsAdmin,
				"is_default":  row.IsDefault,
				"is_active":   row.IsActive,
				"updated_at":  time.Now(),
			}).Error
		if err != nil {
			return err
		}

		if err := tx.Where("role_id = ?", row.ID).Delete(&roleDatamodel.RolePermission{}).Error; err != nil {
			return err
		}

		if len(row.Permissions) == 0 {
			return nil
		}
		perms := make([]roleDatamodel.RolePermission, 0, len(row.Permissions))
		for _, p := range row.Permissions {
			perms = append(perms, roleDatamodel.RolePermission{RoleID: row.ID, PermissionCode: p.PermissionCode})
		}
		return tx.Create(&perms).Error
	})
}

func (r *RoleRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&roleDatamodel.RolePermission{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&roleDatamodel.Role{}).Error
	})
}
