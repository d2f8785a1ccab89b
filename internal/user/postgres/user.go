package postgres

import (
	"context"
	"errors"
	"time"

	userDatamodel "github.com/frahmantamala/member-management/internal/core/datamodel/user"
	"github.com/frahmantamala/member-management/internal/user"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.RepositoryAPI {
	return &UserRepository{db: db}
}

func (r *UserRepository) first(tx *gorm.DB) (*userDatamodel.User, error) {
	var row userDatamodel.User
	if err := tx.Preload("Roles").First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*userDatamodel.User, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error) {
	return r.first(r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email))
}

func (r *UserRepository) List(ctx context.Context) ([]*userDatamodel.User, error) {
	var rows []*userDatamodel.User
	err := r.db.WithContext(ctx).Preload("Roles").Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *UserRepository) Create(ctx context.Context, u *userDatamodel.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

// ReplaceRoles swaps the whole role set of one user inside a transaction and
// bumps the user's updated_at, so a reader never sees a partial set.
func (r *UserRepository) ReplaceRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&userDatamodel.User{}).
			Where("id = ?", userID).
			Update("updated_at", time.Now())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return user.ErrNotFound
		}

		if err := tx.Where("user_id = ?", userID).Delete(&userDatamodel.UserRole{}).Error; err != nil {
			return err
		}
		if len(roleIDs) == 0 {
			return nil
		}

		links := make([]userDatamodel.UserRole, 0, len(roleIDs))
		for _, id := range roleIDs {
			links = append(links, userDatamodel.UserRole{UserID: userID, RoleID: id})
		}
		return tx.Create(&links).Error
	})
}

// RemoveRole deletes a single link and reports whether one existed.
func (r *UserRepository) RemoveRole(ctx context.Context, userID, roleID int64) (bool, error) {
	var removed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&userDatamodel.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return user.ErrNotFound
		}

		res := tx.Where("user_id = ? AND role_id = ?", userID, roleID).Delete(&userDatamodel.UserRole{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected > 0
		if removed {
			return tx.Model(&userDatamodel.User{}).Where("id = ?", userID).Update("updated_at", time.Now()).Error
		}
		return nil
	})
	return removed, err
}
