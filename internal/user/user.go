package user

import (
	"errors"
	"strings"
	"time"

	userDatamodel "github.com/frahmantamala/member-management/internal/core/datamodel/user"
	"github.com/frahmantamala/member-management/internal/role"
)

type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	IsActive     bool       `json:"active"`
	Roles        []role.Ref `json:"roles"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (u *User) RoleIDs() []int64 {
	return role.RefIDs(u.Roles)
}

func (u *User) HasRole(roleID int64) bool {
	for _, ref := range u.Roles {
		if ref.ID == roleID {
			return true
		}
	}
	return false
}

// SameEmail compares addresses the way the system administrator is matched:
// trimmed and case-insensitive.
func SameEmail(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

func ToDataModel(u *User) *userDatamodel.User {
	roles := make([]userDatamodel.UserRole, 0, len(u.Roles))
	for _, ref := range u.Roles {
		roles = append(roles, userDatamodel.UserRole{UserID: u.ID, RoleID: ref.ID})
	}
	return &userDatamodel.User{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		Roles:        roles,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// FromDataModel maps a row to a User with unresolved role refs.
func FromDataModel(u *userDatamodel.User) *User {
	refs := make([]role.Ref, 0, len(u.Roles))
	for _, ur := range u.Roles {
		refs = append(refs, role.Ref{ID: ur.RoleID})
	}
	return &User{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		Roles:        refs,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// ErrNotFound is returned by repositories when the user row is gone.
var ErrNotFound = errors.New("user not found")
