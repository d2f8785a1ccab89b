package role

import (
	"sort"
	"time"

	roleDatamodel "github.com/frahmantamala/member-management/internal/core/datamodel/role"
)

// AdminRoleName together with IsAdmin marks the protected Admin role.
const AdminRoleName = "Admin"

type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Permissions []string  `json:"permissions"`
	IsAdmin     bool      `json:"isAdmin"`
	IsDefault   bool      `json:"isDefault"`
	IsActive    bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// IsProtectedAdmin reports whether r is the distinguished Admin role, which
// can be neither renamed nor deleted.
func (r *Role) IsProtectedAdmin() bool {
	return r.IsAdmin && r.Name == AdminRoleName
}

func (r *Role) HasPermission(code string) bool {
	for _, p := range r.Permissions {
		if p == code {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so cached roles are never mutated by callers.
func (r *Role) Clone() *Role {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Permissions = append([]string(nil), r.Permissions...)
	return &cp
}

// Ref is the single normalized role reference: an id plus an optional
// resolved snapshot.
type Ref struct {
	ID   int64 `json:"id"`
	Role *Role `json:"role,omitempty"`
}

func RefOf(r *Role) Ref {
	return Ref{ID: r.ID, Role: r}
}

func RefsOf(roles []*Role) []Ref {
	out := make([]Ref, 0, len(roles))
	for _, r := range roles {
		out = append(out, RefOf(r))
	}
	return out
}

func RefIDs(refs []Ref) []int64 {
	out := make([]int64, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ref.ID)
	}
	return out
}

// Resolved returns the snapshots carried by refs, skipping unresolved ones.
func Resolved(refs []Ref) []*Role {
	out := make([]*Role, 0, len(refs))
	for _, ref := range refs {
		if ref.Role != nil {
			out = append(out, ref.Role)
		}
	}
	return out
}

// UniqueIDs removes duplicates while keeping first-seen order.
func UniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// MissingIDs returns the ids in want that no role in found carries.
func MissingIDs(want []int64, found []*Role) []int64 {
	have := make(map[int64]struct{}, len(found))
	for _, r := range found {
		have[r.ID] = struct{}{}
	}
	var out []int64
	for _, id := range want {
		if _, ok := have[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func uniqueCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func ToDataModel(r *Role) *roleDatamodel.Role {
	perms := make([]roleDatamodel.RolePermission, 0, len(r.Permissions))
	for _, code := range r.Permissions {
		perms = append(perms, roleDatamodel.RolePermission{RoleID: r.ID, PermissionCode: code})
	}
	return &roleDatamodel.Role{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		IsAdmin:     r.IsAdmin,
		IsDefault:   r.IsDefault,
		IsActive:    r.IsActive,
		Permissions: perms,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func FromDataModel(r *roleDatamodel.Role) *Role {
	codes := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		codes = append(codes, p.PermissionCode)
	}
	sort.Strings(codes)
	return &Role{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Permissions: codes,
		IsAdmin:     r.IsAdmin,
		IsDefault:   r.IsDefault,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func fromDataModels(rows []*roleDatamodel.Role) []*Role {
	out := make([]*Role, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromDataModel(r))
	}
	return out
}
