package authz

import (
	"github.com/frahmantamala/member-management/internal/permission"
	"github.com/frahmantamala/member-management/internal/role"
)

// Grants is the resolved permission view of one user. The server derives it
// from role data; the client rebuilds it from the permissions endpoint. Both
// answer through Has.
type Grants struct {
	Admin bool
	codes permission.CodeSet
}

func NewGrants(admin bool, codes []string) Grants {
	return Grants{Admin: admin, codes: permission.NewCodeSet(codes...)}
}

// Has is the single decision procedure: admins hold every code, everyone
// else holds what their roles list.
func (g Grants) Has(code string) bool {
	if g.Admin {
		return true
	}
	return g.codes.Contains(code)
}

// Codes returns the explicit codes in sorted order.
func (g Grants) Codes() []string {
	return g.codes.Sorted()
}

// Derive folds roles into Grants. An isAdmin role short-circuits everything,
// whether or not the role is active. Otherwise only active roles contribute,
// and only codes present in active do: unknown or disabled codes never grant.
// A nil active set grants nothing explicit.
func Derive(roles []*role.Role, active permission.CodeSet) Grants {
	if IsAdmin(roles) {
		return Grants{Admin: true, codes: permission.NewCodeSet()}
	}

	codes := permission.NewCodeSet()
	for _, r := range roles {
		if r == nil || !r.IsActive {
			continue
		}
		for _, c := range r.Permissions {
			if active.Contains(c) {
				codes[c] = struct{}{}
			}
		}
	}
	return Grants{codes: codes}
}

// IsGranted answers a single check over roles.
func IsGranted(roles []*role.Role, code string, active permission.CodeSet) bool {
	return Derive(roles, active).Has(code)
}

// IsAdmin reports whether any role carries the admin flag.
func IsAdmin(roles []*role.Role) bool {
	for _, r := range roles {
		if r != nil && r.IsAdmin {
			return true
		}
	}
	return false
}
