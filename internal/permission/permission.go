package permission

import (
	"sort"
	"time"

	permissionDatamodel "github.com/frahmantamala/member-management/internal/core/datamodel/permission"
)

type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionCustom Action = "custom"
)

func (a Action) Valid() bool {
	switch a {
	case ActionView, ActionCreate, ActionUpdate, ActionDelete, ActionCustom:
		return true
	}
	return false
}

// Permission is one grantable capability. Code is its immutable identity.
type Permission struct {
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Module      string    `json:"module"`
	Action      Action    `json:"action"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CodeSet is an immutable-by-convention set of permission codes. A nil set
// contains nothing.
type CodeSet map[string]struct{}

func NewCodeSet(codes ...string) CodeSet {
	s := make(CodeSet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

func (s CodeSet) Contains(code string) bool {
	_, ok := s[code]
	return ok
}

// Missing returns the codes not present in s, in input order.
func (s CodeSet) Missing(codes []string) []string {
	var out []string
	for _, c := range codes {
		if !s.Contains(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s CodeSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func ToDataModel(p *Permission) *permissionDatamodel.Permission {
	return &permissionDatamodel.Permission{
		Code:        p.Code,
		Name:        p.Name,
		Module:      p.Module,
		Action:      string(p.Action),
		Description: p.Description,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func FromDataModel(p *permissionDatamodel.Permission) *Permission {
	return &Permission{
		Code:        p.Code,
		Name:        p.Name,
		Module:      p.Module,
		Action:      Action(p.Action),
		Description: p.Description,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func fromDataModels(rows []*permissionDatamodel.Permission) []*Permission {
	out := make([]*Permission, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromDataModel(r))
	}
	return out
}
