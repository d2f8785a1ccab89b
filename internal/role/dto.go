package role

type CreateRoleRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Description string   `json:"description" validate:"max=500"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,permcode"`
	IsAdmin     bool     `json:"isAdmin"`
	IsDefault   bool     `json:"isDefault"`
	IsActive    *bool    `json:"active"`
}

// UpdateRoleRequest is a patch: nil fields are left untouched. A present but
// empty permissions array clears the set.
type UpdateRoleRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,permcode"`
	IsAdmin     *bool    `json:"isAdmin"`
	IsDefault   *bool    `json:"isDefault"`
	IsActive    *bool    `json:"active"`
}

type BulkDeleteRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
}

type RolesResponse struct {
	Roles []*Role `json:"roles"`
}

type BulkDeleteItem struct {
	RoleID  int64  `json:"roleId"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type BulkDeleteResult struct {
	Success int              `json:"success"`
	Failed  int              `json:"failed"`
	Details []BulkDeleteItem `json:"details"`
}
