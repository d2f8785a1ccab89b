package assignment

// AssignRolesRequest replaces the user's roles. An empty list clears them,
// except for the Admin role of the system administrator.
type AssignRolesRequest struct {
	RoleIDs     []int64 `json:"roleIds" validate:"required,dive,gt=0"`
	SkipRefresh bool    `json:"skipRefresh"`
	SkipNotify  bool    `json:"skipNotify"`
}

type BulkAssignRequest struct {
	UserIDs []int64 `json:"userIds" validate:"required,min=1,dive,gt=0"`
	RoleIDs []int64 `json:"roleIds" validate:"required,dive,gt=0"`
}
