package permission

type SyncRequest struct {
	Definitions []Definition `json:"definitions,omitempty" validate:"omitempty,dive"`
}

type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type PermissionsResponse struct {
	Permissions []*Permission `json:"permissions"`
}

type ModulesResponse struct {
	Modules []string `json:"modules"`
}
