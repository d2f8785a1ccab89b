package user

type CreateUserRequest struct {
	Email    string  `json:"email" validate:"required,email,max=255"`
	Name     string  `json:"name" validate:"required,max=100"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	RoleIDs  []int64 `json:"roleIds" validate:"omitempty,dive,gt=0"`
}

type UsersResponse struct {
	Users []*User `json:"users"`
}
