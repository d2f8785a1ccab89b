package role

import "time"

type Role struct {
	ID          int64            `gorm:"primaryKey"`
	Name        string           `gorm:"column:name;uniqueIndex;not null"`
	Description string           `gorm:"column:description"`
	IsAdmin     bool             `gorm:"column:is_admin;not null"`
	IsDefault   bool             `gorm:"column:is_default;not null"`
	IsActive    bool             `gorm:"column:is_active;not null"`
	Permissions []RolePermission `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (Role) TableName() string {
	return "roles"
}

type RolePermission struct {
	RoleID         int64     `gorm:"column:role_id;primaryKey"`
	PermissionCode string    `gorm:"column:permission_code;primaryKey;size:100"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (RolePermission) TableName() string {
	return "role_permissions"
}
