package permission

import "time"

type Permission struct {
	Code        string    `gorm:"column:code;primaryKey;size:100"`
	Name        string    `gorm:"column:name;not null"`
	Module      string    `gorm:"column:module;index;not null"`
	Action      string    `gorm:"column:action;not null"`
	Description string    `gorm:"column:description"`
	IsActive    bool      `gorm:"column:is_active;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Permission) TableName() string {
	return "permissions"
}
