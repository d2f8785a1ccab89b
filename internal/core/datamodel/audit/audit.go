package audit

import "time"

type AuditLog struct {
	ID         string    `gorm:"column:id;primaryKey;size:36"`
	EventID    string    `gorm:"column:event_id;size:36"`
	Action     string    `gorm:"column:action;index;not null"`
	ActorID    *int64    `gorm:"column:actor_id;index"`
	EntityType string    `gorm:"column:entity_type;not null"`
	EntityID   string    `gorm:"column:entity_id"`
	Details    string    `gorm:"column:details"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
