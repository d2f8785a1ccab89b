package postgres

import (
	"context"

	"github.com/frahmantamala/member-management/internal/audit"
	auditDatamodel "github.com/frahmantamala/member-management/internal/core/datamodel/audit"
	"gorm.io/gorm"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) audit.RepositoryAPI {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, row *auditDatamodel.AuditLog) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]*auditDatamodel.AuditLog, error) {
	var rows []*auditDatamodel.AuditLog
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
