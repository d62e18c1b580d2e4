package repositories

import (
	"context"

	"gorm.io/gorm"

	"liblend/internal/adapters/persistence/models"
)

// AuditLogRepository handles the append-only admin audit trail
type AuditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Append inserts an audit entry. There is no update or delete path.
func (r *AuditLogRepository) Append(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// List lists audit entries newest first, optionally filtered by action
func (r *AuditLogRepository) List(ctx context.Context, action string, offset, limit int) ([]*models.AuditLog, int64, error) {
	var entries []*models.AuditLog
	var total int64

	query := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if action != "" {
		query = query.Where("action = ?", action)
	}

	query.Count(&total)

	err := query.
		Preload("Admin").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&entries).Error

	return entries, total, err
}
