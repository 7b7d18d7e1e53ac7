package repository

import (
	"context"
	"time"

	"ytempire/internal/entity"

	"gorm.io/gorm"
)

type AuditLogRepository interface {
	Log(ctx context.Context, entry *entity.AuditLog) error
}

type auditLogRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewAuditLogRepository(db *gorm.DB, timeout time.Duration) AuditLogRepository {
	return &auditLogRepository{db: db, timeout: timeout}
}

func (r *auditLogRepository) Log(ctx context.Context, entry *entity.AuditLog) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	return r.db.WithContext(ctx).Create(entry).Error
}
