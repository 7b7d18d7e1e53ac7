package memory

import (
	"context"
	"time"

	"ytempire/internal/entity"

	"github.com/google/uuid"
)

type auditLogRepository struct {
	store *Store
}

func (r *auditLogRepository) Log(_ context.Context, entry *entity.AuditLog) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.store.audit = append(r.store.audit, *entry)
	return nil
}
