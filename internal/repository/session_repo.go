package repository

import (
	"context"
	"errors"
	"time"

	"ytempire/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionRepository stores bearer sessions keyed by token digest. Lookups do
// not filter by expiry; callers decide what an expired row means. Only
// Authenticate turns an expired session inactive.
type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	FindActiveByToken(ctx context.Context, tokenHash string, accountID uuid.UUID) (*entity.Session, error)
	Invalidate(ctx context.Context, sessionID uuid.UUID) error
	RotateToken(ctx context.Context, sessionID uuid.UUID, oldHash string, newHash string, expiresAt time.Time) error
	RevokeAllByAccount(ctx context.Context, accountID uuid.UUID) error
	PurgeClosed(ctx context.Context, before time.Time) (int64, error)
}

type sessionRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewSessionRepository(db *gorm.DB, timeout time.Duration) SessionRepository {
	return &sessionRepository{db: db, timeout: timeout}
}

func (r *sessionRepository) Create(ctx context.Context, s *entity.Session) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.IsActive = true
	return translate(r.db.WithContext(ctx).Create(s).Error)
}

func (r *sessionRepository) FindActiveByToken(ctx context.Context, tokenHash string, accountID uuid.UUID) (*entity.Session, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var session entity.Session
	err := r.db.WithContext(ctx).
		Where("session_token = ? AND account_id = ? AND is_active = ?", tokenHash, accountID, true).
		First(&session).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) Invalidate(ctx context.Context, sessionID uuid.UUID) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	return r.db.WithContext(ctx).
		Model(&entity.Session{}).
		Where("session_id = ?", sessionID).
		Update("is_active", false).
		Error
}

func (r *sessionRepository) RotateToken(ctx context.Context, sessionID uuid.UUID, oldHash string, newHash string, expiresAt time.Time) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	result := r.db.WithContext(ctx).
		Model(&entity.Session{}).
		Where("session_id = ? AND session_token = ? AND is_active = ?", sessionID, oldHash, true).
		Updates(map[string]any{"session_token": newHash, "expires_at": expiresAt})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrStaleSession
	}
	return nil
}

func (r *sessionRepository) RevokeAllByAccount(ctx context.Context, accountID uuid.UUID) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	return r.db.WithContext(ctx).
		Model(&entity.Session{}).
		Where("account_id = ? AND is_active = ?", accountID, true).
		Update("is_active", false).
		Error
}

// PurgeClosed deletes inactive sessions last touched before before. Active
// rows are never considered, expired or not, so refresh keeps working.
func (r *sessionRepository) PurgeClosed(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	result := r.db.WithContext(ctx).
		Where("is_active = ? AND updated_at < ?", false, before).
		Delete(&entity.Session{})
	return result.RowsAffected, result.Error
}
