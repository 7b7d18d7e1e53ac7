package memory

import (
	"context"
	"time"

	"ytempire/internal/entity"
	"ytempire/internal/repository"

	"github.com/google/uuid"
)

type sessionRepository struct {
	store *Store
}

func (r *sessionRepository) Create(_ context.Context, session *entity.Session) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.sessions {
		if existing.TokenHash == session.TokenHash {
			return repository.ErrDuplicate
		}
	}
	now := time.Now()
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	session.IsActive = true
	session.CreatedAt, session.UpdatedAt = now, now
	clone := *session
	r.store.sessions[session.ID] = &clone
	return nil
}

func (r *sessionRepository) FindActiveByToken(_ context.Context, tokenHash string, accountID uuid.UUID) (*entity.Session, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, session := range r.store.sessions {
		if session.IsActive && session.TokenHash == tokenHash && session.AccountID == accountID {
			clone := *session
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *sessionRepository) Invalidate(_ context.Context, sessionID uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if session, ok := r.store.sessions[sessionID]; ok {
		session.IsActive = false
		session.UpdatedAt = time.Now()
	}
	return nil
}

func (r *sessionRepository) RotateToken(_ context.Context, sessionID uuid.UUID, oldHash string, newHash string, expiresAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	session, ok := r.store.sessions[sessionID]
	if !ok || !session.IsActive || session.TokenHash != oldHash {
		return repository.ErrStaleSession
	}
	session.TokenHash = newHash
	session.ExpiresAt = expiresAt
	session.UpdatedAt = time.Now()
	return nil
}

func (r *sessionRepository) RevokeAllByAccount(_ context.Context, accountID uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, session := range r.store.sessions {
		if session.AccountID == accountID && session.IsActive {
			session.IsActive = false
			session.UpdatedAt = time.Now()
		}
	}
	return nil
}

func (r *sessionRepository) PurgeClosed(_ context.Context, before time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var purged int64
	for id, session := range r.store.sessions {
		if !session.IsActive && session.UpdatedAt.Before(before) {
			delete(r.store.sessions, id)
			purged++
		}
	}
	return purged, nil
}
