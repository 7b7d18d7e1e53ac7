// Package memory keeps users, profiles, sessions and audit entries in process
// memory behind the repository interfaces. It backs STORE_DRIVER=memory and
// the service and API tests.
package memory

import (
	"sync"

	"ytempire/internal/entity"
	"ytempire/internal/repository"
	"ytempire/internal/utils"

	"github.com/google/uuid"
)

type Store struct {
	mu       sync.RWMutex
	hasher   utils.PasswordHasher
	users    map[uuid.UUID]*entity.User
	profiles map[uuid.UUID]*entity.Profile
	sessions map[uuid.UUID]*entity.Session
	audit    []entity.AuditLog
}

func NewStore(hasher utils.PasswordHasher) *Store {
	if hasher == nil {
		hasher = utils.BcryptPasswordHasher{}
	}
	return &Store{
		hasher:   hasher,
		users:    make(map[uuid.UUID]*entity.User),
		profiles: make(map[uuid.UUID]*entity.Profile),
		sessions: make(map[uuid.UUID]*entity.Session),
	}
}

func (s *Store) Users() repository.UserRepository {
	return &userRepository{store: s}
}

func (s *Store) Profiles() repository.ProfileRepository {
	return &profileRepository{store: s}
}

func (s *Store) Sessions() repository.SessionRepository {
	return &sessionRepository{store: s}
}

func (s *Store) AuditLogs() repository.AuditLogRepository {
	return &auditLogRepository{store: s}
}

// AuditEntries returns a snapshot of everything logged so far.
func (s *Store) AuditEntries() []entity.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.AuditLog, len(s.audit))
	copy(out, s.audit)
	return out
}

// SessionByID returns a copy of the stored session row, active or not.
func (s *Store) SessionByID(id uuid.UUID) (entity.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return entity.Session{}, false
	}
	return *session, true
}

// SessionsFor returns copies of every session row owned by accountID.
func (s *Store) SessionsFor(accountID uuid.UUID) []entity.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []entity.Session
	for _, session := range s.sessions {
		if session.AccountID == accountID {
			out = append(out, *session)
		}
	}
	return out
}

// MutateSession edits a stored row in place, bypassing the repository rules.
func (s *Store) MutateSession(id uuid.UUID, fn func(*entity.Session)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if ok {
		fn(session)
	}
	return ok
}

func (s *Store) UserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func copyUser(u *entity.User) *entity.User {
	clone := *u
	clone.Profile = nil
	clone.Sessions = nil
	return &clone
}
