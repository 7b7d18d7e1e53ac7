package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"ytempire/internal/entity"
	"ytempire/internal/repository"
	"ytempire/internal/utils"

	"github.com/google/uuid"
)

type userRepository struct {
	store *Store
}

func (r *userRepository) CreateWithRawPassword(_ context.Context, user *entity.User, rawPassword string) error {
	hash, err := r.store.hasher.Hash(rawPassword)
	if err != nil {
		return err
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Email = utils.NormalizeEmail(user.Email)
	for _, existing := range s.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return repository.ErrDuplicate
		}
	}

	now := time.Now()
	user.PasswordHash = hash
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.AccountStatus == "" {
		user.AccountStatus = entity.AccountStatusActive
	}
	if user.SubscriptionTier == "" {
		user.SubscriptionTier = entity.SubscriptionFree
	}
	user.CreatedAt, user.UpdatedAt = now, now
	s.users[user.ID] = copyUser(user)

	if user.Profile != nil {
		profile := *user.Profile
		if profile.ID == uuid.Nil {
			profile.ID = uuid.New()
		}
		profile.AccountID = user.ID
		profile.CreatedAt, profile.UpdatedAt = now, now
		s.profiles[user.ID] = &profile
		user.Profile.ID = profile.ID
		user.Profile.AccountID = user.ID
	}
	return nil
}

func (r *userRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if user, ok := r.store.users[id]; ok {
		return copyUser(user), nil
	}
	return nil, nil
}

func (r *userRepository) FindByIDWithProfile(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := r.FindByID(ctx, id)
	if err != nil || user == nil {
		return user, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if profile, ok := r.store.profiles[id]; ok {
		clone := *profile
		user.Profile = &clone
	}
	return user, nil
}

func (r *userRepository) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	email = utils.NormalizeEmail(email)
	return r.find(func(u *entity.User) bool { return u.Email == email }), nil
}

func (r *userRepository) FindByUsername(_ context.Context, username string) (*entity.User, error) {
	username = strings.TrimSpace(username)
	return r.find(func(u *entity.User) bool { return u.Username == username }), nil
}

func (r *userRepository) FindByEmailOrUsername(_ context.Context, identifier string) (*entity.User, error) {
	email := utils.NormalizeEmail(identifier)
	username := strings.TrimSpace(identifier)
	return r.find(func(u *entity.User) bool { return u.Email == email || u.Username == username }), nil
}

func (r *userRepository) ValidatePassword(user *entity.User, candidate string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	return r.store.hasher.Verify(user.PasswordHash, candidate)
}

func (r *userRepository) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	return r.mutate(id, func(u *entity.User) { u.PasswordHash = hash })
}

func (r *userRepository) RecordLogin(_ context.Context, id uuid.UUID, at time.Time, ip *string) error {
	return r.mutate(id, func(u *entity.User) {
		u.LastLoginAt = &at
		u.LastLoginIP = ip
	})
}

func (r *userRepository) UpdateSettings(ctx context.Context, id uuid.UUID, update repository.SettingsUpdate) (*entity.User, error) {
	s := r.store
	s.mu.Lock()
	user, ok := s.users[id]
	if !ok {
		s.mu.Unlock()
		return nil, nil
	}
	var email, username string
	if update.Email != nil {
		email = utils.NormalizeEmail(*update.Email)
	}
	if update.Username != nil {
		username = strings.TrimSpace(*update.Username)
	}
	for otherID, other := range s.users {
		if otherID == id {
			continue
		}
		if (email != "" && other.Email == email) || (username != "" && other.Username == username) {
			s.mu.Unlock()
			return nil, repository.ErrDuplicate
		}
	}
	if update.Email != nil {
		user.Email = email
		user.EmailVerified = false
	}
	if update.Username != nil {
		user.Username = username
	}
	if update.TwoFactorEnabled != nil {
		user.TwoFactorEnabled = *update.TwoFactorEnabled
	}
	user.UpdatedAt = time.Now()
	s.mu.Unlock()
	return r.FindByID(ctx, id)
}

func (r *userRepository) UpdateStatus(_ context.Context, id uuid.UUID, status entity.AccountStatus) error {
	return r.mutate(id, func(u *entity.User) { u.AccountStatus = status })
}

func (r *userRepository) List(_ context.Context, filter repository.UserFilter) ([]entity.User, int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]entity.User, 0, len(r.store.users))
	for _, user := range r.store.users {
		if search != "" && !strings.Contains(strings.ToLower(user.Email), search) && !strings.Contains(strings.ToLower(user.Username), search) {
			continue
		}
		if filter.AccountType != "" && user.AccountType != filter.AccountType {
			continue
		}
		if filter.Status != "" && user.AccountStatus != filter.Status {
			continue
		}
		matched = append(matched, *copyUser(user))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := filter.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if filter.Limit > 0 && filter.Limit < end-start {
		end = start + filter.Limit
	}
	return matched[start:end], total, nil
}

func (r *userRepository) find(match func(*entity.User) bool) *entity.User {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, user := range r.store.users {
		if match(user) {
			return copyUser(user)
		}
	}
	return nil
}

func (r *userRepository) mutate(id uuid.UUID, fn func(*entity.User)) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if user, ok := r.store.users[id]; ok {
		fn(user)
		user.UpdatedAt = time.Now()
	}
	return nil
}
