package memory

import (
	"context"
	"time"

	"ytempire/internal/entity"
	"ytempire/internal/repository"

	"github.com/google/uuid"
)

type profileRepository struct {
	store *Store
}

func (r *profileRepository) FindByAccountID(_ context.Context, accountID uuid.UUID) (*entity.Profile, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if profile, ok := r.store.profiles[accountID]; ok {
		clone := *profile
		return &clone, nil
	}
	return nil, nil
}

func (r *profileRepository) Update(_ context.Context, accountID uuid.UUID, update repository.ProfileUpdate) (*entity.Profile, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now()
	profile, ok := r.store.profiles[accountID]
	if !ok {
		profile = &entity.Profile{ID: uuid.New(), AccountID: accountID, Timezone: "UTC", Language: "en", CreatedAt: now}
		r.store.profiles[accountID] = profile
	}
	update.Apply(profile)
	profile.UpdatedAt = now
	clone := *profile
	return &clone, nil
}
