package repository

import (
	"context"
	"errors"
	"time"

	"ytempire/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProfileUpdate carries the profile fields a caller wants to change; nil
// fields are left untouched.
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	DisplayName *string
	Bio         *string
	AvatarURL   *string
	Timezone    *string
	Language    *string
	CompanyName *string
	WebsiteURL  *string
}

func (u ProfileUpdate) Apply(profile *entity.Profile) {
	if u.FirstName != nil {
		profile.FirstName = u.FirstName
	}
	if u.LastName != nil {
		profile.LastName = u.LastName
	}
	if u.DisplayName != nil {
		profile.DisplayName = *u.DisplayName
	}
	if u.Bio != nil {
		profile.Bio = u.Bio
	}
	if u.AvatarURL != nil {
		profile.AvatarURL = u.AvatarURL
	}
	if u.Timezone != nil {
		profile.Timezone = *u.Timezone
	}
	if u.Language != nil {
		profile.Language = *u.Language
	}
	if u.CompanyName != nil {
		profile.CompanyName = u.CompanyName
	}
	if u.WebsiteURL != nil {
		profile.WebsiteURL = u.WebsiteURL
	}
}

type ProfileRepository interface {
	FindByAccountID(ctx context.Context, accountID uuid.UUID) (*entity.Profile, error)
	Update(ctx context.Context, accountID uuid.UUID, update ProfileUpdate) (*entity.Profile, error)
}

type profileRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewProfileRepository(db *gorm.DB, timeout time.Duration) ProfileRepository {
	return &profileRepository{db: db, timeout: timeout}
}

func (r *profileRepository) FindByAccountID(ctx context.Context, accountID uuid.UUID) (*entity.Profile, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var profile entity.Profile
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&profile).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) Update(ctx context.Context, accountID uuid.UUID, update ProfileUpdate) (*entity.Profile, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var profile entity.Profile
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("account_id = ?", accountID).First(&profile).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			profile = entity.Profile{ID: uuid.New(), AccountID: accountID, Timezone: "UTC", Language: "en"}
			update.Apply(&profile)
			return tx.Create(&profile).Error
		}
		if err != nil {
			return err
		}
		update.Apply(&profile)
		return tx.Save(&profile).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}
