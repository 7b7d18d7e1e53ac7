package repository

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"ytempire/internal/entity"
	"ytempire/internal/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SettingsUpdate struct {
	Email            *string
	Username         *string
	TwoFactorEnabled *bool
}

type UserFilter struct {
	Page        int
	Limit       int
	Search      string
	AccountType entity.AccountType
	Status      entity.AccountStatus
}

// Offset saturates at math.MaxInt instead of overflowing.
func (f UserFilter) Offset() int {
	if f.Page <= 1 || f.Limit <= 0 {
		return 0
	}
	if f.Page-1 > math.MaxInt/f.Limit {
		return math.MaxInt
	}
	return (f.Page - 1) * f.Limit
}

// UserRepository is the credential store. Raw passwords enter only through
// CreateWithRawPassword; UpdatePasswordHash takes a value that is already hashed.
type UserRepository interface {
	CreateWithRawPassword(ctx context.Context, user *entity.User, rawPassword string) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByIDWithProfile(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
	FindByEmailOrUsername(ctx context.Context, identifier string) (*entity.User, error)
	ValidatePassword(user *entity.User, candidate string) bool
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time, ip *string) error
	UpdateSettings(ctx context.Context, id uuid.UUID, update SettingsUpdate) (*entity.User, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.AccountStatus) error
	List(ctx context.Context, filter UserFilter) ([]entity.User, int64, error)
}

type userRepository struct {
	db      *gorm.DB
	hasher  utils.PasswordHasher
	timeout time.Duration
}

func NewUserRepository(db *gorm.DB, hasher utils.PasswordHasher, timeout time.Duration) UserRepository {
	return &userRepository{db: db, hasher: hasher, timeout: timeout}
}

func (r *userRepository) CreateWithRawPassword(ctx context.Context, user *entity.User, rawPassword string) error {
	hash, err := r.hasher.Hash(rawPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	profile := user.Profile
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Profile", "Sessions").Create(user).Error; err != nil {
			return err
		}
		if profile == nil {
			return nil
		}
		profile.AccountID = user.ID
		return tx.Create(profile).Error
	})
	return translate(err)
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return r.first(ctx, r.db.Where("account_id = ?", id))
}

func (r *userRepository) FindByIDWithProfile(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return r.first(ctx, r.db.Preload("Profile").Where("account_id = ?", id))
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.first(ctx, r.db.Where("email = ?", utils.NormalizeEmail(email)))
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.first(ctx, r.db.Where("username = ?", strings.TrimSpace(username)))
}

func (r *userRepository) FindByEmailOrUsername(ctx context.Context, identifier string) (*entity.User, error) {
	return r.first(ctx, r.db.Where("email = ? OR username = ?", utils.NormalizeEmail(identifier), strings.TrimSpace(identifier)))
}

func (r *userRepository) ValidatePassword(user *entity.User, candidate string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	return r.hasher.Verify(user.PasswordHash, candidate)
}

func (r *userRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.updateColumns(ctx, id, map[string]any{"password_hash": hash})
}

func (r *userRepository) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time, ip *string) error {
	return r.updateColumns(ctx, id, map[string]any{"last_login_at": at, "last_login_ip": ip})
}

func (r *userRepository) UpdateSettings(ctx context.Context, id uuid.UUID, update SettingsUpdate) (*entity.User, error) {
	columns := map[string]any{}
	if update.Email != nil {
		columns["email"] = utils.NormalizeEmail(*update.Email)
		columns["email_verified"] = false
	}
	if update.Username != nil {
		columns["username"] = strings.TrimSpace(*update.Username)
	}
	if update.TwoFactorEnabled != nil {
		columns["two_factor_enabled"] = *update.TwoFactorEnabled
	}
	if len(columns) > 0 {
		if err := r.updateColumns(ctx, id, columns); err != nil {
			return nil, err
		}
	}
	return r.FindByID(ctx, id)
}

func (r *userRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.AccountStatus) error {
	return r.updateColumns(ctx, id, map[string]any{"account_status": status})
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]entity.User, int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := r.db.WithContext(ctx).Model(&entity.User{})
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(username) LIKE ?", pattern, pattern)
	}
	if filter.AccountType != "" {
		query = query.Where("account_type = ?", filter.AccountType)
	}
	if filter.Status != "" {
		query = query.Where("account_status = ?", filter.Status)
	}

	// Count and Find each get their own statement from here on.
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []entity.User
	page := query.Order("created_at DESC")
	if filter.Limit > 0 {
		page = page.Limit(filter.Limit)
	}
	if offset := filter.Offset(); offset > 0 {
		page = page.Offset(offset)
	}
	if err := page.Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) first(ctx context.Context, query *gorm.DB) (*entity.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var user entity.User
	err := query.WithContext(ctx).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) updateColumns(ctx context.Context, id uuid.UUID, columns map[string]any) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	err := r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("account_id = ?", id).
		Updates(columns).
		Error
	return translate(err)
}
