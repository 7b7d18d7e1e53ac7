package entity

import (
	"time"

	"github.com/google/uuid"
)

type AccountType string

const (
	AccountTypeCreator AccountType = "creator"
	AccountTypeManager AccountType = "manager"
	AccountTypeAdmin   AccountType = "admin"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeCreator, AccountTypeManager, AccountTypeAdmin:
		return true
	}
	return false
}

type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
	AccountStatusPending   AccountStatus = "pending"
)

func (s AccountStatus) Valid() bool {
	switch s {
	case AccountStatusActive, AccountStatusSuspended, AccountStatusPending:
		return true
	}
	return false
}

type SubscriptionTier string

const (
	SubscriptionFree       SubscriptionTier = "free"
	SubscriptionPro        SubscriptionTier = "pro"
	SubscriptionEnterprise SubscriptionTier = "enterprise"
)

// User is a row of users.accounts.
type User struct {
	ID       uuid.UUID `gorm:"column:account_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email    string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Username string    `gorm:"type:varchar(100);uniqueIndex;not null"`
	// PasswordHash never leaves the process; dto.UserResponse has no field for it.
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"`

	AccountType      AccountType      `gorm:"type:users.account_type;not null"`
	AccountStatus    AccountStatus    `gorm:"type:users.account_status;default:'active';not null"`
	SubscriptionTier SubscriptionTier `gorm:"type:users.subscription_tier;default:'free';not null"`

	LastLoginAt      *time.Time
	LastLoginIP      *string `gorm:"column:last_login_ip;type:varchar(45)"`
	EmailVerified    bool    `gorm:"default:false"`
	TwoFactorEnabled bool    `gorm:"default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Profile  *Profile  `gorm:"foreignKey:AccountID;references:ID"`
	Sessions []Session `gorm:"foreignKey:AccountID;references:ID"`
}

func (User) TableName() string {
	return "users.accounts"
}

func (u *User) IsActive() bool {
	return u.AccountStatus == AccountStatusActive
}
