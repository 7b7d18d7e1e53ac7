package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AuditAction string

const (
	AuditRegister         AuditAction = "register"
	AuditLoginSuccess     AuditAction = "login_success"
	AuditLoginFailed      AuditAction = "login_failed"
	AuditLogout           AuditAction = "logout"
	AuditLogoutAll        AuditAction = "logout_all"
	AuditTokenRefresh     AuditAction = "token_refresh"
	AuditSessionExpired   AuditAction = "session_expired"
	AuditPasswordChanged  AuditAction = "password_changed"
	AuditSettingsUpdated  AuditAction = "settings_updated"
	AuditProfileUpdated   AuditAction = "profile_updated"
	AuditAccountSuspended AuditAction = "account_suspended"
	AuditSessionsRevoked  AuditAction = "sessions_revoked"
)

const (
	ResourceAccount = "account"
	ResourceSession = "session"
	ResourceProfile = "profile"
)

type AuditLog struct {
	ID uuid.UUID `gorm:"column:log_id;type:uuid;default:gen_random_uuid();primaryKey"`

	AccountID *uuid.UUID `gorm:"type:uuid;index"`

	ActionType   AuditAction `gorm:"type:varchar(100);not null"`
	ResourceType string      `gorm:"type:varchar(100);not null"`
	ResourceID   *uuid.UUID  `gorm:"type:uuid"`

	IPAddress *string `gorm:"type:varchar(45)"`
	UserAgent *string `gorm:"type:text"`

	Metadata datatypes.JSON

	CreatedAt time.Time
}

func (AuditLog) TableName() string {
	return "system.audit_logs"
}
