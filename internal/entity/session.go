package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session makes a bearer token revocable. TokenHash holds utils.HashToken of
// the token, never the token itself.
type Session struct {
	ID        uuid.UUID `gorm:"column:session_id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index:idx_sessions_account_active,priority:1"`

	TokenHash string `gorm:"column:session_token;type:varchar(255);uniqueIndex;not null"`

	IPAddress *string `gorm:"type:varchar(45)"`
	UserAgent *string `gorm:"type:text"`

	ExpiresAt time.Time `gorm:"not null"`
	IsActive  bool      `gorm:"default:true;not null;index:idx_sessions_account_active,priority:2"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Session) TableName() string {
	return "users.sessions"
}

// ValidAt reports whether the session may authenticate a request at now.
func (s *Session) ValidAt(now time.Time) bool {
	return s.IsActive && !now.After(s.ExpiresAt)
}
