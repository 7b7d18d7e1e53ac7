package entity

import (
	"time"

	"github.com/google/uuid"
)

type Profile struct {
	ID        uuid.UUID `gorm:"column:profile_id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`

	FirstName   *string `gorm:"type:varchar(100)"`
	LastName    *string `gorm:"type:varchar(100)"`
	DisplayName string  `gorm:"type:varchar(150)"`
	Bio         *string `gorm:"type:text"`
	AvatarURL   *string `gorm:"column:avatar_url;type:varchar(500)"`
	Timezone    string  `gorm:"type:varchar(50);default:'UTC'"`
	Language    string  `gorm:"type:varchar(10);default:'en'"`
	CompanyName *string `gorm:"type:varchar(200)"`
	WebsiteURL  *string `gorm:"column:website_url;type:varchar(500)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Profile) TableName() string {
	return "users.profiles"
}
