package service

import (
	"time"

	"ytempire/internal/entity"
)

type RegisterInput struct {
	Email       string
	Username    string
	Password    string
	AccountType entity.AccountType
	IPAddress   *string
	UserAgent   *string
}

type LoginInput struct {
	Email     string
	Password  string
	IPAddress *string
	UserAgent *string
}

type RefreshInput struct {
	Token     string
	IPAddress *string
	UserAgent *string
}

type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
	IPAddress       *string
}

// AuthResult is returned by register and login. User.PasswordHash is always
// cleared.
type AuthResult struct {
	User      *entity.User
	Token     string
	ExpiresAt time.Time
}

type RefreshResult struct {
	Token     string
	ExpiresAt time.Time
}

type RequestMeta struct {
	IPAddress *string
	UserAgent *string
}
