package dto

import (
	"time"

	"ytempire/internal/entity"
	"ytempire/internal/repository"
	"ytempire/internal/service"
)

type UpdateProfileRequest struct {
	FirstName   *string `json:"firstName" validate:"omitempty,max=100"`
	LastName    *string `json:"lastName" validate:"omitempty,max=100"`
	DisplayName *string `json:"displayName" validate:"omitempty,max=150"`
	Bio         *string `json:"bio" validate:"omitempty,max=2000"`
	AvatarURL   *string `json:"avatarUrl" validate:"omitempty,url,max=500"`
	Timezone    *string `json:"timezone" validate:"omitempty,timezone"`
	Language    *string `json:"language" validate:"omitempty,max=10"`
	CompanyName *string `json:"companyName" validate:"omitempty,max=200"`
	WebsiteURL  *string `json:"websiteUrl" validate:"omitempty,url,max=500"`
}

func (r UpdateProfileRequest) ToUpdate() repository.ProfileUpdate {
	return repository.ProfileUpdate{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		DisplayName: r.DisplayName,
		Bio:         r.Bio,
		AvatarURL:   r.AvatarURL,
		Timezone:    r.Timezone,
		Language:    r.Language,
		CompanyName: r.CompanyName,
		WebsiteURL:  r.WebsiteURL,
	}
}

type UpdateSettingsRequest struct {
	Email            *string `json:"email" validate:"omitempty,email,max=255"`
	Username         *string `json:"username" validate:"omitempty,min=3,max=100"`
	TwoFactorEnabled *bool   `json:"twoFactorEnabled"`
}

func (r UpdateSettingsRequest) ToUpdate() repository.SettingsUpdate {
	return repository.SettingsUpdate{
		Email:            r.Email,
		Username:         r.Username,
		TwoFactorEnabled: r.TwoFactorEnabled,
	}
}

type ProfileResponse struct {
	ID          string    `json:"id"`
	FirstName   *string   `json:"first_name,omitempty"`
	LastName    *string   `json:"last_name,omitempty"`
	DisplayName string    `json:"display_name"`
	Bio         *string   `json:"bio,omitempty"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	Timezone    string    `json:"timezone"`
	Language    string    `json:"language"`
	CompanyName *string   `json:"company_name,omitempty"`
	WebsiteURL  *string   `json:"website_url,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserResponse is the only JSON form of an account. It has no password field.
type UserResponse struct {
	ID               string           `json:"id"`
	Email            string           `json:"email"`
	Username         string           `json:"username"`
	AccountType      string           `json:"account_type"`
	AccountStatus    string           `json:"account_status"`
	SubscriptionTier string           `json:"subscription_tier"`
	EmailVerified    bool             `json:"email_verified"`
	TwoFactorEnabled bool             `json:"two_factor_enabled"`
	LastLoginAt      *time.Time       `json:"last_login_at,omitempty"`
	LastLoginIP      *string          `json:"last_login_ip,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	Profile          *ProfileResponse `json:"profile,omitempty"`
}

// PublicProfileResponse is what anyone, signed in or not, may see of an
// account.
type PublicProfileResponse struct {
	Username    string  `json:"username"`
	AccountType string  `json:"account_type"`
	DisplayName string  `json:"display_name"`
	Bio         *string `json:"bio,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	CompanyName *string `json:"company_name,omitempty"`
	WebsiteURL  *string `json:"website_url,omitempty"`
}

type UserListResponse struct {
	Users      []UserResponse     `json:"users"`
	Pagination service.Pagination `json:"pagination"`
}

func ProfileResponseFromEntity(profile *entity.Profile) *ProfileResponse {
	if profile == nil {
		return nil
	}
	return &ProfileResponse{
		ID:          profile.ID.String(),
		FirstName:   profile.FirstName,
		LastName:    profile.LastName,
		DisplayName: profile.DisplayName,
		Bio:         profile.Bio,
		AvatarURL:   profile.AvatarURL,
		Timezone:    profile.Timezone,
		Language:    profile.Language,
		CompanyName: profile.CompanyName,
		WebsiteURL:  profile.WebsiteURL,
		UpdatedAt:   profile.UpdatedAt,
	}
}

func UserResponseFromEntity(user *entity.User) UserResponse {
	return UserResponse{
		ID:               user.ID.String(),
		Email:            user.Email,
		Username:         user.Username,
		AccountType:      string(user.AccountType),
		AccountStatus:    string(user.AccountStatus),
		SubscriptionTier: string(user.SubscriptionTier),
		EmailVerified:    user.EmailVerified,
		TwoFactorEnabled: user.TwoFactorEnabled,
		LastLoginAt:      user.LastLoginAt,
		LastLoginIP:      user.LastLoginIP,
		CreatedAt:        user.CreatedAt,
		UpdatedAt:        user.UpdatedAt,
		Profile:          ProfileResponseFromEntity(user.Profile),
	}
}

func UserResponsesFromEntities(users []entity.User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, UserResponseFromEntity(&users[i]))
	}
	return responses
}

func UserListResponseFromPage(page *service.UserPage) UserListResponse {
	return UserListResponse{
		Users:      UserResponsesFromEntities(page.Users),
		Pagination: page.Pagination,
	}
}

func PublicProfileResponseFromEntity(user *entity.User) PublicProfileResponse {
	response := PublicProfileResponse{
		Username:    user.Username,
		AccountType: string(user.AccountType),
		DisplayName: user.Username,
	}
	if profile := user.Profile; profile != nil {
		if profile.DisplayName != "" {
			response.DisplayName = profile.DisplayName
		}
		response.Bio = profile.Bio
		response.AvatarURL = profile.AvatarURL
		response.CompanyName = profile.CompanyName
		response.WebsiteURL = profile.WebsiteURL
	}
	return response
}
