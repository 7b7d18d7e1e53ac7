package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"ytempire/internal/entity"
	"ytempire/internal/repository"
	"ytempire/internal/utils"

	"github.com/google/uuid"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

type UserPage struct {
	Users      []entity.User
	Pagination Pagination
}

type UserService struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	sessions repository.SessionRepository
	audit    repository.AuditLogRepository
}

func NewUserService(
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	sessions repository.SessionRepository,
	audit repository.AuditLogRepository,
) *UserService {
	return &UserService{users: users, profiles: profiles, sessions: sessions, audit: audit}
}

func (s *UserService) List(ctx context.Context, filter repository.UserFilter) (*UserPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = DefaultPageLimit
	}
	if filter.Limit > MaxPageLimit {
		filter.Limit = MaxPageLimit
	}
	if filter.Page > math.MaxInt32/filter.Limit {
		return nil, newError(ErrValidation, "Page is out of range")
	}
	if filter.AccountType != "" && !filter.AccountType.Valid() {
		return nil, newError(ErrValidation, "Invalid account type filter")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, newError(ErrValidation, "Invalid status filter")
	}

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	pages := int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	return &UserPage{
		Users: users,
		Pagination: Pagination{
			Page:  filter.Page,
			Limit: filter.Limit,
			Total: total,
			Pages: pages,
		},
	}, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := s.users.FindByIDWithProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, newError(ErrUserNotFound, "User not found")
	}
	user.PasswordHash = ""
	return user, nil
}

// PublicProfile looks an account up by username for viewer, who may be nil.
// Accounts that are not active are hidden from everyone but admins. full
// reports whether viewer owns the account or is an admin.
func (s *UserService) PublicProfile(ctx context.Context, viewer *entity.User, username string) (user *entity.User, full bool, err error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, false, newError(ErrUserNotFound, "User not found")
	}
	found, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, false, err
	}
	isAdmin := viewer != nil && viewer.AccountType == entity.AccountTypeAdmin
	if found == nil || (!found.IsActive() && !isAdmin) {
		return nil, false, newError(ErrUserNotFound, "User not found")
	}
	user, err = s.users.FindByIDWithProfile(ctx, found.ID)
	if err != nil {
		return nil, false, err
	}
	if user == nil {
		return nil, false, newError(ErrUserNotFound, "User not found")
	}
	user.PasswordHash = ""
	return user, isAdmin || (viewer != nil && viewer.ID == user.ID), nil
}

// UpdateProfile changes id's profile. Only the user or an admin may do so.
func (s *UserService) UpdateProfile(ctx context.Context, actor *entity.User, id uuid.UUID, update repository.ProfileUpdate, meta RequestMeta) (*entity.User, error) {
	if actor == nil {
		return nil, newError(ErrInvalidSession, "Authentication required")
	}
	if actor.ID != id && actor.AccountType != entity.AccountTypeAdmin {
		return nil, newError(ErrForbidden, "You can only update your own profile")
	}
	target, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, newError(ErrUserNotFound, "User not found")
	}
	if update.DisplayName != nil && strings.TrimSpace(*update.DisplayName) == "" {
		return nil, newError(ErrValidation, "Display name cannot be empty")
	}

	profile, err := s.profiles.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}
	writeAudit(ctx, s.audit, &actor.ID, entity.AuditProfileUpdated, entity.ResourceProfile, &profile.ID, meta.IPAddress, meta.UserAgent, nil)

	target.PasswordHash = ""
	target.Profile = profile
	return target, nil
}

func (s *UserService) UpdateSettings(ctx context.Context, actor *entity.User, update repository.SettingsUpdate, meta RequestMeta) (*entity.User, error) {
	if actor == nil {
		return nil, newError(ErrInvalidSession, "Authentication required")
	}
	changed := []string{}
	if update.Email != nil {
		email := utils.NormalizeEmail(*update.Email)
		if email == "" {
			return nil, newError(ErrValidation, "Email cannot be empty")
		}
		update.Email = &email
		existing, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != actor.ID {
			return nil, newError(ErrConflict, "Email already registered")
		}
		changed = append(changed, "email")
	}
	if update.Username != nil {
		username := strings.TrimSpace(*update.Username)
		if username == "" {
			return nil, newError(ErrValidation, "Username cannot be empty")
		}
		update.Username = &username
		existing, err := s.users.FindByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != actor.ID {
			return nil, newError(ErrConflict, "Username already taken")
		}
		changed = append(changed, "username")
	}
	if update.TwoFactorEnabled != nil {
		changed = append(changed, "two_factor_enabled")
	}

	user, err := s.users.UpdateSettings(ctx, actor.ID, update)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newError(ErrConflict, "Email or username already exists")
		}
		return nil, err
	}
	if user == nil {
		return nil, newError(ErrUserNotFound, "User not found")
	}
	writeAudit(ctx, s.audit, &actor.ID, entity.AuditSettingsUpdated, entity.ResourceAccount, &actor.ID, meta.IPAddress, meta.UserAgent,
		map[string]any{"fields": changed})

	user.PasswordHash = ""
	return user, nil
}

// Suspend is the soft delete: the account moves to suspended and every one
// of its sessions is closed. There is no way back through this service.
func (s *UserService) Suspend(ctx context.Context, actor *entity.User, id uuid.UUID, meta RequestMeta) error {
	if actor == nil {
		return newError(ErrInvalidSession, "Authentication required")
	}
	if actor.ID == id {
		return newError(ErrValidation, "Cannot delete your own account")
	}
	target, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if target == nil {
		return newError(ErrUserNotFound, "User not found")
	}
	if target.AccountStatus != entity.AccountStatusSuspended {
		if err := s.users.UpdateStatus(ctx, id, entity.AccountStatusSuspended); err != nil {
			return err
		}
	}
	if err := s.sessions.RevokeAllByAccount(ctx, id); err != nil {
		return err
	}
	writeAudit(ctx, s.audit, &actor.ID, entity.AuditAccountSuspended, entity.ResourceAccount, &id, meta.IPAddress, meta.UserAgent,
		map[string]any{"previous_status": target.AccountStatus})
	return nil
}

// RevokeSessions closes every session of id without touching the account.
func (s *UserService) RevokeSessions(ctx context.Context, actor *entity.User, id uuid.UUID, meta RequestMeta) error {
	if actor == nil {
		return newError(ErrInvalidSession, "Authentication required")
	}
	target, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if target == nil {
		return newError(ErrUserNotFound, "User not found")
	}
	if err := s.sessions.RevokeAllByAccount(ctx, id); err != nil {
		return err
	}
	writeAudit(ctx, s.audit, &actor.ID, entity.AuditSessionsRevoked, entity.ResourceAccount, &id, meta.IPAddress, meta.UserAgent, nil)
	return nil
}
