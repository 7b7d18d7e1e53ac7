package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ytempire/internal/entity"
	"ytempire/internal/repository"
	"ytempire/internal/utils"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// maxPasswordBytes is bcrypt's input limit.
const maxPasswordBytes = 72

type AuthService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	audit    repository.AuditLogRepository

	passwordHash utils.PasswordHasher
	tokens       TokenIssuer
	recorder     Recorder
	clock        Clock
	config       AuthConfig

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	audit repository.AuditLogRepository,
	passwordHash utils.PasswordHasher,
	tokens TokenIssuer,
	recorder Recorder,
	clock Clock,
	config AuthConfig,
) *AuthService {
	return &AuthService{
		users:        users,
		sessions:     sessions,
		audit:        audit,
		passwordHash: passwordHash,
		tokens:       tokens,
		recorder:     recorder,
		clock:        clock,
		config:       config,
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := utils.NormalizeEmail(input.Email)
	username := strings.TrimSpace(input.Username)
	if email == "" || username == "" || input.Password == "" {
		s.record("register", outcomeFailure)
		return nil, newError(ErrValidation, "Email, username and password are required")
	}
	accountType := input.AccountType
	if accountType == "" {
		accountType = entity.AccountTypeCreator
	}
	if !accountType.Valid() {
		s.record("register", outcomeFailure)
		return nil, newError(ErrValidation, "Invalid account type")
	}
	if !s.config.allowsRegistration(accountType) {
		s.record("register", outcomeFailure)
		return nil, newError(ErrValidation, fmt.Sprintf("Cannot register as %s", accountType))
	}
	if len(input.Password) > maxPasswordBytes {
		s.record("register", outcomeFailure)
		return nil, errPasswordTooLong
	}

	if err := s.ensureAvailable(ctx, email, username); err != nil {
		s.record("register", outcomeFailure)
		return nil, err
	}

	user := &entity.User{
		Email:            email,
		Username:         username,
		AccountType:      accountType,
		AccountStatus:    entity.AccountStatusActive,
		SubscriptionTier: entity.SubscriptionFree,
		Profile: &entity.Profile{
			DisplayName: username,
			Timezone:    "UTC",
			Language:    "en",
		},
	}
	if err := s.users.CreateWithRawPassword(ctx, user, input.Password); err != nil {
		s.record("register", outcomeFailure)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newError(ErrConflict, "Email or username already exists")
		}
		return nil, err
	}

	result, err := s.startSession(ctx, user, input.IPAddress, input.UserAgent)
	if err != nil {
		s.record("register", outcomeFailure)
		return nil, err
	}

	s.logAudit(ctx, &user.ID, entity.AuditRegister, entity.ResourceAccount, &user.ID, input.IPAddress, input.UserAgent,
		map[string]any{"account_type": user.AccountType})
	s.record("register", outcomeSuccess)
	return result, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	identifier := strings.TrimSpace(input.Email)
	if identifier == "" || input.Password == "" {
		s.record("login", outcomeFailure)
		return nil, newError(ErrValidation, "Email and password are required")
	}

	user, err := s.users.FindByEmailOrUsername(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Burn the same bcrypt work as a real comparison.
		_ = s.passwordHash.Verify(s.dummyPasswordHash(), input.Password)
		s.logAudit(ctx, nil, entity.AuditLoginFailed, entity.ResourceAccount, nil, input.IPAddress, input.UserAgent,
			map[string]any{"identifier": identifier})
		s.record("login", outcomeFailure)
		return nil, newError(ErrInvalidCredentials, "Invalid credentials")
	}
	if !s.users.ValidatePassword(user, input.Password) {
		s.logAudit(ctx, &user.ID, entity.AuditLoginFailed, entity.ResourceAccount, &user.ID, input.IPAddress, input.UserAgent,
			map[string]any{"identifier": identifier})
		s.record("login", outcomeFailure)
		return nil, newError(ErrInvalidCredentials, "Invalid credentials")
	}
	if !user.IsActive() {
		s.record("login", outcomeFailure)
		return nil, newError(ErrAccountInactive, fmt.Sprintf("Account is %s", user.AccountStatus))
	}

	// The login is recorded first so a failed write leaves no session behind.
	now := s.now()
	if err := s.users.RecordLogin(ctx, user.ID, now, input.IPAddress); err != nil {
		s.record("login", outcomeFailure)
		return nil, err
	}
	user.LastLoginAt = &now
	user.LastLoginIP = input.IPAddress

	result, err := s.startSession(ctx, user, input.IPAddress, input.UserAgent)
	if err != nil {
		s.record("login", outcomeFailure)
		return nil, err
	}

	s.logAudit(ctx, &user.ID, entity.AuditLoginSuccess, entity.ResourceAccount, &user.ID, input.IPAddress, input.UserAgent, nil)
	s.record("login", outcomeSuccess)
	return result, nil
}

// Logout closes session. A nil or already closed session is not an error.
func (s *AuthService) Logout(ctx context.Context, session *entity.Session, meta RequestMeta) error {
	if session == nil {
		return nil
	}
	if err := s.sessions.Invalidate(ctx, session.ID); err != nil {
		return err
	}
	s.logAudit(ctx, &session.AccountID, entity.AuditLogout, entity.ResourceSession, &session.ID, meta.IPAddress, meta.UserAgent, nil)
	s.record("logout", outcomeSuccess)
	return nil
}

func (s *AuthService) LogoutAll(ctx context.Context, accountID uuid.UUID, meta RequestMeta) error {
	if err := s.sessions.RevokeAllByAccount(ctx, accountID); err != nil {
		return err
	}
	s.logAudit(ctx, &accountID, entity.AuditLogoutAll, entity.ResourceAccount, &accountID, meta.IPAddress, meta.UserAgent, nil)
	s.record("logout_all", outcomeSuccess)
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.users.FindByIDWithProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, newError(ErrUserNotFound, "User not found")
	}
	user.PasswordHash = ""
	return user, nil
}

// Refresh swaps token for a new one on the same session row. The old token
// may be past its exp; it still has to carry a valid signature.
func (s *AuthService) Refresh(ctx context.Context, input RefreshInput) (*RefreshResult, error) {
	token := strings.TrimSpace(input.Token)
	if token == "" {
		s.record("refresh", outcomeFailure)
		return nil, newError(ErrValidation, "Token is required")
	}

	claims, err := s.tokens.VerifyIgnoringExpiration(token)
	if err != nil {
		s.record("refresh", outcomeFailure)
		return nil, newError(ErrInvalidToken, "Invalid token")
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		s.record("refresh", outcomeFailure)
		return nil, newError(ErrInvalidToken, "Invalid token")
	}

	oldHash := utils.HashToken(token)
	session, err := s.sessions.FindActiveByToken(ctx, oldHash, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		s.record("refresh", outcomeFailure)
		return nil, newError(ErrInvalidSession, "Invalid or expired session")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.record("refresh", outcomeFailure)
		return nil, newError(ErrInvalidSession, "Invalid or expired session")
	}
	if !user.IsActive() {
		s.record("refresh", outcomeFailure)
		return nil, newError(ErrAccountInactive, fmt.Sprintf("Account is %s", user.AccountStatus))
	}

	newToken, expiresAt, err := s.tokens.Issue(*user)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.RotateToken(ctx, session.ID, oldHash, utils.HashToken(newToken), expiresAt); err != nil {
		if errors.Is(err, repository.ErrStaleSession) {
			s.record("refresh", outcomeFailure)
			return nil, newError(ErrInvalidSession, "Invalid or expired session")
		}
		return nil, err
	}

	s.logAudit(ctx, &user.ID, entity.AuditTokenRefresh, entity.ResourceSession, &session.ID, input.IPAddress, input.UserAgent, nil)
	s.record("refresh", outcomeSuccess)
	return &RefreshResult{Token: newToken, ExpiresAt: expiresAt}, nil
}

// Authenticate resolves a bearer token to its user and session. A session
// found past its expiry is closed before ErrSessionExpired is returned.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*entity.User, *entity.Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil, newError(ErrTokenRequired, "Access token required")
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, nil, err
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, nil, newError(ErrInvalidToken, "Invalid token")
	}

	session, err := s.sessions.FindActiveByToken(ctx, utils.HashToken(token), userID)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, newError(ErrInvalidSession, "Invalid or expired session")
	}

	if !session.ValidAt(s.now()) {
		if err := s.sessions.Invalidate(ctx, session.ID); err != nil {
			return nil, nil, err
		}
		session.IsActive = false
		s.logAudit(ctx, &session.AccountID, entity.AuditSessionExpired, entity.ResourceSession, &session.ID, nil, nil, nil)
		s.record("session_expired", outcomeSuccess)
		return nil, nil, newError(ErrSessionExpired, "Session expired")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, newError(ErrUserNotFound, "User not found")
	}
	if !user.IsActive() {
		return nil, nil, newError(ErrAccountInactive, "Account is not active")
	}
	user.PasswordHash = ""
	return user, session, nil
}

// ChangePassword replaces the caller's password and closes every session of
// the account, including the one making the request.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error {
	if input.CurrentPassword == "" || input.NewPassword == "" {
		return newError(ErrValidation, "Current and new password are required")
	}
	if len(input.NewPassword) > maxPasswordBytes {
		return errPasswordTooLong
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return newError(ErrUserNotFound, "User not found")
	}
	if !s.users.ValidatePassword(user, input.CurrentPassword) {
		s.record("change_password", outcomeFailure)
		return newError(ErrInvalidCredentials, "Current password is incorrect")
	}

	hash, err := s.passwordHash.Hash(input.NewPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return err
	}
	if err := s.sessions.RevokeAllByAccount(ctx, user.ID); err != nil {
		return err
	}

	s.logAudit(ctx, &user.ID, entity.AuditPasswordChanged, entity.ResourceAccount, &user.ID, input.IPAddress, nil, nil)
	s.record("change_password", outcomeSuccess)
	return nil
}

func (s *AuthService) ensureAvailable(ctx context.Context, email string, username string) error {
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return newError(ErrConflict, "Email already registered")
	}
	existing, err = s.users.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return newError(ErrConflict, "Username already taken")
	}
	return nil
}

func (s *AuthService) startSession(ctx context.Context, user *entity.User, ipAddress *string, userAgent *string) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(*user)
	if err != nil {
		return nil, err
	}

	session := &entity.Session{
		AccountID: user.ID,
		TokenHash: utils.HashToken(token),
		IPAddress: ipAddress,
		UserAgent: userAgent,
		ExpiresAt: expiresAt,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	public := *user
	public.PasswordHash = ""
	return &AuthResult{User: &public, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) logAudit(
	ctx context.Context,
	accountID *uuid.UUID,
	action entity.AuditAction,
	resourceType string,
	resourceID *uuid.UUID,
	ipAddress *string,
	userAgent *string,
	metadata map[string]any,
) {
	writeAudit(ctx, s.audit, accountID, action, resourceType, resourceID, ipAddress, userAgent, metadata)
}

func (s *AuthService) record(event string, outcome string) {
	if s.recorder != nil {
		s.recorder.AuthEvent(event, outcome)
	}
}

func (s *AuthService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.passwordHash.Hash(uuid.NewString())
	})
	return s.dummyHash
}

func (s *AuthService) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}

// writeAudit stores an audit entry. Failures are dropped; auditing never
// fails the request it describes.
func writeAudit(
	ctx context.Context,
	audit repository.AuditLogRepository,
	accountID *uuid.UUID,
	action entity.AuditAction,
	resourceType string,
	resourceID *uuid.UUID,
	ipAddress *string,
	userAgent *string,
	metadata map[string]any,
) {
	if audit == nil {
		return
	}
	var payload datatypes.JSON
	if metadata != nil {
		bytes, err := json.Marshal(metadata)
		if err != nil {
			return
		}
		payload = datatypes.JSON(bytes)
	}
	_ = audit.Log(ctx, &entity.AuditLog{
		AccountID:    accountID,
		ActionType:   action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
		Metadata:     payload,
	})
}
