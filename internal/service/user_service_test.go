package service_test

import (
	"context"
	"fmt"
	"testing"

	"ytempire/internal/entity"
	"ytempire/internal/repository"
	"ytempire/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stringPtr(value string) *string { return &value }

func TestUserServiceListPaginates(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 5; i++ {
		h.register(t, fmt.Sprintf("user%d@x.com", i), fmt.Sprintf("user%d", i), "")
	}
	h.register(t, "boss@x.com", "boss", entity.AccountTypeAdmin)

	page, err := h.users.List(context.Background(), repository.UserFilter{Limit: 2, Page: 2})
	require.NoError(t, err)
	assert.Len(t, page.Users, 2)
	assert.Equal(t, service.Pagination{Page: 2, Limit: 2, Total: 6, Pages: 3}, page.Pagination)
	for _, user := range page.Users {
		assert.Empty(t, user.PasswordHash)
	}

	page, err = h.users.List(context.Background(), repository.UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, service.DefaultPageLimit, page.Pagination.Limit)

	page, err = h.users.List(context.Background(), repository.UserFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, service.MaxPageLimit, page.Pagination.Limit)

	page, err = h.users.List(context.Background(), repository.UserFilter{AccountType: entity.AccountTypeAdmin})
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "boss", page.Users[0].Username)

	page, err = h.users.List(context.Background(), repository.UserFilter{Search: "USER3"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Pagination.Total)
}

func TestUserServiceListRejectsUnknownFilters(t *testing.T) {
	h := newHarness(t)
	_, err := h.users.List(context.Background(), repository.UserFilter{AccountType: "owner"})
	assert.ErrorIs(t, err, service.ErrValidation)
	_, err = h.users.List(context.Background(), repository.UserFilter{Status: "deleted"})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestUserServiceGet(t *testing.T) {
	h := newHarness(t)
	registered := h.register(t, "a@x.com", "alice", "")

	user, err := h.users.Get(context.Background(), registered.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotNil(t, user.Profile)

	_, err = h.users.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestUserServiceUpdateProfilePermissions(t *testing.T) {
	h := newHarness(t)
	alice := h.register(t, "a@x.com", "alice", "")
	bob := h.register(t, "b@x.com", "bob", "")
	admin := h.register(t, "root@x.com", "root", entity.AccountTypeAdmin)

	update := repository.ProfileUpdate{DisplayName: stringPtr("Alice A."), Bio: stringPtr("hello")}
	user, err := h.users.UpdateProfile(context.Background(), alice.User, alice.User.ID, update, service.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", user.Profile.DisplayName)
	assert.Equal(t, "hello", *user.Profile.Bio)

	_, err = h.users.UpdateProfile(context.Background(), bob.User, alice.User.ID, update, service.RequestMeta{})
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = h.users.UpdateProfile(context.Background(), admin.User, bob.User.ID, update, service.RequestMeta{})
	assert.NoError(t, err)

	_, err = h.users.UpdateProfile(context.Background(), admin.User, uuid.New(), update, service.RequestMeta{})
	assert.ErrorIs(t, err, service.ErrUserNotFound)

	_, err = h.users.UpdateProfile(context.Background(), alice.User, alice.User.ID,
		repository.ProfileUpdate{DisplayName: stringPtr("  ")}, service.RequestMeta{})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestUserServiceUpdateSettings(t *testing.T) {
	h := newHarness(t)
	alice := h.register(t, "a@x.com", "alice", "")
	h.register(t, "b@x.com", "bob", "")

	_, err := h.users.UpdateSettings(context.Background(), alice.User,
		repository.SettingsUpdate{Email: stringPtr("B@X.com")}, service.RequestMeta{})
	assert.ErrorIs(t, err, service.ErrConflict)

	_, err = h.users.UpdateSettings(context.Background(), alice.User,
		repository.SettingsUpdate{Username: stringPtr("bob")}, service.RequestMeta{})
	assert.ErrorIs(t, err, service.ErrConflict)

	enabled := true
	user, err := h.users.UpdateSettings(context.Background(), alice.User, repository.SettingsUpdate{
		Email:            stringPtr("Alice@X.com"),
		Username:         stringPtr("alice2"),
		TwoFactorEnabled: &enabled,
	}, service.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", user.Email)
	assert.Equal(t, "alice2", user.Username)
	assert.True(t, user.TwoFactorEnabled)
	assert.Empty(t, user.PasswordHash)

	// Keeping your own email is not a conflict.
	_, err = h.users.UpdateSettings(context.Background(), alice.User,
		repository.SettingsUpdate{Email: stringPtr("alice@x.com")}, service.RequestMeta{})
	assert.NoError(t, err)
}

func TestUserServiceSuspend(t *testing.T) {
	h := newHarness(t)
	admin := h.register(t, "root@x.com", "root", entity.AccountTypeAdmin)
	alice := h.register(t, "a@x.com", "alice", "")

	err := h.users.Suspend(context.Background(), admin.User, admin.User.ID, service.RequestMeta{})
	assert.ErrorIs(t, err, service.ErrValidation)
	assert.Equal(t, "Cannot delete your own account", publicMessage(t, err))
	self, err := h.store.Users().FindByID(context.Background(), admin.User.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.AccountStatusActive, self.AccountStatus)

	err = h.users.Suspend(context.Background(), admin.User, uuid.New(), service.RequestMeta{})
	assert.ErrorIs(t, err, service.ErrUserNotFound)

	require.NoError(t, h.users.Suspend(context.Background(), admin.User, alice.User.ID, service.RequestMeta{}))
	suspended, err := h.store.Users().FindByID(context.Background(), alice.User.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.AccountStatusSuspended, suspended.AccountStatus)

	_, _, err = h.auth.Authenticate(context.Background(), alice.Token)
	assert.ErrorIs(t, err, service.ErrInvalidSession)
	_, err = h.auth.Login(context.Background(), service.LoginInput{Email: "alice", Password: "password123"})
	assert.ErrorIs(t, err, service.ErrAccountInactive)

	// Suspending twice is harmless.
	assert.NoError(t, h.users.Suspend(context.Background(), admin.User, alice.User.ID, service.RequestMeta{}))
}

func TestUserServiceRevokeSessions(t *testing.T) {
	h := newHarness(t)
	admin := h.register(t, "root@x.com", "root", entity.AccountTypeAdmin)
	alice := h.register(t, "a@x.com", "alice", "")

	err := h.users.RevokeSessions(context.Background(), admin.User, uuid.New(), service.RequestMeta{})
	assert.ErrorIs(t, err, service.ErrUserNotFound)

	require.NoError(t, h.users.RevokeSessions(context.Background(), admin.User, alice.User.ID, service.RequestMeta{}))

	_, _, err = h.auth.Authenticate(context.Background(), alice.Token)
	assert.ErrorIs(t, err, service.ErrInvalidSession)
	user, err := h.store.Users().FindByID(context.Background(), alice.User.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.AccountStatusActive, user.AccountStatus)

	entries := h.store.AuditEntries()
	require.NotEmpty(t, entries)
	last := entries[len(entries)-1]
	assert.Equal(t, entity.AuditSessionsRevoked, last.ActionType)
	assert.Equal(t, alice.User.ID, *last.ResourceID)

	_, err = h.auth.Login(context.Background(), service.LoginInput{Email: "alice", Password: "password123"})
	assert.NoError(t, err)
}

func TestUserServiceUpdateSettingsConflictAtUniqueConstraint(t *testing.T) {
	h := newHarness(t, withUsers(func(users repository.UserRepository) repository.UserRepository {
		return racingUsers{UserRepository: users}
	}))
	actor := &entity.User{
		Email:         "a@x.com",
		Username:      "alice",
		AccountType:   entity.AccountTypeCreator,
		AccountStatus: entity.AccountStatusActive,
		Profile:       &entity.Profile{DisplayName: "alice"},
	}
	require.NoError(t, h.store.Users().CreateWithRawPassword(context.Background(), actor, "password123"))

	_, err := h.users.UpdateSettings(context.Background(), actor, repository.SettingsUpdate{Username: stringPtr("bob")}, service.RequestMeta{})

	assert.ErrorIs(t, err, service.ErrConflict)
	assert.Equal(t, "Email or username already exists", publicMessage(t, err))
}

func TestUserServiceListRejectsOverflowingPage(t *testing.T) {
	h := newHarness(t)
	h.register(t, "a@x.com", "alice", "")

	_, err := h.users.List(context.Background(), repository.UserFilter{Page: 92233720368547760, Limit: 100})
	assert.ErrorIs(t, err, service.ErrValidation)
	assert.Equal(t, "Page is out of range", publicMessage(t, err))

	page, err := h.users.List(context.Background(), repository.UserFilter{Page: 50, Limit: 100})
	require.NoError(t, err)
	assert.Empty(t, page.Users)
	assert.EqualValues(t, 1, page.Pagination.Total)
}
