package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"ytempire/internal/entity"
	"ytempire/internal/repository"
	"ytempire/internal/repository/memory"
	"ytempire/internal/service"
	"ytempire/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testTTL = 7 * 24 * time.Hour

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordedEvent struct {
	event   string
	outcome string
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *fakeRecorder) AuthEvent(event string, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{event: event, outcome: outcome})
}

func (r *fakeRecorder) count(event, outcome string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.event == event && e.outcome == outcome {
			n++
		}
	}
	return n
}

type harness struct {
	store    *memory.Store
	clock    *fakeClock
	recorder *fakeRecorder
	jwt      *utils.JWTManager
	auth     *service.AuthService
	users    *service.UserService
}

type harnessOption func(*harnessOptions)

type harnessOptions struct {
	wrapUsers func(repository.UserRepository) repository.UserRepository
	config    service.AuthConfig
}

func withUsers(wrap func(repository.UserRepository) repository.UserRepository) harnessOption {
	return func(o *harnessOptions) { o.wrapUsers = wrap }
}

func withRegistrationTypes(types ...entity.AccountType) harnessOption {
	return func(o *harnessOptions) { o.config.RegistrationTypes = types }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	options := harnessOptions{config: service.AuthConfig{TokenTTL: testTTL}}
	for _, opt := range opts {
		opt(&options)
	}

	hasher := utils.BcryptPasswordHasher{Cost: bcrypt.MinCost}
	store := memory.NewStore(hasher)
	clock := newFakeClock()
	recorder := &fakeRecorder{}
	jwtManager := &utils.JWTManager{Secret: []byte("test-secret"), Issuer: "ytempire", TTL: testTTL, Now: clock.Now}

	userRepo := store.Users()
	if options.wrapUsers != nil {
		userRepo = options.wrapUsers(userRepo)
	}
	auth := service.NewAuthService(
		userRepo,
		store.Sessions(),
		store.AuditLogs(),
		hasher,
		service.JWTTokenIssuer{Manager: jwtManager, TTL: testTTL},
		recorder,
		clock,
		options.config,
	)
	users := service.NewUserService(userRepo, store.Profiles(), store.Sessions(), store.AuditLogs())
	return &harness{store: store, clock: clock, recorder: recorder, jwt: jwtManager, auth: auth, users: users}
}

func (h *harness) register(t *testing.T, email, username string, accountType entity.AccountType) *service.AuthResult {
	t.Helper()
	result, err := h.auth.Register(context.Background(), service.RegisterInput{
		Email:       email,
		Username:    username,
		Password:    "password123",
		AccountType: accountType,
	})
	require.NoError(t, err)
	return result
}

func (h *harness) authenticate(t *testing.T, token string) (*entity.User, *entity.Session) {
	t.Helper()
	user, session, err := h.auth.Authenticate(context.Background(), token)
	require.NoError(t, err)
	return user, session
}

// racingUsers passes every availability check but loses at the unique
// constraint on write, as a concurrent registration would.
type racingUsers struct {
	repository.UserRepository
}

func (racingUsers) CreateWithRawPassword(context.Context, *entity.User, string) error {
	return fmt.Errorf("insert account: %w", repository.ErrDuplicate)
}

func (racingUsers) UpdateSettings(context.Context, uuid.UUID, repository.SettingsUpdate) (*entity.User, error) {
	return nil, fmt.Errorf("update account: %w", repository.ErrDuplicate)
}

type brokenLoginRecord struct {
	repository.UserRepository
	err error
}

func (b brokenLoginRecord) RecordLogin(context.Context, uuid.UUID, time.Time, *string) error {
	return b.err
}
