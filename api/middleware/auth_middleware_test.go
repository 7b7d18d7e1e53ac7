package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ytempire/internal/entity"
	"ytempire/internal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuthenticator struct {
	user    *entity.User
	session *entity.Session
	err     error
	calls   int
	token   string
}

func (s *stubAuthenticator) Authenticate(_ context.Context, token string) (*entity.User, *entity.Session, error) {
	s.calls++
	s.token = token
	return s.user, s.session, s.err
}

func serviceError(kind error, message string) error {
	return &service.Error{Kind: kind, Message: message}
}

func runMiddleware(t *testing.T, mw echo.MiddlewareFunc, authorization string) (echo.Context, *bool, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	c := e.NewContext(req, httptest.NewRecorder())
	reached := false
	err := mw(func(c echo.Context) error {
		reached = true
		return nil
	})(c)
	return c, &reached, err
}

func TestRequireAuthAttachesIdentity(t *testing.T) {
	user := &entity.User{ID: uuid.New(), AccountType: entity.AccountTypeCreator}
	session := &entity.Session{ID: uuid.New()}
	auth := &stubAuthenticator{user: user, session: session}
	m := AuthMiddleware{Auth: auth}

	c, reached, err := runMiddleware(t, m.RequireAuth, "Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.True(t, *reached)
	assert.Equal(t, "abc.def.ghi", auth.token)

	gotUser, ok := UserFromContext(c)
	require.True(t, ok)
	assert.Equal(t, user.ID, gotUser.ID)
	gotSession, ok := SessionFromContext(c)
	require.True(t, ok)
	assert.Equal(t, session.ID, gotSession.ID)
	id, ok := UserIDFromContext(c)
	require.True(t, ok)
	assert.Equal(t, user.ID, id)
}

func TestRequireAuthMapsErrors(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		message string
	}{
		{serviceError(service.ErrTokenRequired, "Access token required"), http.StatusUnauthorized, "Access token required"},
		{serviceError(service.ErrInvalidToken, "Invalid token"), http.StatusUnauthorized, "Invalid token"},
		{serviceError(service.ErrExpiredToken, "Token expired"), http.StatusUnauthorized, "Token expired"},
		{serviceError(service.ErrInvalidSession, "Invalid or expired session"), http.StatusUnauthorized, "Invalid or expired session"},
		{serviceError(service.ErrSessionExpired, "Session expired"), http.StatusUnauthorized, "Session expired"},
		{serviceError(service.ErrUserNotFound, "User not found"), http.StatusUnauthorized, "User not found"},
		{serviceError(service.ErrAccountInactive, "Account is not active"), http.StatusForbidden, "Account is not active"},
		{errors.New("db down"), http.StatusInternalServerError, "Authentication failed"},
	}
	for _, tc := range cases {
		t.Run(tc.message, func(t *testing.T) {
			logger, hook := test.NewNullLogger()
			m := AuthMiddleware{Auth: &stubAuthenticator{err: tc.err}, Logger: logger}

			_, reached, err := runMiddleware(t, m.RequireAuth, "Bearer token")
			assert.False(t, *reached)

			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tc.status, httpErr.Code)
			assert.Equal(t, tc.message, httpErr.Message)

			if tc.status == http.StatusInternalServerError {
				require.NotNil(t, hook.LastEntry())
				assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
			} else {
				assert.Empty(t, hook.AllEntries())
			}
		})
	}
}

func TestRequireAuthPassesEmptyTokenThrough(t *testing.T) {
	auth := &stubAuthenticator{err: serviceError(service.ErrTokenRequired, "Access token required")}
	m := AuthMiddleware{Auth: auth}

	for _, header := range []string{"", "Basic dXNlcjpwdw==", "Bearer"} {
		_, _, err := runMiddleware(t, m.RequireAuth, header)
		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
		assert.Empty(t, auth.token, header)
	}
}

func TestOptionalAuth(t *testing.T) {
	t.Run("anonymous without header", func(t *testing.T) {
		auth := &stubAuthenticator{}
		m := AuthMiddleware{Auth: auth}
		c, reached, err := runMiddleware(t, m.OptionalAuth, "")
		require.NoError(t, err)
		assert.True(t, *reached)
		assert.Zero(t, auth.calls)
		_, ok := UserFromContext(c)
		assert.False(t, ok)
	})

	t.Run("failures are swallowed", func(t *testing.T) {
		m := AuthMiddleware{Auth: &stubAuthenticator{err: serviceError(service.ErrInvalidToken, "Invalid token")}}
		c, reached, err := runMiddleware(t, m.OptionalAuth, "Bearer bad")
		require.NoError(t, err)
		assert.True(t, *reached)
		_, ok := UserFromContext(c)
		assert.False(t, ok)
	})

	t.Run("identity attached when valid", func(t *testing.T) {
		user := &entity.User{ID: uuid.New()}
		m := AuthMiddleware{Auth: &stubAuthenticator{user: user, session: &entity.Session{ID: uuid.New()}}}
		c, reached, err := runMiddleware(t, m.OptionalAuth, "bearer good")
		require.NoError(t, err)
		assert.True(t, *reached)
		got, ok := UserFromContext(c)
		require.True(t, ok)
		assert.Equal(t, user.ID, got.ID)
	})
}
