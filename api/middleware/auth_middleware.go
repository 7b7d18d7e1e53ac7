package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"ytempire/internal/entity"
	"ytempire/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*entity.User, *entity.Session, error)
}

type AuthMiddleware struct {
	Auth   Authenticator
	Logger logrus.FieldLogger
}

// RequireAuth rejects the request unless it carries a bearer token backed by
// an active session of an active account.
func (m AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if m.Auth == nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Authentication failed")
		}
		user, session, err := m.Auth.Authenticate(c.Request().Context(), extractBearerToken(c.Request()))
		if err != nil {
			return m.reject(c, err)
		}
		SetAuthContext(c, user, session)
		return next(c)
	}
}

// OptionalAuth attaches the caller's identity when it resolves and otherwise
// lets the request through anonymously.
func (m AuthMiddleware) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := extractBearerToken(c.Request())
		if token == "" || m.Auth == nil {
			return next(c)
		}
		user, session, err := m.Auth.Authenticate(c.Request().Context(), token)
		if err == nil {
			SetAuthContext(c, user, session)
		}
		return next(c)
	}
}

func (m AuthMiddleware) reject(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrTokenRequired),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrExpiredToken),
		errors.Is(err, service.ErrInvalidSession),
		errors.Is(err, service.ErrSessionExpired),
		errors.Is(err, service.ErrUserNotFound):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrAccountInactive):
		status = http.StatusForbidden
	}

	message, ok := service.PublicMessage(err)
	if status == http.StatusInternalServerError || !ok {
		if m.Logger != nil {
			m.Logger.WithError(err).WithField("uri", c.Request().RequestURI).Error("authentication error")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Authentication failed")
	}
	return echo.NewHTTPError(status, message)
}

func extractBearerToken(r *http.Request) string {
	authorization := r.Header.Get("Authorization")
	if authorization == "" {
		return ""
	}
	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
