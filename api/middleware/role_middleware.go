package middleware

import (
	"net/http"

	"ytempire/internal/entity"

	"github.com/labstack/echo/v4"
)

// RequireAccountType must run after RequireAuth.
func RequireAccountType(allowed ...entity.AccountType) echo.MiddlewareFunc {
	required := make([]string, 0, len(allowed))
	for _, accountType := range allowed {
		required = append(required, string(accountType))
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := UserFromContext(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
			}
			for _, accountType := range allowed {
				if user.AccountType == accountType {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, map[string]any{
				"error":    "Insufficient permissions",
				"required": required,
				"current":  user.AccountType,
			})
		}
	}
}
