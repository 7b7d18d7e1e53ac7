package routes

import (
	"net"
	"net/http"
	"time"

	"ytempire/api/handler"
	"ytempire/api/middleware"
	"ytempire/internal/entity"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type Router struct {
	Echo           *echo.Echo
	Auth           *handler.AuthHandler
	Users          *handler.UserHandler
	Health         *handler.HealthHandler
	AuthMiddleware middleware.AuthMiddleware
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// TrustedProxies may set X-Forwarded-For. With none, the peer address
	// is the client address.
	TrustedProxies []*net.IPNet

	// A nil limiter disables that limit.
	APIRate   *middleware.RateLimiter
	AuthRate  *middleware.RateLimiter
	LoginRate *middleware.RateLimiter
}

func NewRouter(
	e *echo.Echo,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	healthHandler *handler.HealthHandler,
	authMiddleware middleware.AuthMiddleware,
) *Router {
	return &Router{
		Echo:           e,
		Auth:           authHandler,
		Users:          userHandler,
		Health:         healthHandler,
		AuthMiddleware: authMiddleware,
		APIRate:        middleware.PerWindow(100, 15*time.Minute),
		AuthRate:       middleware.NewRateLimiter(rate.Limit(5), 10, 5*time.Minute),
		LoginRate:      middleware.NewRateLimiter(rate.Limit(2), 4, 10*time.Minute),
	}
}

func (r *Router) RegisterRoutes() {
	e := r.Echo
	e.IPExtractor = ClientIP(r.TrustedProxies)
	requireAuth := r.AuthMiddleware.RequireAuth
	adminOnly := middleware.RequireAccountType(entity.AccountTypeAdmin)

	e.GET("/health", r.Health.Health)
	if r.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(r.Metrics))
	}

	api := e.Group("/api", limit(r.APIRate)...)

	auth := api.Group("/auth")
	auth.POST("/register", r.Auth.Register, limit(r.AuthRate)...)
	auth.POST("/login", r.Auth.Login, limit(r.LoginRate)...)
	auth.POST("/refresh", r.Auth.Refresh, limit(r.AuthRate)...)
	auth.POST("/logout", r.Auth.Logout, requireAuth)
	auth.POST("/logout-all", r.Auth.LogoutAll, requireAuth)
	auth.POST("/change-password", r.Auth.ChangePassword, append([]echo.MiddlewareFunc{requireAuth}, limit(r.LoginRate)...)...)
	auth.GET("/me", r.Auth.Me, requireAuth)

	api.GET("/profiles/:username", r.Users.PublicProfile, r.AuthMiddleware.OptionalAuth)

	users := api.Group("/users", requireAuth)
	users.GET("", r.Users.List, adminOnly)
	// echo matches the static "settings" segment ahead of :id.
	users.PUT("/settings", r.Users.UpdateSettings)
	users.GET("/:id", r.Users.Get)
	users.PUT("/:id", r.Users.Update)
	users.DELETE("/:id", r.Users.Delete, adminOnly)
	users.POST("/:id/revoke-sessions", r.Users.RevokeSessions, adminOnly)
}

// ClientIP picks the address rate limits and audit entries are keyed on.
func ClientIP(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	options := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, network := range trusted {
		options = append(options, echo.TrustIPRange(network))
	}
	return echo.ExtractIPFromXFFHeader(options...)
}

func limit(l *middleware.RateLimiter) []echo.MiddlewareFunc {
	if l == nil {
		return nil
	}
	return []echo.MiddlewareFunc{l.Middleware()}
}
