package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	// DB is nil when the process runs on the in-memory store.
	DB      Pinger
	Timeout time.Duration
	Now     func() time.Time
	Logger  logrus.FieldLogger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{DB: db, Timeout: 2 * time.Second, Now: time.Now}
}

func (h *HealthHandler) Health(c echo.Context) error {
	status := http.StatusOK
	body := map[string]any{
		"status":    "ok",
		"timestamp": h.now().UTC().Format(time.RFC3339),
		"database":  "memory",
	}
	if h.DB != nil {
		timeout := h.Timeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()
		if err := h.DB.PingContext(ctx); err != nil {
			if h.Logger != nil {
				h.Logger.WithError(err).Warn("health check: database ping failed")
			}
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["database"] = "unreachable"
		} else {
			body["database"] = "connected"
		}
	}
	return c.JSON(status, body)
}

func (h *HealthHandler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}
