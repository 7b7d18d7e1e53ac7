package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ytempire/internal/dto"
	"ytempire/internal/service"

	"github.com/getsentry/sentry-go"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const internalErrorMessage = "Internal server error"

var errInvalidBody = errors.New("Invalid request body")

func writeError(c echo.Context, status int, err error) error {
	return c.JSON(status, dto.ErrorResponse{Error: err.Error()})
}

// writeServiceError answers classified service errors directly. Anything
// else is returned so ErrorHandler logs and reports it.
func writeServiceError(c echo.Context, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		return err
	}
	message, ok := service.PublicMessage(err)
	if !ok {
		message = err.Error()
	}
	return c.JSON(status, dto.ErrorResponse{Error: message})
}

func writeValidationError(c echo.Context, err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return writeError(c, http.StatusBadRequest, errInvalidBody)
	}
	details := make(map[string]string, len(fieldErrors))
	for _, fe := range fieldErrors {
		details[fe.Field()] = describeFieldError(fe)
	}
	return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: details})
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "url":
		return "must be a valid URL"
	case "timezone":
		return "must be a valid IANA timezone"
	}
	return "is invalid"
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrTokenRequired),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrExpiredToken),
		errors.Is(err, service.ErrInvalidSession),
		errors.Is(err, service.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrAccountInactive):
		return http.StatusForbidden
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// ErrorHandler is the echo.HTTPErrorHandler for the whole API. Internal
// faults are logged and sent to Sentry; the client only sees a generic
// message.
func ErrorHandler(logger logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := statusFor(err)
		message, _ := service.PublicMessage(err)

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			status = httpErr.Code
			message = http.StatusText(status)
			if text, ok := httpErr.Message.(string); ok {
				message = text
			}
			if httpErr.Internal != nil {
				err = httpErr.Internal
			}
		}

		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			status = http.StatusBadRequest
			message = errInvalidBody.Error()
		}

		if status >= http.StatusInternalServerError {
			if logger != nil {
				logger.WithError(err).WithFields(logrus.Fields{
					"method": c.Request().Method,
					"uri":    c.Request().RequestURI,
				}).Error("unhandled server error")
			}
			if hub := sentry.CurrentHub(); hub.Client() != nil {
				hub.Clone().CaptureException(err)
			}
			message = internalErrorMessage
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, dto.ErrorResponse{Error: message})
		}
		if writeErr != nil && logger != nil {
			logger.WithError(writeErr).Warn("failed to write error response")
		}
	}
}
