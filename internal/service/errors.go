package service

import "errors"

// Error kinds. Each maps to one HTTP status in the handler layer.
var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrAccountInactive    = errors.New("account is not active")
	ErrUserNotFound       = errors.New("user not found")
	ErrTokenRequired      = errors.New("access token required")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token expired")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrSessionExpired     = errors.New("session expired")
)

// Error pairs an error kind with the message shown to the client.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

var errPasswordTooLong = newError(ErrValidation, "Password must be at most 72 bytes")

func newError(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

// PublicMessage returns the client-facing text carried by err, if any.
func PublicMessage(err error) (string, bool) {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Message, true
	}
	return "", false
}
