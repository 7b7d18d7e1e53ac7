package service

import (
	"errors"
	"time"

	"ytempire/internal/entity"
	"ytempire/internal/utils"
)

// JWTTokenIssuer binds users to signed tokens. Every token carries the same
// claim set: userId and email.
type JWTTokenIssuer struct {
	Manager *utils.JWTManager
	TTL     time.Duration
}

func (j JWTTokenIssuer) Issue(user entity.User) (string, time.Time, error) {
	if j.Manager == nil {
		return "", time.Time{}, errors.New("token issuer not configured")
	}
	return j.Manager.Sign(user.ID.String(), user.Email, j.TTL)
}

func (j JWTTokenIssuer) Verify(token string) (*utils.AccessClaims, error) {
	if j.Manager == nil {
		return nil, ErrInvalidToken
	}
	claims, err := j.Manager.Parse(token)
	return claims, mapTokenError(err)
}

func (j JWTTokenIssuer) VerifyIgnoringExpiration(token string) (*utils.AccessClaims, error) {
	if j.Manager == nil {
		return nil, ErrInvalidToken
	}
	claims, err := j.Manager.ParseIgnoringExpiration(token)
	return claims, mapTokenError(err)
}

func mapTokenError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, utils.ErrExpiredToken):
		return newError(ErrExpiredToken, "Token expired")
	default:
		return newError(ErrInvalidToken, "Invalid token")
	}
}
