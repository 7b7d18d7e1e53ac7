package service

import (
	"time"

	"ytempire/internal/entity"
	"ytempire/internal/utils"
)

type AuthConfig struct {
	TokenTTL time.Duration
	// RegistrationTypes limits the account types Register accepts. Empty
	// allows every valid type.
	RegistrationTypes []entity.AccountType
}

func (c AuthConfig) allowsRegistration(accountType entity.AccountType) bool {
	if len(c.RegistrationTypes) == 0 {
		return true
	}
	for _, allowed := range c.RegistrationTypes {
		if allowed == accountType {
			return true
		}
	}
	return false
}

type TokenIssuer interface {
	Issue(user entity.User) (string, time.Time, error)
	Verify(token string) (*utils.AccessClaims, error)
	VerifyIgnoringExpiration(token string) (*utils.AccessClaims, error)
}

// Recorder receives one call per authentication outcome.
type Recorder interface {
	AuthEvent(event string, outcome string)
}

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}
