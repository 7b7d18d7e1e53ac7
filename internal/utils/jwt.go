package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

const DefaultTokenTTL = 7 * 24 * time.Hour

type JWTManager struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	// Now overrides the signing and validation clock; nil means time.Now.
	Now func() time.Time
}

type AccessClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Sign mints an HS256 token for userID. A non-positive ttl falls back to the
// manager's TTL and then to DefaultTokenTTL.
func (m JWTManager) Sign(userID string, email string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = m.TTL
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := m.now()
	expiresAt := now.Add(ttl)
	claims := AccessClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (m JWTManager) Parse(tokenString string) (*AccessClaims, error) {
	return m.parse(tokenString, jwt.WithExpirationRequired())
}

// ParseIgnoringExpiration checks signature and structure but accepts tokens
// whose exp is in the past.
func (m JWTManager) ParseIgnoringExpiration(tokenString string) (*AccessClaims, error) {
	return m.parse(tokenString, jwt.WithoutClaimsValidation())
}

func (m JWTManager) parse(tokenString string, opts ...jwt.ParserOption) (*AccessClaims, error) {
	opts = append(opts,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.Secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m JWTManager) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}
