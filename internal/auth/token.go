// internal/auth/token.go
// Package auth implements the admin token scheme: a single shared admin
// password is exchanged for a short-lived HS256 JWT, and every mutating call
// presents that token as a bearer credential. There is no user model; the
// administrative frontend is trusted once it holds a valid token.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is how long an issued admin token stays valid.
const DefaultTokenTTL = 8 * time.Hour

// Errors returned by token validation.
var (
	ErrWrongPassword = errors.New("auth: wrong admin password")
	ErrInvalidToken  = errors.New("auth: invalid token")
	ErrExpiredToken  = errors.New("auth: token expired")
)

// Manager issues and validates admin bearer tokens.
type Manager struct {
	adminPassword string        // Shared admin secret
	signingSecret []byte        // HS256 signing key
	ttl           time.Duration // Token lifetime
}

// NewManager creates a token manager. A zero ttl selects DefaultTokenTTL.
func NewManager(adminPassword, signingSecret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Manager{
		adminPassword: adminPassword,
		signingSecret: []byte(signingSecret),
		ttl:           ttl,
	}
}

// Exchange verifies the shared admin password and returns a signed token.
func (m *Manager) Exchange(password string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(password), []byte(m.adminPassword)) != 1 {
		return "", ErrWrongPassword
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.signingSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate checks a bearer token and distinguishes expiry from every other
// failure so the surface can report it precisely.
func (m *Manager) Validate(tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.signingSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
