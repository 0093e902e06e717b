// internal/auth/token_test.go
// Package auth provides unit tests for the admin token scheme.
package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestExchangeAndValidate verifies the happy path: the correct password
// yields a token that validates.
func TestExchangeAndValidate(t *testing.T) {
	m := NewManager("hunter2", "signing-secret", 0)

	token, err := m.Exchange("hunter2")
	if err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}
	if err := m.Validate(token); err != nil {
		t.Errorf("valid token rejected: %v", err)
	}
}

// TestExchangeWrongPassword verifies the wrong password is rejected without
// issuing anything.
func TestExchangeWrongPassword(t *testing.T) {
	m := NewManager("hunter2", "signing-secret", 0)

	if _, err := m.Exchange("hunter3"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}
}

// TestValidateRejectsGarbage verifies malformed tokens fail with
// ErrInvalidToken.
func TestValidateRejectsGarbage(t *testing.T) {
	m := NewManager("hunter2", "signing-secret", 0)

	if err := m.Validate("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

// TestValidateRejectsForeignSignature verifies a token signed with a
// different secret fails validation.
func TestValidateRejectsForeignSignature(t *testing.T) {
	issuer := NewManager("hunter2", "other-secret", 0)
	m := NewManager("hunter2", "signing-secret", 0)

	token, err := issuer.Exchange("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for foreign signature, got %v", err)
	}
}

// TestValidateRejectsExpired verifies an expired token is reported as
// expired, not merely invalid.
func TestValidateRejectsExpired(t *testing.T) {
	m := NewManager("hunter2", "signing-secret", 0)

	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("signing-secret"))
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Validate(expired); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

// TestValidateRejectsUnsignedAlg verifies the none algorithm is refused.
func TestValidateRejectsUnsignedAlg(t *testing.T) {
	m := NewManager("hunter2", "signing-secret", 0)

	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Validate(unsigned); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for alg=none, got %v", err)
	}
}
