package auth

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "test-secret"

func newTestValidator(t *testing.T, clock func() time.Time) *SessionValidator {
	t.Helper()
	validator, err := NewSessionValidator(SessionValidatorConfig{
		SigningSecret: []byte(testSecret),
		Issuer:        "inventa-auth",
		Clock:         clock,
	})
	if err != nil {
		t.Fatalf("failed to create validator: %v", err)
	}
	return validator
}

func TestIssueAndValidateRoundTrip(t *testing.T) {
	now := time.Unix(1770000000, 0).UTC()
	issuer := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte(testSecret),
		Issuer:        "inventa-auth",
		TokenTTL:      time.Hour,
		Clock:         func() time.Time { return now },
	})

	token, expiresIn, err := issuer.IssueToken("user-1", "user@example.com", "Example User", []string{"USER"})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if expiresIn != 3600 {
		t.Fatalf("expected 3600 second expiry, got %d", expiresIn)
	}

	validator := newTestValidator(t, func() time.Time { return now.Add(time.Minute) })
	claims, err := validator.ValidateToken(token)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("expected subject user-1, got %q", claims.Subject)
	}
	if claims.UserEmail != "user@example.com" {
		t.Fatalf("expected email claim, got %q", claims.UserEmail)
	}
	if len(claims.UserRoles) != 1 || claims.UserRoles[0] != "USER" {
		t.Fatalf("expected roles claim, got %v", claims.UserRoles)
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	now := time.Unix(1770000000, 0).UTC()
	issuer := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte(testSecret),
		Issuer:        "inventa-auth",
		TokenTTL:      time.Minute,
		Clock:         func() time.Time { return now },
	})
	token, _, err := issuer.IssueToken("user-1", "user@example.com", "", nil)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	validator := newTestValidator(t, func() time.Time { return now.Add(2 * time.Minute) })
	if _, err := validator.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("other-secret"),
		Issuer:        "inventa-auth",
	})
	token, _, err := issuer.IssueToken("user-1", "user@example.com", "", nil)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	validator := newTestValidator(t, nil)
	if _, err := validator.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateTokenRejectsWrongIssuer(t *testing.T) {
	issuer := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte(testSecret),
		Issuer:        "someone-else",
	})
	token, _, err := issuer.IssueToken("user-1", "user@example.com", "", nil)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	validator := newTestValidator(t, nil)
	if _, err := validator.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for issuer mismatch, got %v", err)
	}
}

func TestValidateTokenRejectsEmpty(t *testing.T) {
	validator := newTestValidator(t, nil)
	if _, err := validator.ValidateToken("  "); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestIssueTokenRequiresSubject(t *testing.T) {
	issuer := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte(testSecret),
		Issuer:        "inventa-auth",
	})
	if _, _, err := issuer.IssueToken("", "user@example.com", "", nil); !errors.Is(err, ErrMissingSubject) {
		t.Fatalf("expected ErrMissingSubject, got %v", err)
	}
}

func TestNewSessionValidatorRequiresConfig(t *testing.T) {
	if _, err := NewSessionValidator(SessionValidatorConfig{Issuer: "x"}); !errors.Is(err, ErrMissingSigningSecret) {
		t.Fatalf("expected ErrMissingSigningSecret, got %v", err)
	}
	if _, err := NewSessionValidator(SessionValidatorConfig{SigningSecret: []byte("x")}); !errors.Is(err, ErrMissingIssuer) {
		t.Fatalf("expected ErrMissingIssuer, got %v", err)
	}
}
