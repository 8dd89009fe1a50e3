package store

import (
	"errors"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

func newTestIssuer(t *testing.T, now *time.Time) *JWTSessionIssuer {
	t.Helper()
	issuer, err := NewJWTSessionIssuer("test-secret", JWTOptions{
		Now: func() time.Time { return *now },
	})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	return issuer
}

func TestJWTSessionIssuerRoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(t, &now)

	token, err := issuer.Issue("user-1", "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	identity, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.UserID != "user-1" || identity.Username != "alice" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if want := now.Add(24 * time.Hour); !identity.ExpiresAt.Equal(want) {
		t.Fatalf("expiresAt = %v, want %v", identity.ExpiresAt, want)
	}
}

func TestJWTSessionIssuerRejectsExpiredToken(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(t, &now)

	token, err := issuer.Issue("user-1", "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	now = now.Add(24*time.Hour - time.Minute)
	if _, err := issuer.Verify(token); err != nil {
		t.Fatalf("token should still be valid just before expiry: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := issuer.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid after 24h, got %v", err)
	}
}

func TestJWTSessionIssuerRejectsMissingToken(t *testing.T) {
	now := time.Now()
	issuer := newTestIssuer(t, &now)
	for _, token := range []string{"", "   "} {
		if _, err := issuer.Verify(token); !errors.Is(err, ErrTokenRequired) {
			t.Fatalf("Verify(%q) = %v, want ErrTokenRequired", token, err)
		}
	}
}

func TestJWTSessionIssuerRejectsTamperedAndForeignTokens(t *testing.T) {
	now := time.Now()
	issuer := newTestIssuer(t, &now)
	token, err := issuer.Issue("user-1", "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)
	if _, err := issuer.Verify(tampered); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected tampered token to fail, got %v", err)
	}

	other, err := NewJWTSessionIssuer("other-secret", JWTOptions{})
	if err != nil {
		t.Fatalf("new other issuer: %v", err)
	}
	foreign, err := other.Issue("user-1", "alice")
	if err != nil {
		t.Fatalf("issue foreign: %v", err)
	}
	if _, err := issuer.Verify(foreign); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected token signed with another secret to fail, got %v", err)
	}

	if _, err := issuer.Verify("not-a-jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected malformed token to fail, got %v", err)
	}
}

func TestJWTSessionIssuerRejectsUnexpectedAlgorithm(t *testing.T) {
	now := time.Now()
	issuer := newTestIssuer(t, &now)
	claims := sessionClaims{
		UserID:   "user-1",
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    defaultJWTIssuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}
	if _, err := issuer.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected alg=none token to fail, got %v", err)
	}
}

func TestNewJWTSessionIssuerRequiresSecret(t *testing.T) {
	if _, err := NewJWTSessionIssuer(" ", JWTOptions{}); err == nil {
		t.Fatalf("expected empty secret to fail")
	}
}
