package auth

import (
	"testing"
	"time"

	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/golang-jwt/jwt/v5"
)

func mint(t *testing.T, secret, role string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: "42",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user@example.com",
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"abc":          "abc",
		"":             "",
		"Bearer ":      "",
		"Bearer":       "",
		"BEARER   ":    "",
		"Bearerabc":    "Bearerabc",
	}
	for in, want := range cases {
		if got := BearerToken(in); got != want {
			t.Fatalf("BearerToken(%q) = %q want %q", in, got, want)
		}
	}
}

func TestParseClaimsUnverifiedDecodesRole(t *testing.T) {
	token := mint(t, "whatever", RoleAdmin, time.Now().Add(time.Hour))
	claims, err := ParseClaims(config.AuthConfig{}, token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !claims.IsAdmin() || claims.Identity() != "42" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestParseClaimsVerifiesWithSecret(t *testing.T) {
	cfg := config.AuthConfig{JWTSecret: "s3cret"}

	good := mint(t, "s3cret", RoleUser, time.Now().Add(time.Hour))
	claims, err := ParseClaims(cfg, good)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.IsAdmin() {
		t.Fatal("USER must not be admin")
	}

	if _, err := ParseClaims(cfg, mint(t, "other", RoleAdmin, time.Now().Add(time.Hour))); err == nil {
		t.Fatal("expected signature failure")
	}
	if _, err := ParseClaims(cfg, mint(t, "s3cret", RoleAdmin, time.Now().Add(-time.Hour))); err == nil {
		t.Fatal("expected expiry failure")
	}
}

func TestParseClaimsRejectsGarbage(t *testing.T) {
	if _, err := ParseClaims(config.AuthConfig{}, "not-a-jwt"); err == nil {
		t.Fatal("expected decode failure")
	}
	if _, err := ParseClaims(config.AuthConfig{}, ""); err != ErrMissingToken {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestIdentityFallsBackToSubject(t *testing.T) {
	c := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "sub-1"}}
	if c.Identity() != "sub-1" {
		t.Fatalf("expected subject fallback, got %q", c.Identity())
	}
	var nilClaims *Claims
	if nilClaims.IsAdmin() || nilClaims.Identity() != "" {
		t.Fatal("nil claims should be empty")
	}
}
