package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/golang-jwt/jwt/v5"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// ErrMissingToken is returned when no bearer credential is present.
var ErrMissingToken = errors.New("missing bearer token")

// BearerToken extracts the credential from an Authorization header value. Both
// "Bearer <token>" and a bare token are accepted.
// The scheme word alone, with or without trailing spaces, carries no credential.
func BearerToken(header string) string {
	token := strings.TrimLeft(header, " \t")
	if len(token) >= len(bearerScheme) && strings.EqualFold(token[:len(bearerScheme)], bearerScheme) {
		rest := token[len(bearerScheme):]
		if rest == "" {
			return ""
		}
		if rest[0] == ' ' || rest[0] == '\t' {
			return strings.TrimSpace(rest)
		}
	}
	return strings.TrimSpace(token)
}

const bearerScheme = "bearer"

// ParseClaims reads the token claims. With a configured secret the signature and
// expiry are verified; otherwise the payload is only decoded.
func ParseClaims(cfg config.AuthConfig, token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	claims := &Claims{}
	if cfg.JWTSecret == "" {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("decode token: %w", err)
		}
		return claims, nil
	}

	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwtSigningMethod {
			return nil, fmt.Errorf("unexpected signing method %s", t.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	return claims, nil
}
