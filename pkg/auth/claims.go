package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in the "role" claim.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Claims are the fields the storefront reads from an auth-provider token.
type Claims struct {
	UserID string `json:"userId,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the role claim is ADMIN (case-insensitive).
func (c *Claims) IsAdmin() bool {
	return c != nil && strings.EqualFold(strings.TrimSpace(c.Role), RoleAdmin)
}

// Identity returns the best available user identifier.
func (c *Claims) Identity() string {
	if c == nil {
		return ""
	}
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}
