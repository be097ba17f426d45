package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are operator access-token claims. Tokens are issued by the BarTab
// auth service and carry the scopes the conductor routes check.
type Claims struct {
	jwt.RegisteredClaims

	// Permission scopes, e.g. "peers:read", "peers:write"
	Scopes []string `json:"scopes,omitempty"`

	// Username for the authenticated operator, recorded in audit fields
	Username string `json:"username,omitempty"`
}

// NewClaims builds claims for subject valid for ttl.
func NewClaims(subject, issuer string, scopes []string, ttl time.Duration) Claims {
	now := time.Now().UTC()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Scopes: scopes,
	}
}

// HasScope reports whether the claims grant scope.
func (c Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// Actor is the name recorded in audit fields for this caller.
func (c Claims) Actor() string {
	if c.Username != "" {
		return c.Username
	}
	return c.Subject
}
