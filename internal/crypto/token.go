// Package crypto holds access-token helpers for the backend API.
package crypto

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the JWT payload issued by the backend.
type TokenClaims struct {
	UserID string                 `json:"user"`
	Extras map[string]interface{} `json:"extras,omitempty"`
	jwt.RegisteredClaims
}

// ParseTokenClaims decodes the claims of an access token without verifying
// its signature. The client has no verification key; the backend remains
// the authority. This is used for observability only: knowing which user a
// token belongs to and whether it has already expired.
func ParseTokenClaims(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return claims, nil
}

// ExpiresWithin reports whether the token expires before now+window. Tokens
// without an expiry claim never report true.
func (c *TokenClaims) ExpiresWithin(now time.Time, window time.Duration) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return c.ExpiresAt.Before(now.Add(window))
}
