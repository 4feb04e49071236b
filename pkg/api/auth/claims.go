// Package auth provides JWT authentication for the LakeGate API.
package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType indicates whether a token is an access token or refresh token.
type TokenType string

const (
	// TokenTypeAccess is a short-lived token used for API authorization.
	TokenTypeAccess TokenType = "access"
	// TokenTypeRefresh is a long-lived token used to obtain new access tokens.
	TokenTypeRefresh TokenType = "refresh"
)

// Claims represents JWT claims for LakeGate authentication.
//
// Authorization decisions are group based: the sharing service checks
// the caller's groups against resource policies, so group membership is
// carried in the token rather than resolved per request.
type Claims struct {
	jwt.RegisteredClaims

	// Username is the human-readable username.
	Username string `json:"username"`

	// Groups is the list of team group URIs the user belongs to.
	Groups []string `json:"groups,omitempty"`

	// Role is the user's role ("admin" or "user").
	Role string `json:"role,omitempty"`

	// TokenType indicates whether this is an access or refresh token.
	TokenType TokenType `json:"token_type"`
}

// IsAccessToken returns true if this is an access token.
func (c *Claims) IsAccessToken() bool {
	return c.TokenType == TokenTypeAccess
}

// IsRefreshToken returns true if this is a refresh token.
func (c *Claims) IsRefreshToken() bool {
	return c.TokenType == TokenTypeRefresh
}

// IsAdmin returns true if the user has admin role.
func (c *Claims) IsAdmin() bool {
	return c.Role == "admin"
}

// HasGroup returns true if the user belongs to the specified group.
func (c *Claims) HasGroup(groupURI string) bool {
	return slices.Contains(c.Groups, groupURI)
}
