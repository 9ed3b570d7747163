package model

import (
	"slices"
	"time"
)

// TokenNameAuth is the label given to tokens minted by register and login.
const TokenNameAuth = "auth_token"

// AbilityAll grants every ability. Abilities are stored, not enforced.
const AbilityAll = "*"

// AuthToken represents an issued bearer token.
// Only the hash of the secret is stored; the plaintext is returned once.
type AuthToken struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	TokenHash  string     `json:"-"` // Never serialize
	Prefix     string     `json:"prefix"`
	Abilities  []string   `json:"abilities"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// IsRevoked returns true if the token has been revoked.
func (t *AuthToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// Can reports whether the token carries the given ability.
func (t *AuthToken) Can(ability string) bool {
	return slices.Contains(t.Abilities, AbilityAll) || slices.Contains(t.Abilities, ability)
}

// AuthContext holds the authenticated identity of a request.
// This is injected into the request context by auth middleware.
type AuthContext struct {
	TokenID     string
	TokenPrefix string
	UserID      string
}
