// Package model defines domain entities for the application.
package model

import (
	"slices"
	"time"
)

// Role is the stored role label of a user account.
// Roles are recorded only; nothing in this service enforces them.
type Role string

// Role constants.
const (
	RoleTenant       Role = "tenant"
	RoleHost         Role = "host"
	RoleAdmin        Role = "admin"
	RoleMealProvider Role = "meal_provider"
)

// DefaultRole is assigned when registration does not name a role.
const DefaultRole = RoleTenant

// ValidRoles contains all valid role values.
var ValidRoles = []Role{RoleTenant, RoleHost, RoleAdmin, RoleMealProvider}

// IsValid reports whether r is one of the enumerated roles.
func (r Role) IsValid() bool {
	return slices.Contains(ValidRoles, r)
}

// User represents a registered account.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        *string    `json:"phone"`
	PasswordHash string     `json:"-"` // Never serialize
	Role         Role       `json:"role"`
	IPAddress    string     `json:"ip_address,omitempty"`
	UserAgent    string     `json:"user_agent,omitempty"`
	LastLoginIP  *string    `json:"last_login_ip"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// LoginUpdate holds the only fields a successful login may change.
type LoginUpdate struct {
	LastLoginIP string
	LastLoginAt time.Time
	UserAgent   string
}

// Apply copies the login metadata onto u.
func (l LoginUpdate) Apply(u *User) {
	ip := l.LastLoginIP
	at := l.LastLoginAt
	u.LastLoginIP = &ip
	u.LastLoginAt = &at
	u.UserAgent = l.UserAgent
	u.UpdatedAt = l.LastLoginAt
}
