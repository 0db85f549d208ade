package auth

import (
	"strings"
	"time"
)

// Role is the coarse role stored on an identity and embedded in access tokens.
type Role string

const (
	RoleSeller Role = "SELLER"
	RoleAdmin  Role = "ADMIN"
)

// ParseRole normalises a stored or claimed role string.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleSeller:
		return RoleSeller, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// Authority is the granted authority derived from the role.
func (r Role) Authority() string {
	if r == RoleAdmin {
		return "ROLE_ADMIN"
	}
	return "ROLE_SELLER"
}

// Identity is the live user record the core cross-checks token claims against.
type Identity struct {
	ID           int64
	Email        string
	Role         Role
	Enabled      bool
	Active       bool
	PasswordHash string
	CreatedAt    time.Time
}

// Authority returns ROLE_ADMIN or ROLE_SELLER.
func (i Identity) Authority() string { return i.Role.Authority() }

// NormalizeEmail trims and lower-cases an address; emails compare case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
