package domain

import (
	"errors"
	"strings"
	"time"
)

// Identity is a principal that can authenticate with email and password. Identities are
// never physically deleted; IsActive=false is the soft-delete flag.
type Identity struct {
	ID           string
	Email        string
	PasswordHash string // read only by the credential store and the auth service
	Role         Role
	IsVerified   bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Public returns a copy of the identity without the password hash.
func (i *Identity) Public() *Identity {
	if i == nil {
		return nil
	}
	out := *i
	out.PasswordHash = ""
	return &out
}

// Role is the principal's platform role.
type Role string

const (
	RoleUser            Role = "user"
	RoleAdmin           Role = "admin"
	RoleManager         Role = "manager"
	RoleDeliveryPartner Role = "delivery-partner"
)

// ErrInvalidRole is returned by ParseRole for unknown role names.
var ErrInvalidRole = errors.New("invalid role")

// ParseRole returns the Role for s (case-insensitive). An empty string is RoleUser.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return RoleUser, nil
	case RoleUser, RoleAdmin, RoleManager, RoleDeliveryPartner:
		return r, nil
	default:
		return "", ErrInvalidRole
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleManager, RoleDeliveryPartner:
		return true
	}
	return false
}

// NormalizeEmail lowercases and trims email; store lookups always use the normalized form.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
