package auth

import (
	"strings"
	"time"
)

// Role is the closed set of roles a user can hold.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// rolePrefix is the namespace marker used on the wire by authority strings.
// Claims always carry the canonical unprefixed form.
const rolePrefix = "ROLE_"

// ParseRole normalizes a role string into a canonical Role. A "ROLE_" prefix
// is stripped if present. Unknown or empty input falls back to RoleUser.
func ParseRole(s string) Role {
	s = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), rolePrefix)
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleUser
	}
}

// Valid reports whether the role is one of the enumerated values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Authority returns the prefixed wire form consumed by the policy evaluator.
func (r Role) Authority() string {
	return rolePrefix + string(r)
}

func (r Role) String() string {
	return string(r)
}

// Claims is the validated payload of a token.
type Claims struct {
	Subject  string    // user email
	Role     Role      // canonical role
	IssuedAt time.Time
	Expiry   time.Time
}

// Principal is the request-scoped security context derived from a valid
// token. It is created fresh per request by the authentication filter and
// never shared across requests.
type Principal struct {
	Email string
	Role  Role
}

// Authorities returns the granted authority strings for the principal.
func (p *Principal) Authorities() []string {
	if p == nil {
		return nil
	}
	return []string{p.Role.Authority()}
}

// IsAdmin reports whether the principal holds the ADMIN role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// User is a local user record. Provider and ProviderID are set only for
// accounts created through a federated login.
type User struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Password   string    `json:"-"` // bcrypt hash, never serialized
	Nickname   string    `json:"nickname"`
	Role       Role      `json:"role"`
	Provider   string    `json:"provider,omitempty"`
	ProviderID string    `json:"provider_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Federated reports whether the account was created by an external identity
// provider. Federated-only accounts carry an unusable password hash and can
// never authenticate with a local password.
func (u *User) Federated() bool {
	return u.Provider != ""
}
