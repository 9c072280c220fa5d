// Package rbac evaluates request access policy. The policy is a fixed,
// ordered rule table: the first rule matching the request's method and path
// decides the outcome, and anything unmatched requires authentication.
package rbac

import (
	"net/http"
	"strings"

	"github.com/teamace/ballshop/pkg/auth"
)

// Effect is the outcome a rule mandates.
type Effect int

const (
	// EffectAllow grants access to everyone, anonymous included.
	EffectAllow Effect = iota
	// EffectAuthenticated grants access to any signed-in principal.
	EffectAuthenticated
	// EffectRequireRole grants access only to principals holding the role.
	EffectRequireRole
)

// Rule matches requests by method and path prefix. An empty Methods slice
// matches every method.
type Rule struct {
	PathPrefix string
	Methods    []string
	Effect     Effect
	Role       auth.Role
}

func (r Rule) matches(method, path string) bool {
	if !strings.HasPrefix(path, r.PathPrefix) {
		return false
	}
	if len(r.Methods) == 0 {
		return true
	}
	for _, m := range r.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// Decision is the result of evaluating a request against the policy.
type Decision int

const (
	// Allow lets the request through.
	Allow Decision = iota
	// DenyUnauthenticated rejects with 401: sign in first.
	DenyUnauthenticated
	// DenyForbidden rejects with 403: signed in but lacking the role.
	DenyForbidden
)

// Policy is an ordered rule table.
type Policy struct {
	rules []Rule
}

// NewPolicy builds a policy from rules evaluated in order.
func NewPolicy(rules []Rule) *Policy {
	return &Policy{rules: rules}
}

// DefaultPolicy returns the storefront access rules. Order matters: the
// admin rule sits above the catchall so admin routes never fall through to
// plain authenticated access.
func DefaultPolicy() *Policy {
	readOnly := []string{http.MethodGet, http.MethodHead, http.MethodOptions}
	return NewPolicy([]Rule{
		{PathPrefix: "/api/auth/", Effect: EffectAllow},
		{PathPrefix: "/oauth2/", Effect: EffectAllow},
		{PathPrefix: "/login/oauth2/", Effect: EffectAllow},
		{PathPrefix: "/api/products", Methods: readOnly, Effect: EffectAllow},
		{PathPrefix: "/api/discounted-products", Methods: readOnly, Effect: EffectAllow},
		{PathPrefix: "/api/reviews", Methods: readOnly, Effect: EffectAllow},
		{PathPrefix: "/uploads/", Methods: readOnly, Effect: EffectAllow},
		{PathPrefix: "/api/admin/", Effect: EffectRequireRole, Role: auth.RoleAdmin},
	})
}

// Evaluate returns the decision for a request. principal is nil for
// anonymous requests.
func (p *Policy) Evaluate(method, path string, principal *auth.Principal) Decision {
	for _, rule := range p.rules {
		if !rule.matches(method, path) {
			continue
		}
		switch rule.Effect {
		case EffectAllow:
			return Allow
		case EffectAuthenticated:
			if principal == nil {
				return DenyUnauthenticated
			}
			return Allow
		case EffectRequireRole:
			if principal == nil {
				return DenyUnauthenticated
			}
			if principal.Role != rule.Role {
				return DenyForbidden
			}
			return Allow
		}
	}

	// Default: any signed-in principal.
	if principal == nil {
		return DenyUnauthenticated
	}
	return Allow
}
