package rbac

import (
	"net/http"

	"github.com/teamace/ballshop/pkg/auth"
	"github.com/teamace/ballshop/pkg/httputil"
)

// Gate enforces the policy for every request. It expects the authentication
// filter to have already resolved the principal into the request context.
func Gate(policy *Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := auth.PrincipalFromContext(r.Context())

			switch policy.Evaluate(r.Method, r.URL.Path, principal) {
			case Allow:
				next.ServeHTTP(w, r)
			case DenyUnauthenticated:
				httputil.WriteUnauthorized(w, "Authentication required")
			case DenyForbidden:
				httputil.WriteForbidden(w, "Insufficient permissions")
			}
		})
	}
}

// RequireRole guards a single route with a role check, for handlers mounted
// outside the policy table.
func RequireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := auth.PrincipalFromContext(r.Context())
			if principal == nil {
				httputil.WriteUnauthorized(w, "Authentication required")
				return
			}
			if principal.Role != role {
				httputil.WriteForbidden(w, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
