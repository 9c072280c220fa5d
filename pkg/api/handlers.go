package api

import (
	"context"
	"net/http"

	"github.com/teamace/ballshop/pkg/auth"
	"github.com/teamace/ballshop/pkg/httputil"
)

// UserReader looks up user records for request handling. Implemented by
// store.Users.
type UserReader interface {
	FindByEmail(ctx context.Context, email string) (*auth.User, error)
}

// currentUser resolves the caller's full user record. The RBAC gate already
// rejected anonymous requests on protected routes, so a missing principal
// here means a misconfigured route table.
func currentUser(w http.ResponseWriter, r *http.Request, users UserReader) (*auth.User, bool) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		httputil.WriteUnauthorized(w, "Authentication required")
		return nil, false
	}

	user, err := users.FindByEmail(r.Context(), principal.Email)
	if err != nil {
		// Token for a deleted account.
		httputil.WriteUnauthorized(w, "Authentication required")
		return nil, false
	}
	return user, true
}
