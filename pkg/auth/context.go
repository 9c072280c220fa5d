package auth

import (
	"context"

	"github.com/teamace/ballshop/pkg/contextkeys"
)

// PrincipalFromContext returns the authenticated principal, or nil for an
// anonymous request.
func PrincipalFromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(contextkeys.PrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}
