// Package middleware carries the authentication filter and the login rate
// limiter that sit in front of the API routes.
package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/teamace/ballshop/pkg/auth"
	"github.com/teamace/ballshop/pkg/contextkeys"
	"github.com/teamace/ballshop/pkg/observability"
)

// TokenCookieName is the cookie the filter reads and the login handlers set.
const TokenCookieName = auth.TokenCookieName

// JWTFilter resolves the caller's identity from the token cookie. It never
// rejects a request: a missing or invalid token simply leaves the request
// anonymous and access control happens downstream. Verification failures are
// logged server-side only.
type JWTFilter struct {
	codec   *auth.TokenCodec
	logger  *observability.Logger
	metrics *observability.Metrics

	// bypassPrefixes skips verification entirely for public routes.
	// excludedPaths re-enables it for routes under a bypassed prefix that
	// still need the caller's identity.
	bypassPrefixes []string
	excludedPaths  []string
}

// NewJWTFilter creates the authentication filter with the default route
// lists.
func NewJWTFilter(codec *auth.TokenCodec, logger *observability.Logger, metrics *observability.Metrics) *JWTFilter {
	return &JWTFilter{
		codec:   codec,
		logger:  logger,
		metrics: metrics,
		bypassPrefixes: []string{
			"/api/auth",
			"/api/products",
			"/api/discounted-products",
			"/uploads",
		},
		excludedPaths: []string{
			"/api/auth/check-auth",
			"/api/auth/check-role",
			"/api/auth/logout",
		},
	}
}

func (f *JWTFilter) skipVerification(path string) bool {
	for _, excluded := range f.excludedPaths {
		if path == excluded {
			return false
		}
	}
	for _, prefix := range f.bypassPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Middleware wraps the handler chain.
func (f *JWTFilter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.skipVerification(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(TokenCookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := f.codec.Verify(cookie.Value, time.Now())
		if err != nil {
			f.recordVerifyError(r, err)
			next.ServeHTTP(w, r)
			return
		}

		principal := &auth.Principal{Email: claims.Subject, Role: claims.Role}
		ctx := contextkeys.WithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (f *JWTFilter) recordVerifyError(r *http.Request, err error) {
	kind := "malformed"
	switch {
	case errors.Is(err, auth.ErrExpired):
		kind = "expired"
	case errors.Is(err, auth.ErrBadSignature):
		kind = "bad_signature"
	}

	if f.metrics != nil {
		f.metrics.TokenVerifyErrors.WithLabelValues(kind).Inc()
	}
	if f.logger != nil {
		f.logger.WithFields(map[string]interface{}{
			"path":       r.URL.Path,
			"kind":       kind,
			"request_id": contextkeys.GetRequestID(r.Context()),
		}).Warn("token verification failed, proceeding anonymous")
	}
}
