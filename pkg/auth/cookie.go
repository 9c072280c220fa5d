package auth

import (
	"net/http"
	"time"
)

// TokenCookieName is the cookie that carries the signed token.
const TokenCookieName = "jwt"

// NewTokenCookie builds the session cookie for a freshly issued token. The
// cookie is HttpOnly and SameSite=Strict; secure should only be disabled for
// local development over plain HTTP.
func NewTokenCookie(token string, ttl time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// ClearTokenCookie builds an expired cookie that removes the session.
func ClearTokenCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}
