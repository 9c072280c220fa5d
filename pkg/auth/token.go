package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTTL is the fixed validity window of an issued token.
	DefaultTTL = 24 * time.Hour

	// minKeyLen is the minimum decoded signing key length for HS256.
	minKeyLen = 32
)

// Token verification errors. Callers match with errors.Is.
var (
	ErrInvalidInput = errors.New("auth: invalid input")
	ErrExpired      = errors.New("auth: token expired")
	ErrBadSignature = errors.New("auth: bad token signature")
	ErrMalformed    = errors.New("auth: malformed token")
)

// ConfigurationError indicates an unusable signing key. It is fatal: the
// process must not serve traffic with a broken codec.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("auth: configuration error: %s", e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// tokenClaims is the wire shape of the JWT payload.
type tokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// TokenCodec issues and verifies HS256-signed tokens.
type TokenCodec struct {
	key []byte
	ttl time.Duration
}

// NewTokenCodec builds a codec from a Base64-encoded secret. It fails with a
// *ConfigurationError if the secret is not valid Base64 or decodes to fewer
// than 32 bytes.
func NewTokenCodec(secretBase64 string, ttl time.Duration) (*TokenCodec, error) {
	key, err := base64.StdEncoding.DecodeString(secretBase64)
	if err != nil {
		return nil, &ConfigurationError{Reason: "signing secret is not valid Base64", Err: err}
	}
	if len(key) < minKeyLen {
		return nil, &ConfigurationError{
			Reason: fmt.Sprintf("signing key must be at least %d bytes, got %d", minKeyLen, len(key)),
		}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TokenCodec{key: key, ttl: ttl}, nil
}

// TTL returns the fixed token lifetime.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue signs a token for the subject with the canonical role claim.
// issued-at is now, expiry is now + TTL.
func (c *TokenCodec) Issue(subject string, role Role, now time.Time) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidInput)
	}
	if !role.Valid() {
		return "", fmt.Errorf("%w: unrecognized role %q", ErrInvalidInput, role)
	}

	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Role: string(role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("auth: failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a compact token string against the signing key
// and the supplied clock. It returns the claims on success, or one of
// ErrExpired, ErrBadSignature, or ErrMalformed.
func (c *TokenCodec) Verify(tokenString string, now time.Time) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMalformed
	}

	var claims tokenClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return c.key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrBadSignature
		default:
			return nil, ErrMalformed
		}
	}

	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrMalformed
	}

	out := &Claims{
		Subject: claims.Subject,
		Role:    ParseRole(claims.Role),
		Expiry:  claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
