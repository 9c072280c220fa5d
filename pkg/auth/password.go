package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is enforced on registration.
const MinPasswordLength = 8

// PasswordHasher wraps bcrypt with an adjustable cost factor.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a hasher. Costs outside bcrypt's valid range fall
// back to the library default.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash derives a salted one-way hash from the plaintext password.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("auth: failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Compare reports whether the plaintext matches the stored hash. The
// comparison is intentionally slow; do not call it on hot paths.
func (h *PasswordHasher) Compare(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// UnusablePassword returns a placeholder hash for federated-only accounts.
// The value is random and never hashed, so Compare can never succeed for it.
func UnusablePassword() string {
	buf := make([]byte, 24)
	rand.Read(buf)
	return "!federated:" + base64.RawURLEncoding.EncodeToString(buf)
}
