package sso

import (
	"context"
	"errors"
	"fmt"
)

// Provider names recognized by the factory.
const (
	ProviderKakao  = "kakao"
	ProviderNaver  = "naver"
	ProviderGoogle = "google"
)

// ErrUnknownProvider indicates a login attempt against a provider that is
// not configured.
var ErrUnknownProvider = errors.New("sso: unknown provider")

// AttributeMissingError indicates the provider's response lacked an
// attribute the reconciliation requires.
type AttributeMissingError struct {
	Provider  string
	Attribute string
}

func (e *AttributeMissingError) Error() string {
	return fmt.Sprintf("sso: provider %s response missing %s", e.Provider, e.Attribute)
}

// Identity is the normalized result of a provider handshake.
type Identity struct {
	Provider   string
	ProviderID string
	// Email may be empty; reconciliation synthesizes a placeholder then.
	Email    string
	Nickname string
}

// Provider drives one federated login flow.
type Provider interface {
	// Name returns the provider's registry name.
	Name() string

	// AuthCodeURL returns the provider's authorization URL for the given
	// anti-forgery state.
	AuthCodeURL(state string) string

	// FetchIdentity exchanges the authorization code and resolves the
	// provider's view of the user.
	FetchIdentity(ctx context.Context, code string) (*Identity, error)
}
