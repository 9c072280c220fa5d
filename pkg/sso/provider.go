package sso

import (
	"context"
	"fmt"

	"github.com/teamace/ballshop/pkg/config"
)

// Registry holds the configured login providers keyed by name.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds the provider set from configuration. Providers with no
// client ID are left unregistered rather than failing startup, so a
// deployment can enable only the logins it has credentials for. Google needs
// a network round trip for OIDC discovery, which is why the context.
func NewRegistry(ctx context.Context, cfg config.OAuthConfig) (*Registry, error) {
	providers := make(map[string]Provider)

	if cfg.Kakao.ClientID != "" {
		providers[ProviderKakao] = NewKakao(cfg.Kakao, callbackURL(cfg.RedirectBase, ProviderKakao))
	}
	if cfg.Naver.ClientID != "" {
		providers[ProviderNaver] = NewNaver(cfg.Naver, callbackURL(cfg.RedirectBase, ProviderNaver))
	}
	if cfg.Google.ClientID != "" {
		google, err := NewGoogle(ctx, cfg.Google, callbackURL(cfg.RedirectBase, ProviderGoogle))
		if err != nil {
			return nil, err
		}
		providers[ProviderGoogle] = google
	}

	return &Registry{providers: providers}, nil
}

// Get returns the named provider or ErrUnknownProvider.
func (r *Registry) Get(name string) (Provider, error) {
	provider, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return provider, nil
}

// Names lists the registered provider names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// Register adds or replaces a provider, mainly for tests.
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

func callbackURL(base, provider string) string {
	return base + "/login/oauth2/code/" + provider
}
