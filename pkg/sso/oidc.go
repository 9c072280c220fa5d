package sso

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/teamace/ballshop/pkg/config"
)

// oidcProvider handles Google login through OpenID Connect discovery. The
// identity comes from the verified ID token rather than a userinfo call.
type oidcProvider struct {
	name     string
	verifier *oidc.IDTokenVerifier
	config   *oauth2.Config
}

// NewGoogle discovers Google's OIDC endpoints and creates the provider. The
// AuthURL field of cfg carries the issuer URL.
func NewGoogle(ctx context.Context, cfg config.OAuthProvider, redirectURL string) (Provider, error) {
	provider, err := oidc.NewProvider(ctx, cfg.AuthURL)
	if err != nil {
		return nil, fmt.Errorf("sso: google discovery failed: %w", err)
	}

	return &oidcProvider{
		name:     ProviderGoogle,
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  redirectURL,
			Scopes:       cfg.Scopes,
		},
	}, nil
}

func (p *oidcProvider) Name() string { return p.name }

func (p *oidcProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

func (p *oidcProvider) FetchIdentity(ctx context.Context, code string) (*Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("sso: google token exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, &AttributeMissingError{Provider: p.name, Attribute: "id_token"}
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("sso: google id token verification failed: %w", err)
	}

	var claims struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("sso: failed to parse google claims: %w", err)
	}
	if idToken.Subject == "" {
		return nil, &AttributeMissingError{Provider: p.name, Attribute: "sub"}
	}

	return &Identity{
		Provider:   p.name,
		ProviderID: idToken.Subject,
		Email:      claims.Email,
		Nickname:   claims.Name,
	}, nil
}
