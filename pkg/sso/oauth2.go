package sso

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/teamace/ballshop/pkg/config"
)

// oauth2Provider is the plain OAuth2 flow shared by Kakao and Naver. The
// providers differ only in how their userinfo payload is shaped, which the
// parse function absorbs.
type oauth2Provider struct {
	name   string
	config *oauth2.Config
	// userInfoURL is fetched with the bearer token after the exchange.
	userInfoURL string
	parse       func(body []byte) (*Identity, error)
}

// NewKakao creates the Kakao login provider.
func NewKakao(cfg config.OAuthProvider, redirectURL string) Provider {
	return &oauth2Provider{
		name: ProviderKakao,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oauth2.Endpoint{AuthURL: cfg.AuthURL, TokenURL: cfg.TokenURL},
			RedirectURL:  redirectURL,
			Scopes:       cfg.Scopes,
		},
		userInfoURL: cfg.UserInfoURL,
		parse:       parseKakaoUserInfo,
	}
}

// NewNaver creates the Naver login provider.
func NewNaver(cfg config.OAuthProvider, redirectURL string) Provider {
	return &oauth2Provider{
		name: ProviderNaver,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oauth2.Endpoint{AuthURL: cfg.AuthURL, TokenURL: cfg.TokenURL},
			RedirectURL:  redirectURL,
			Scopes:       cfg.Scopes,
		},
		userInfoURL: cfg.UserInfoURL,
		parse:       parseNaverUserInfo,
	}
}

func (p *oauth2Provider) Name() string { return p.name }

func (p *oauth2Provider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

func (p *oauth2Provider) FetchIdentity(ctx context.Context, code string) (*Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("sso: %s token exchange failed: %w", p.name, err)
	}

	client := p.config.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("sso: %s userinfo request failed: %w", p.name, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sso: %s userinfo fetch failed: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("sso: %s userinfo returned status %d: %s", p.name, resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("sso: %s userinfo read failed: %w", p.name, err)
	}
	return p.parse(body)
}

// parseKakaoUserInfo handles Kakao's shape: a numeric top-level id with the
// email and profile nested under kakao_account.
func parseKakaoUserInfo(body []byte) (*Identity, error) {
	var payload struct {
		ID           json.Number `json:"id"`
		KakaoAccount struct {
			Email   string `json:"email"`
			Profile struct {
				Nickname string `json:"nickname"`
			} `json:"profile"`
		} `json:"kakao_account"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("sso: failed to decode kakao userinfo: %w", err)
	}
	if payload.ID.String() == "" {
		return nil, &AttributeMissingError{Provider: ProviderKakao, Attribute: "id"}
	}

	return &Identity{
		Provider:   ProviderKakao,
		ProviderID: payload.ID.String(),
		Email:      payload.KakaoAccount.Email,
		Nickname:   payload.KakaoAccount.Profile.Nickname,
	}, nil
}

// parseNaverUserInfo handles Naver's shape: everything sits under a
// top-level response object.
func parseNaverUserInfo(body []byte) (*Identity, error) {
	var payload struct {
		Response struct {
			ID       string `json:"id"`
			Email    string `json:"email"`
			Nickname string `json:"nickname"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("sso: failed to decode naver userinfo: %w", err)
	}
	if payload.Response.ID == "" {
		return nil, &AttributeMissingError{Provider: ProviderNaver, Attribute: "response.id"}
	}

	return &Identity{
		Provider:   ProviderNaver,
		ProviderID: payload.Response.ID,
		Email:      payload.Response.Email,
		Nickname:   payload.Response.Nickname,
	}, nil
}
