package sso

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamace/ballshop/pkg/auth"
	"github.com/teamace/ballshop/pkg/config"
)

type stubProvider struct {
	name     string
	identity *Identity
	err      error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) AuthCodeURL(state string) string {
	return "https://provider.test/authorize?state=" + state
}
func (s *stubProvider) FetchIdentity(context.Context, string) (*Identity, error) {
	return s.identity, s.err
}

func newTestHandlers(t *testing.T, provider Provider) *Handlers {
	t.Helper()

	secret := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
	codec, err := auth.NewTokenCodec(secret, auth.DefaultTTL)
	require.NoError(t, err)

	dir := newFakeDirectory()
	authSvc := auth.NewService(&directoryUserStore{dir}, auth.NewPasswordHasher(4), codec)

	registry := &Registry{providers: map[string]Provider{}}
	if provider != nil {
		registry.Register(provider)
	}

	return NewHandlers(registry, NewReconciler(dir), authSvc, config.OAuthConfig{
		PostLoginURL:     "https://front.test/",
		FailureURL:       "https://front.test/login?error=authentication_failed",
		HandshakeTimeout: 5 * time.Second,
	}, false, nil, nil)
}

// directoryUserStore adapts the test directory to the auth service's store.
type directoryUserStore struct {
	dir *fakeDirectory
}

func (d *directoryUserStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return d.dir.FindByEmail(ctx, email)
}

func (d *directoryUserStore) Create(ctx context.Context, user *auth.User) error {
	return d.dir.Create(ctx, user)
}

func newRouter(h *Handlers) *mux.Router {
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return router
}

func TestAuthorize_RedirectsWithState(t *testing.T) {
	h := newTestHandlers(t, &stubProvider{name: ProviderKakao})
	router := newRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/oauth2/authorize/kakao", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)

	var stateCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == stateCookieName {
			stateCookie = c
		}
	}
	require.NotNil(t, stateCookie, "authorize must set the state cookie")
	assert.True(t, stateCookie.HttpOnly)
	assert.Contains(t, rec.Header().Get("Location"), "state="+stateCookie.Value)
}

func TestAuthorize_UnknownProvider(t *testing.T) {
	h := newTestHandlers(t, nil)
	router := newRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/oauth2/authorize/github", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, h.cfg.FailureURL, rec.Header().Get("Location"))
}

func TestCallback_Success(t *testing.T) {
	h := newTestHandlers(t, &stubProvider{
		name:     ProviderKakao,
		identity: &Identity{Provider: ProviderKakao, ProviderID: "12345", Email: "k@kakao.test", Nickname: "s"},
	})
	router := newRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/login/oauth2/code/kakao?code=abc&state=xyz", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "xyz"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, h.cfg.PostLoginURL, rec.Header().Get("Location"))

	var jwtCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.TokenCookieName {
			jwtCookie = c
		}
	}
	require.NotNil(t, jwtCookie, "callback must set the session cookie")
	assert.True(t, jwtCookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, jwtCookie.SameSite)

	claims, err := h.authSvc.Codec().Verify(jwtCookie.Value, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "k@kakao.test", claims.Subject)
	assert.Equal(t, auth.RoleUser, claims.Role)
}

func TestCallback_StateMismatch(t *testing.T) {
	h := newTestHandlers(t, &stubProvider{
		name:     ProviderKakao,
		identity: &Identity{Provider: ProviderKakao, ProviderID: "12345", Email: "k@kakao.test"},
	})
	router := newRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/login/oauth2/code/kakao?code=abc&state=forged", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "xyz"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, h.cfg.FailureURL, rec.Header().Get("Location"))

	for _, c := range rec.Result().Cookies() {
		assert.NotEqual(t, auth.TokenCookieName, c.Name, "failed login must not set a session cookie")
	}
}

func TestCallback_ProviderErrorRedirectsToFailure(t *testing.T) {
	h := newTestHandlers(t, &stubProvider{
		name: ProviderKakao,
		err:  errors.New("provider exploded"),
	})
	router := newRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/login/oauth2/code/kakao?code=abc&state=xyz", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "xyz"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	location := rec.Header().Get("Location")
	assert.Equal(t, h.cfg.FailureURL, location)
	// Provider error details never reach the browser.
	assert.NotContains(t, location, "exploded")
}
