package sso

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/teamace/ballshop/pkg/auth"
	"github.com/teamace/ballshop/pkg/config"
	"github.com/teamace/ballshop/pkg/observability"
)

const (
	stateCookieName = "oauth_state"
	stateCookieTTL  = 10 * time.Minute
)

// Handlers serves the federated login endpoints.
type Handlers struct {
	registry   *Registry
	reconciler *Reconciler
	authSvc    *auth.Service
	cfg        config.OAuthConfig
	secure     bool
	logger     *observability.Logger
	metrics    *observability.Metrics
}

// NewHandlers creates the SSO handlers.
func NewHandlers(
	registry *Registry,
	reconciler *Reconciler,
	authSvc *auth.Service,
	cfg config.OAuthConfig,
	cookieSecure bool,
	logger *observability.Logger,
	metrics *observability.Metrics,
) *Handlers {
	return &Handlers{
		registry:   registry,
		reconciler: reconciler,
		authSvc:    authSvc,
		cfg:        cfg,
		secure:     cookieSecure,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterRoutes mounts the login flow on the router.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/oauth2/authorize/{provider}", h.Authorize).Methods(http.MethodGet)
	router.HandleFunc("/login/oauth2/code/{provider}", h.Callback).Methods(http.MethodGet)
}

// Authorize starts the provider handshake: generate anti-forgery state,
// stash it in a short-lived cookie and send the browser to the provider.
func (h *Handlers) Authorize(w http.ResponseWriter, r *http.Request) {
	provider, err := h.registry.Get(mux.Vars(r)["provider"])
	if err != nil {
		h.fail(w, r, "unknown provider requested", err)
		return
	}

	state, err := newState()
	if err != nil {
		h.fail(w, r, "failed to generate state", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusFound)
}

// Callback finishes the handshake: verify state, exchange the code, map the
// identity onto a local account and hand the browser a session cookie. Any
// failure sends the browser to the configured failure URL; provider details
// stay in the server log.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	providerName := mux.Vars(r)["provider"]
	provider, err := h.registry.Get(providerName)
	if err != nil {
		h.fail(w, r, "unknown provider callback", err)
		return
	}

	if !h.validState(r) {
		h.failLogin(w, r, providerName, "state mismatch", nil)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.failLogin(w, r, providerName, "missing authorization code", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.HandshakeTimeout)
	defer cancel()

	identity, err := provider.FetchIdentity(ctx, code)
	if err != nil {
		h.failLogin(w, r, providerName, "identity fetch failed", err)
		return
	}

	user, err := h.reconciler.FindOrCreate(r.Context(), identity)
	if err != nil {
		h.failLogin(w, r, providerName, "account reconciliation failed", err)
		return
	}

	token, err := h.authSvc.IssueForFederated(user)
	if err != nil {
		h.failLogin(w, r, providerName, "token issuance failed", err)
		return
	}

	if h.metrics != nil {
		h.metrics.LoginsTotal.WithLabelValues(providerName, "success").Inc()
	}
	if h.logger != nil {
		h.logger.WithFields(map[string]interface{}{
			"provider": providerName,
			"user_id":  user.ID,
		}).Info("federated login succeeded")
	}

	clearStateCookie(w, h.secure)
	http.SetCookie(w, auth.NewTokenCookie(token, h.authSvc.Codec().TTL(), h.secure))
	http.Redirect(w, r, h.cfg.PostLoginURL, http.StatusFound)
}

func (h *Handlers) validState(r *http.Request) bool {
	state := r.URL.Query().Get("state")
	if state == "" {
		return false
	}
	cookie, err := r.Cookie(stateCookieName)
	if err != nil {
		return false
	}
	return cookie.Value == state
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	h.failLogin(w, r, "unknown", message, err)
}

func (h *Handlers) failLogin(w http.ResponseWriter, r *http.Request, provider, message string, err error) {
	if h.metrics != nil {
		h.metrics.LoginsTotal.WithLabelValues(provider, "failure").Inc()
	}
	if h.logger != nil {
		logger := h.logger.WithField("provider", provider)
		if err != nil {
			logger = logger.WithError(err)
		}
		logger.Warn("federated login failed: " + message)
	}

	clearStateCookie(w, h.secure)
	http.Redirect(w, r, h.cfg.FailureURL, http.StatusFound)
}

func clearStateCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func newState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
