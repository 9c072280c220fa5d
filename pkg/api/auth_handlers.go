package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/teamace/ballshop/pkg/auth"
	"github.com/teamace/ballshop/pkg/httputil"
	"github.com/teamace/ballshop/pkg/observability"
)

// AuthHandlers serves registration, login and session inspection.
type AuthHandlers struct {
	authSvc      *auth.Service
	users        UserReader
	cookieSecure bool
	logger       *observability.Logger
	metrics      *observability.Metrics
}

// NewAuthHandlers creates the auth handlers.
func NewAuthHandlers(authSvc *auth.Service, users UserReader, cookieSecure bool, logger *observability.Logger, metrics *observability.Metrics) *AuthHandlers {
	return &AuthHandlers{
		authSvc:      authSvc,
		users:        users,
		cookieSecure: cookieSecure,
		logger:       logger,
		metrics:      metrics,
	}
}

// RegisterRoutes mounts the auth endpoints. rateLimit wraps the login
// endpoint only.
func (h *AuthHandlers) RegisterRoutes(router *mux.Router, rateLimit func(http.Handler) http.Handler) {
	router.HandleFunc("/api/auth/register", h.Register).Methods(http.MethodPost)

	login := http.HandlerFunc(h.Login)
	if rateLimit != nil {
		router.Handle("/api/auth/login", rateLimit(login)).Methods(http.MethodPost)
	} else {
		router.Handle("/api/auth/login", login).Methods(http.MethodPost)
	}

	router.HandleFunc("/api/auth/logout", h.Logout).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/check-auth", h.CheckAuth).Methods(http.MethodGet)
	router.HandleFunc("/api/auth/check-role", h.CheckRole).Methods(http.MethodGet)
}

// Register creates a local account.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := h.authSvc.Register(r.Context(), req.Email, req.Password, req.Nickname)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrDuplicateEmail):
			httputil.WriteConflict(w, "Email already in use")
		case errors.Is(err, auth.ErrDuplicateNickname):
			httputil.WriteConflict(w, "Nickname already in use")
		case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidInput):
			httputil.WriteBadRequest(w, err.Error())
		default:
			if h.logger != nil {
				h.logger.WithError(err).Error("registration failed")
			}
			httputil.WriteInternalError(w, errors.New("registration failed"))
		}
		return
	}

	httputil.WriteCreated(w, map[string]string{
		"email":    user.Email,
		"nickname": user.Nickname,
	})
}

// Login verifies credentials and hands out the session cookie. All failures
// look the same to the caller.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	token, user, err := h.authSvc.LoginLocal(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		if h.metrics != nil {
			h.metrics.LoginsTotal.WithLabelValues("local", "failure").Inc()
		}
		httputil.WriteUnauthorized(w, "Invalid email or password")
		return
	}

	if h.metrics != nil {
		h.metrics.LoginsTotal.WithLabelValues("local", "success").Inc()
	}
	if h.logger != nil {
		h.logger.WithField("user_id", user.ID).Info("login succeeded")
	}

	http.SetCookie(w, auth.NewTokenCookie(token, h.authSvc.Codec().TTL(), h.cookieSecure))
	httputil.WriteSuccess(w, LoginResponse{Nickname: user.Nickname})
}

// Logout clears the session cookie. It succeeds whether or not a session
// exists.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.ClearTokenCookie(h.cookieSecure))
	httputil.WriteSuccessMessage(w, "Logged out", nil)
}

// CheckAuth reports the caller's session state. Anonymous callers get a 200
// with isAuthenticated false rather than an error.
func (h *AuthHandlers) CheckAuth(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		httputil.WriteSuccess(w, AuthStatusResponse{IsAuthenticated: false})
		return
	}

	resp := AuthStatusResponse{
		IsAuthenticated: true,
		Email:           principal.Email,
		Role:            string(principal.Role),
	}
	if user, err := h.users.FindByEmail(r.Context(), principal.Email); err == nil {
		resp.Nickname = user.Nickname
	}
	httputil.WriteSuccess(w, resp)
}

// CheckRole reports the caller's authorities in prefixed form.
func (h *AuthHandlers) CheckRole(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	resp := RoleResponse{Roles: principal.Authorities()}
	if user, err := h.users.FindByEmail(r.Context(), principal.Email); err == nil {
		resp.Nickname = user.Nickname
	}
	httputil.WriteSuccess(w, resp)
}
