package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teamace/ballshop/pkg/auth"
	"github.com/teamace/ballshop/pkg/contextkeys"
)

func TestDefaultPolicy_Evaluate(t *testing.T) {
	user := &auth.Principal{Email: "u@x.com", Role: auth.RoleUser}
	admin := &auth.Principal{Email: "a@x.com", Role: auth.RoleAdmin}

	tests := []struct {
		name      string
		method    string
		path      string
		principal *auth.Principal
		want      Decision
	}{
		{"register is public", http.MethodPost, "/api/auth/register", nil, Allow},
		{"login is public", http.MethodPost, "/api/auth/login", nil, Allow},
		{"oauth authorize is public", http.MethodGet, "/oauth2/authorize/kakao", nil, Allow},
		{"oauth callback is public", http.MethodGet, "/login/oauth2/code/naver", nil, Allow},
		{"catalog browse is public", http.MethodGet, "/api/products", nil, Allow},
		{"catalog detail is public", http.MethodGet, "/api/products/3", nil, Allow},
		{"discounted list is public", http.MethodGet, "/api/discounted-products", nil, Allow},
		{"review read is public", http.MethodGet, "/api/reviews/product/3", nil, Allow},
		{"uploads are public", http.MethodGet, "/uploads/a/reviews/1/x.jpg", nil, Allow},
		{"review write needs auth", http.MethodPost, "/api/reviews", nil, DenyUnauthenticated},
		{"review write allowed signed in", http.MethodPost, "/api/reviews", user, Allow},
		{"cart needs auth", http.MethodGet, "/api/cart", nil, DenyUnauthenticated},
		{"cart allowed signed in", http.MethodGet, "/api/cart", user, Allow},
		{"orders need auth", http.MethodPost, "/api/orders", nil, DenyUnauthenticated},
		{"admin anonymous gets 401", http.MethodPost, "/api/admin/products", nil, DenyUnauthenticated},
		{"admin as user gets 403", http.MethodPost, "/api/admin/products", user, DenyForbidden},
		{"admin as admin allowed", http.MethodPost, "/api/admin/products", admin, Allow},
		{"admin GET still role gated", http.MethodGet, "/api/admin/orders", user, DenyForbidden},
		{"unknown path needs auth", http.MethodGet, "/api/unknown", nil, DenyUnauthenticated},
		{"unknown path allowed signed in", http.MethodGet, "/api/unknown", user, Allow},
	}

	policy := DefaultPolicy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.Evaluate(tt.method, tt.path, tt.principal)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPolicy_FirstMatchWins(t *testing.T) {
	// A broad allow placed above a role rule masks it; order is the policy.
	policy := NewPolicy([]Rule{
		{PathPrefix: "/api/", Effect: EffectAllow},
		{PathPrefix: "/api/admin/", Effect: EffectRequireRole, Role: auth.RoleAdmin},
	})

	assert.Equal(t, Allow, policy.Evaluate(http.MethodPost, "/api/admin/products", nil))
}

func TestGate(t *testing.T) {
	handler := Gate(DefaultPolicy())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("anonymous on protected route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("user on admin route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/products", nil)
		principal := &auth.Principal{Email: "u@x.com", Role: auth.RoleUser}
		req = req.WithContext(contextkeys.WithPrincipal(req.Context(), principal))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin on admin route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/products", nil)
		principal := &auth.Principal{Email: "a@x.com", Role: auth.RoleAdmin}
		req = req.WithContext(contextkeys.WithPrincipal(req.Context(), principal))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("anonymous on public route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
