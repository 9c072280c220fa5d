package api

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/teamace/ballshop/pkg/auth"
	"github.com/teamace/ballshop/pkg/contextkeys"
	"github.com/teamace/ballshop/pkg/middleware"
	"github.com/teamace/ballshop/pkg/observability"
)

// memoryUsers is an in-memory user store so the auth flow tests can
// exercise register, login and session inspection end to end.
type memoryUsers struct {
	mu     sync.Mutex
	users  map[string]*auth.User
	nextID int64
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: map[string]*auth.User{}}
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, auth.ErrUserNotFound
}

func (m *memoryUsers) Create(_ context.Context, user *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return auth.ErrDuplicateEmail
	}
	for _, u := range m.users {
		if u.Nickname == user.Nickname {
			return auth.ErrDuplicateNickname
		}
	}
	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.Email] = user
	return nil
}

func testSecret() string {
	return base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
}

func testCodec(t *testing.T) *auth.TokenCodec {
	t.Helper()
	codec, err := auth.NewTokenCodec(testSecret(), auth.DefaultTTL)
	require.NoError(t, err)
	return codec
}

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

// newAuthRouter wires the auth handlers behind the token filter, the way
// the server does, minus the rest of the middleware chain.
func newAuthRouter(t *testing.T) (http.Handler, *memoryUsers, *auth.Service) {
	t.Helper()

	users := newMemoryUsers()
	svc := auth.NewService(users, auth.NewPasswordHasher(4), testCodec(t))
	handlers := NewAuthHandlers(svc, users, false, testLogger(), nil)

	router := mux.NewRouter()
	handlers.RegisterRoutes(router, nil)

	filter := middleware.NewJWTFilter(svc.Codec(), testLogger(), nil)
	return filter.Middleware(router), users, svc
}

// withPrincipal stamps an authenticated identity onto the request, standing
// in for the token filter in handler-level tests.
func withPrincipal(r *http.Request, email string, role auth.Role) *http.Request {
	ctx := contextkeys.WithPrincipal(r.Context(), &auth.Principal{Email: email, Role: role})
	return r.WithContext(ctx)
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func productTestRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "description", "price", "original_price", "discount_percent",
		"stock", "category", "image", "is_discounted", "created_at", "updated_at",
	})
}

func orderTestRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "amount", "order_name", "customer_name", "customer_phone",
		"customer_address", "payment_method", "status", "created_at", "updated_at",
	})
}

func orderItemTestRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "order_id", "product_id", "quantity", "price_at_purchase"})
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
}

// sessionCookie pulls the token cookie out of a response, or nil.
func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.TokenCookieName {
			return c
		}
	}
	return nil
}
