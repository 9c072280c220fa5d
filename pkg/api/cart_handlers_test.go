package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamace/ballshop/pkg/auth"
	"github.com/teamace/ballshop/pkg/store"
)

func newCartRouter(t *testing.T) (*mux.Router, sqlmock.Sqlmock, *auth.User) {
	t.Helper()

	db, mock := newMockDB(t)
	user := &auth.User{ID: 7, Email: "sam@x.com", Nickname: "sam", Role: auth.RoleUser}

	handlers := NewCartHandlers(store.NewCarts(db), store.NewProducts(db), &fixedUser{user: user})
	router := mux.NewRouter()
	handlers.RegisterRoutes(router)
	return router, mock, user
}

func TestAddToCart(t *testing.T) {
	router, mock, user := newCartRouter(t)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM products WHERE id").
		WithArgs(int64(3)).
		WillReturnRows(productTestRows().
			AddRow(int64(3), "Rosin Bag", "", 8000, nil, nil, 30, "accessories", "", false, now, now))
	mock.ExpectQuery("INSERT INTO cart_items").
		WithArgs(user.ID, int64(3), 2, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "quantity", "created_at", "updated_at"}).
			AddRow(int64(11), 2, now, now))

	rec := authedJSON(t, router, user, http.MethodPost, "/api/cart",
		`{"productId":3,"quantity":2}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var item store.CartItem
	decodeBody(t, rec, &item)
	assert.Equal(t, int64(11), item.ID)
	assert.Equal(t, 2, item.Quantity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddToCart_UnknownProduct(t *testing.T) {
	router, mock, user := newCartRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM products WHERE id").
		WithArgs(int64(99)).
		WillReturnRows(productTestRows())

	rec := authedJSON(t, router, user, http.MethodPost, "/api/cart",
		`{"productId":99,"quantity":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddToCart_DefaultQuantity(t *testing.T) {
	router, mock, user := newCartRouter(t)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM products WHERE id").
		WithArgs(int64(3)).
		WillReturnRows(productTestRows().
			AddRow(int64(3), "Rosin Bag", "", 8000, nil, nil, 30, "accessories", "", false, now, now))
	// Quantity omitted from the request defaults to one.
	mock.ExpectQuery("INSERT INTO cart_items").
		WithArgs(user.ID, int64(3), 1, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "quantity", "created_at", "updated_at"}).
			AddRow(int64(11), 1, now, now))

	rec := authedJSON(t, router, user, http.MethodPost, "/api/cart", `{"productId":3}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCartQuantity_NotFound(t *testing.T) {
	router, mock, user := newCartRouter(t)

	mock.ExpectExec("UPDATE cart_items SET quantity").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := authedJSON(t, router, user, http.MethodPut, "/api/cart/55", `{"quantity":3}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveFromCart_ScopedToUser(t *testing.T) {
	router, mock, user := newCartRouter(t)

	mock.ExpectExec("DELETE FROM cart_items WHERE id").
		WithArgs(int64(55), user.ID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := authedJSON(t, router, user, http.MethodDelete, "/api/cart/55", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCart_Anonymous(t *testing.T) {
	router, _, _ := newCartRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/cart", strings.NewReader(`{"productId":3}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
