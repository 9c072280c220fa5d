package api

import (
	"context"
	"errors"
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

// fixedUser resolves every lookup to the same account.
type fixedUser struct {
	user *auth.User
}

func (f *fixedUser) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	if f.user != nil && f.user.Email == email {
		return f.user, nil
	}
	return nil, auth.ErrUserNotFound
}

type stubVerifier struct {
	status  string
	err     error
	gotID   string
	gotAmnt int
}

func (s *stubVerifier) Verify(_ context.Context, paymentID string, expectedAmount int) (string, error) {
	s.gotID = paymentID
	s.gotAmnt = expectedAmount
	return s.status, s.err
}

func newOrderRouter(t *testing.T, verifier PaymentVerifier) (*mux.Router, sqlmock.Sqlmock, *auth.User) {
	t.Helper()

	db, mock := newMockDB(t)
	user := &auth.User{ID: 7, Email: "sam@x.com", Nickname: "sam", Role: auth.RoleUser}

	handlers := NewOrderHandlers(
		store.NewOrders(db),
		store.NewProducts(db),
		store.NewCarts(db),
		&fixedUser{user: user},
		verifier,
		testLogger(),
	)
	router := mux.NewRouter()
	handlers.RegisterRoutes(router)
	return router, mock, user
}

func authedJSON(t *testing.T, router *mux.Router, user *auth.User, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req = withPrincipal(req, user.Email, user.Role)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateOrder_ServerSidePricing(t *testing.T) {
	router, mock, user := newOrderRouter(t, &stubVerifier{})

	now := time.Now()
	// Catalog price is 89000 regardless of anything the client claims.
	mock.ExpectQuery("SELECT (.+) FROM products WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(productTestRows().
			AddRow(int64(1), "Maple Bat", "", 89000, nil, nil, 12, "bats", "", false, now, now))

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(user.ID, 178000, "Maple Bat", nil, nil, nil, nil, store.OrderStatusPending, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectQuery("INSERT INTO order_items").
		WithArgs(int64(42), int64(1), 2, 89000).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectExec("UPDATE products SET stock = stock -").
		WithArgs(2, sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Cart cleanup after the order is placed.
	mock.ExpectExec("DELETE FROM cart_items WHERE user_id").
		WithArgs(user.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := authedJSON(t, router, user, http.MethodPost, "/api/orders",
		`{"items":[{"productId":1,"quantity":2}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var order store.Order
	decodeBody(t, rec, &order)
	assert.Equal(t, int64(42), order.ID)
	assert.Equal(t, 178000, order.Amount)
	assert.Equal(t, store.OrderStatusPending, order.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_Validation(t *testing.T) {
	router, _, user := newOrderRouter(t, &stubVerifier{})

	rec := authedJSON(t, router, user, http.MethodPost, "/api/orders", `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = authedJSON(t, router, user, http.MethodPost, "/api/orders",
		`{"items":[{"productId":1,"quantity":0}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	router, mock, user := newOrderRouter(t, &stubVerifier{})

	mock.ExpectQuery("SELECT (.+) FROM products WHERE id").
		WithArgs(int64(99)).
		WillReturnRows(productTestRows())

	rec := authedJSON(t, router, user, http.MethodPost, "/api/orders",
		`{"items":[{"productId":99,"quantity":1}]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	router, mock, user := newOrderRouter(t, &stubVerifier{})

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM products WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(productTestRows().
			AddRow(int64(1), "Maple Bat", "", 89000, nil, nil, 1, "bats", "", false, now, now))

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectQuery("INSERT INTO order_items").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	// Stock guard matches zero rows, the transaction rolls back.
	mock.ExpectExec("UPDATE products SET stock = stock -").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	rec := authedJSON(t, router, user, http.MethodPost, "/api/orders",
		`{"items":[{"productId":1,"quantity":5}]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestVerifyPayment_Completed(t *testing.T) {
	verifier := &stubVerifier{status: store.OrderStatusCompleted}
	router, mock, user := newOrderRouter(t, verifier)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
		WithArgs(int64(42), user.ID).
		WillReturnRows(orderTestRows().
			AddRow(int64(42), user.ID, 178000, "Maple Bat", nil, nil, nil, nil, store.OrderStatusPending, now, now))
	mock.ExpectQuery("SELECT (.+) FROM order_items").
		WithArgs(int64(42)).
		WillReturnRows(orderItemTestRows())
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(store.OrderStatusCompleted, sqlmock.AnyArg(), int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := authedJSON(t, router, user, http.MethodPost, "/api/payments/verify",
		`{"paymentId":"pay_123","orderId":42}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp PaymentVerifyResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, store.OrderStatusCompleted, resp.Status)
	assert.Equal(t, "pay_123", verifier.gotID)
	assert.Equal(t, 178000, verifier.gotAmnt, "expected amount must come from the stored order")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyPayment_OrderNotPending(t *testing.T) {
	router, mock, user := newOrderRouter(t, &stubVerifier{status: store.OrderStatusCompleted})

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
		WithArgs(int64(42), user.ID).
		WillReturnRows(orderTestRows().
			AddRow(int64(42), user.ID, 178000, "Maple Bat", nil, nil, nil, nil, store.OrderStatusCompleted, now, now))
	mock.ExpectQuery("SELECT (.+) FROM order_items").
		WithArgs(int64(42)).
		WillReturnRows(orderItemTestRows())

	rec := authedJSON(t, router, user, http.MethodPost, "/api/payments/verify",
		`{"paymentId":"pay_123","orderId":42}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestVerifyPayment_GatewayError(t *testing.T) {
	router, mock, user := newOrderRouter(t, &stubVerifier{err: errors.New("gateway down")})

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
		WithArgs(int64(42), user.ID).
		WillReturnRows(orderTestRows().
			AddRow(int64(42), user.ID, 178000, "Maple Bat", nil, nil, nil, nil, store.OrderStatusPending, now, now))
	mock.ExpectQuery("SELECT (.+) FROM order_items").
		WithArgs(int64(42)).
		WillReturnRows(orderItemTestRows())

	rec := authedJSON(t, router, user, http.MethodPost, "/api/payments/verify",
		`{"paymentId":"pay_123","orderId":42}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetOrder_ScopedToUser(t *testing.T) {
	router, mock, user := newOrderRouter(t, &stubVerifier{})

	// Another user's order is invisible, not forbidden.
	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
		WithArgs(int64(42), user.ID).
		WillReturnRows(orderTestRows())

	rec := authedJSON(t, router, user, http.MethodGet, "/api/orders/42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOrders_Anonymous(t *testing.T) {
	router, _, _ := newOrderRouter(t, &stubVerifier{})

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
