package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamace/ballshop/pkg/store"
)

func newProductRouter(t *testing.T) (*mux.Router, sqlmock.Sqlmock) {
	t.Helper()

	db, mock := newMockDB(t)
	products := store.NewProducts(db)
	discounted := store.NewDiscountedProducts(db)
	cache, err := store.NewProductCache(products, discounted, nil, time.Minute)
	require.NoError(t, err)

	router := mux.NewRouter()
	NewProductHandlers(products, cache).RegisterRoutes(router)
	return router, mock
}

func TestListProducts(t *testing.T) {
	router, mock := newProductRouter(t)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM products").
		WillReturnRows(productTestRows().
			AddRow(int64(1), "Maple Bat", "Hard maple", 89000, nil, nil, 12, "bats", "", false, now, now).
			AddRow(int64(2), "Batting Glove", "", 25000, nil, nil, 40, "gloves", "", false, now, now))

	rec := doJSON(t, router, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var products []*store.Product
	decodeBody(t, rec, &products)
	require.Len(t, products, 2)
	assert.Equal(t, "Maple Bat", products[0].Name)
	assert.Equal(t, 89000, products[0].Price)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListProducts_EmptyIsArray(t *testing.T) {
	router, mock := newProductRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM products").
		WillReturnRows(productTestRows())

	rec := doJSON(t, router, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	// Empty catalog serializes as [], never null.
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestListProducts_CategoryFilter(t *testing.T) {
	router, mock := newProductRouter(t)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM products WHERE category").
		WithArgs("bats").
		WillReturnRows(productTestRows().
			AddRow(int64(1), "Maple Bat", "", 89000, nil, nil, 12, "bats", "", false, now, now))

	rec := doJSON(t, router, http.MethodGet, "/api/products?category=bats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProduct_NotFound(t *testing.T) {
	router, mock := newProductRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM products WHERE id").
		WithArgs(int64(99)).
		WillReturnRows(productTestRows())

	rec := doJSON(t, router, http.MethodGet, "/api/products/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListDiscounted_ComputedPrice(t *testing.T) {
	router, mock := newProductRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM discounted_products").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "description", "original_price", "discount_percent", "category", "image_url",
		}).AddRow(int64(1), "Pro Glove", "", 120000.0, 25, "gloves", ""))

	rec := doJSON(t, router, http.MethodGet, "/api/discounted-products", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var items []struct {
		Name            string  `json:"name"`
		OriginalPrice   float64 `json:"originalPrice"`
		DiscountedPrice float64 `json:"discountedPrice"`
	}
	decodeBody(t, rec, &items)
	require.Len(t, items, 1)
	assert.Equal(t, 120000.0, items[0].OriginalPrice)
	assert.Equal(t, 90000.0, items[0].DiscountedPrice)
}
