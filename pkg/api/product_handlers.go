package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/teamace/ballshop/pkg/httputil"
	"github.com/teamace/ballshop/pkg/store"
)

// ProductHandlers serves the public catalog.
type ProductHandlers struct {
	products *store.Products
	cache    *store.ProductCache
}

// NewProductHandlers creates the catalog handlers.
func NewProductHandlers(products *store.Products, cache *store.ProductCache) *ProductHandlers {
	return &ProductHandlers{products: products, cache: cache}
}

// RegisterRoutes mounts the public catalog endpoints.
func (h *ProductHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/products", h.List).Methods(http.MethodGet)
	router.HandleFunc("/api/products/{id:[0-9]+}", h.Get).Methods(http.MethodGet)
	router.HandleFunc("/api/discounted-products", h.ListDiscounted).Methods(http.MethodGet)
}

// List returns catalog products, optionally filtered by category.
func (h *ProductHandlers) List(w http.ResponseWriter, r *http.Request) {
	category := httputil.ParseQueryString(r, "category", "")

	products, err := h.cache.List(r.Context(), category)
	if err != nil {
		httputil.WriteInternalError(w, errors.New("failed to load products"))
		return
	}
	if products == nil {
		products = []*store.Product{}
	}
	httputil.WriteSuccess(w, products)
}

// Get returns one product.
func (h *ProductHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	product, err := h.products.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			httputil.WriteNotFoundError(w, "Product not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to load product"))
		return
	}
	httputil.WriteSuccess(w, product)
}

// ListDiscounted returns the promotional listings with computed prices.
func (h *ProductHandlers) ListDiscounted(w http.ResponseWriter, r *http.Request) {
	items, err := h.cache.ListDiscounted(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, errors.New("failed to load discounted products"))
		return
	}

	type listing struct {
		*store.DiscountedProduct
		DiscountedPrice float64 `json:"discountedPrice"`
	}
	out := make([]listing, 0, len(items))
	for _, item := range items {
		out = append(out, listing{DiscountedProduct: item, DiscountedPrice: item.DiscountedPrice()})
	}
	httputil.WriteSuccess(w, out)
}
