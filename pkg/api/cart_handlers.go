package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/teamace/ballshop/pkg/httputil"
	"github.com/teamace/ballshop/pkg/store"
)

// CartHandlers serves the caller's shopping cart.
type CartHandlers struct {
	carts    *store.Carts
	products *store.Products
	users    UserReader
}

// NewCartHandlers creates the cart handlers.
func NewCartHandlers(carts *store.Carts, products *store.Products, users UserReader) *CartHandlers {
	return &CartHandlers{carts: carts, products: products, users: users}
}

// RegisterRoutes mounts the cart endpoints.
func (h *CartHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/cart", h.List).Methods(http.MethodGet)
	router.HandleFunc("/api/cart", h.Add).Methods(http.MethodPost)
	router.HandleFunc("/api/cart", h.Clear).Methods(http.MethodDelete)
	router.HandleFunc("/api/cart/{id:[0-9]+}", h.UpdateQuantity).Methods(http.MethodPut)
	router.HandleFunc("/api/cart/{id:[0-9]+}", h.Remove).Methods(http.MethodDelete)
}

func (h *CartHandlers) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.users)
	if !ok {
		return
	}

	items, err := h.carts.List(r.Context(), user.ID)
	if err != nil {
		httputil.WriteInternalError(w, errors.New("failed to load cart"))
		return
	}
	if items == nil {
		items = []*store.CartItem{}
	}
	httputil.WriteSuccess(w, items)
}

func (h *CartHandlers) Add(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.users)
	if !ok {
		return
	}

	var req CartAddRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.ProductID == 0 {
		httputil.WriteValidationError(w, "productId is required")
		return
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	// The product must exist before it can go in a cart.
	if _, err := h.products.Get(r.Context(), req.ProductID); err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			httputil.WriteNotFoundError(w, "Product not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to load product"))
		return
	}

	item, err := h.carts.Add(r.Context(), user.ID, req.ProductID, req.Quantity)
	if err != nil {
		httputil.WriteInternalError(w, errors.New("failed to add cart item"))
		return
	}
	httputil.WriteCreated(w, item)
}

func (h *CartHandlers) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.users)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req CartUpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Quantity < 1 {
		httputil.WriteValidationError(w, "quantity must be at least 1")
		return
	}

	if err := h.carts.UpdateQuantity(r.Context(), user.ID, id, req.Quantity); err != nil {
		if errors.Is(err, store.ErrCartItemNotFound) {
			httputil.WriteNotFoundError(w, "Cart item not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to update cart item"))
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"id": id, "quantity": req.Quantity})
}

func (h *CartHandlers) Remove(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.users)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.carts.Remove(r.Context(), user.ID, id); err != nil {
		if errors.Is(err, store.ErrCartItemNotFound) {
			httputil.WriteNotFoundError(w, "Cart item not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to remove cart item"))
		return
	}
	httputil.WriteNoContent(w)
}

func (h *CartHandlers) Clear(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.users)
	if !ok {
		return
	}

	if err := h.carts.Clear(r.Context(), user.ID); err != nil {
		httputil.WriteInternalError(w, errors.New("failed to clear cart"))
		return
	}
	httputil.WriteNoContent(w)
}
