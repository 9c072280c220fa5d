package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/teamace/ballshop/pkg/httputil"
	"github.com/teamace/ballshop/pkg/store"
)

// AdminHandlers serves catalog and order management. The RBAC gate restricts
// everything under /api/admin to the ADMIN role before these run.
type AdminHandlers struct {
	products   *store.Products
	discounted *store.DiscountedProducts
	orders     *store.Orders
	cache      *store.ProductCache
}

// NewAdminHandlers creates the admin handlers.
func NewAdminHandlers(products *store.Products, discounted *store.DiscountedProducts, orders *store.Orders, cache *store.ProductCache) *AdminHandlers {
	return &AdminHandlers{
		products:   products,
		discounted: discounted,
		orders:     orders,
		cache:      cache,
	}
}

// RegisterRoutes mounts the admin endpoints.
func (h *AdminHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/admin/products", h.CreateProduct).Methods(http.MethodPost)
	router.HandleFunc("/api/admin/products/{id:[0-9]+}", h.UpdateProduct).Methods(http.MethodPut)
	router.HandleFunc("/api/admin/products/{id:[0-9]+}", h.DeleteProduct).Methods(http.MethodDelete)

	router.HandleFunc("/api/admin/discounted-products", h.CreateDiscounted).Methods(http.MethodPost)
	router.HandleFunc("/api/admin/discounted-products/{id:[0-9]+}", h.DeleteDiscounted).Methods(http.MethodDelete)

	router.HandleFunc("/api/admin/orders/{id:[0-9]+}/status", h.UpdateOrderStatus).Methods(http.MethodPatch)
}

func (h *AdminHandlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}
	if req.Price < 0 {
		httputil.WriteValidationError(w, "price must not be negative")
		return
	}

	product := productFromRequest(&req)
	if err := h.products.Create(r.Context(), product); err != nil {
		httputil.WriteInternalError(w, errors.New("failed to create product"))
		return
	}

	h.cache.Invalidate(r.Context(), product.Category)
	httputil.WriteCreated(w, product)
}

func (h *AdminHandlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req ProductRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	product := productFromRequest(&req)
	product.ID = id
	if err := h.products.Update(r.Context(), product); err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			httputil.WriteNotFoundError(w, "Product not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to update product"))
		return
	}

	h.cache.Invalidate(r.Context(), product.Category)
	httputil.WriteSuccess(w, product)
}

func (h *AdminHandlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.products.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			httputil.WriteNotFoundError(w, "Product not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to delete product"))
		return
	}

	h.cache.Invalidate(r.Context())
	httputil.WriteNoContent(w)
}

func (h *AdminHandlers) CreateDiscounted(w http.ResponseWriter, r *http.Request) {
	var req DiscountedProductRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}
	if req.DiscountPercent < 0 || req.DiscountPercent > 100 {
		httputil.WriteValidationError(w, "discountPercent must be between 0 and 100")
		return
	}

	item := &store.DiscountedProduct{
		Name:            req.Name,
		Description:     req.Description,
		OriginalPrice:   req.OriginalPrice,
		DiscountPercent: req.DiscountPercent,
		Category:        req.Category,
		ImageURL:        req.ImageURL,
	}
	if err := h.discounted.Create(r.Context(), item); err != nil {
		httputil.WriteInternalError(w, errors.New("failed to create discounted product"))
		return
	}

	h.cache.Invalidate(r.Context(), item.Category)
	httputil.WriteCreated(w, item)
}

func (h *AdminHandlers) DeleteDiscounted(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.discounted.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			httputil.WriteNotFoundError(w, "Discounted product not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to delete discounted product"))
		return
	}

	h.cache.Invalidate(r.Context())
	httputil.WriteNoContent(w)
}

func (h *AdminHandlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req OrderStatusRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !validOrderStatus(req.Status) {
		httputil.WriteValidationError(w, "invalid order status")
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), id, req.Status); err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			httputil.WriteNotFoundError(w, "Order not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to update order status"))
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"id": id, "status": req.Status})
}

func productFromRequest(req *ProductRequest) *store.Product {
	return &store.Product{
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		OriginalPrice:   req.OriginalPrice,
		DiscountPercent: req.DiscountPercent,
		Stock:           req.Stock,
		Category:        req.Category,
		Image:           req.Image,
		IsDiscounted:    req.IsDiscounted,
	}
}

func validOrderStatus(status string) bool {
	switch status {
	case store.OrderStatusPending, store.OrderStatusCompleted, store.OrderStatusFailed,
		store.OrderStatusCancelled, store.OrderStatusExpired:
		return true
	}
	return false
}
