package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/teamace/ballshop/pkg/httputil"
	"github.com/teamace/ballshop/pkg/observability"
	"github.com/teamace/ballshop/pkg/store"
)

// PaymentVerifier confirms a payment with the gateway. Implemented by
// payments.Client.
type PaymentVerifier interface {
	Verify(ctx context.Context, paymentID string, expectedAmount int) (string, error)
}

// OrderHandlers serves order placement, history and payment confirmation.
type OrderHandlers struct {
	orders   *store.Orders
	products *store.Products
	carts    *store.Carts
	users    UserReader
	payments PaymentVerifier
	logger   *observability.Logger
}

// NewOrderHandlers creates the order handlers.
func NewOrderHandlers(orders *store.Orders, products *store.Products, carts *store.Carts, users UserReader, payments PaymentVerifier, logger *observability.Logger) *OrderHandlers {
	return &OrderHandlers{
		orders:   orders,
		products: products,
		carts:    carts,
		users:    users,
		payments: payments,
		logger:   logger,
	}
}

// RegisterRoutes mounts the order endpoints.
func (h *OrderHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/orders", h.Create).Methods(http.MethodPost)
	router.HandleFunc("/api/orders", h.List).Methods(http.MethodGet)
	router.HandleFunc("/api/orders/{id:[0-9]+}", h.Get).Methods(http.MethodGet)
	router.HandleFunc("/api/payments/verify", h.VerifyPayment).Methods(http.MethodPost)
}

// Create places an order. Prices come from the catalog, never from the
// request, and the total is computed server-side.
func (h *OrderHandlers) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.users)
	if !ok {
		return
	}

	var req OrderRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		httputil.WriteValidationError(w, "order must contain at least one item")
		return
	}

	var amount int
	items := make([]store.OrderItem, 0, len(req.Items))
	orderName := req.OrderName
	for _, line := range req.Items {
		if line.Quantity < 1 {
			httputil.WriteValidationError(w, "item quantity must be at least 1")
			return
		}
		product, err := h.products.Get(r.Context(), line.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrProductNotFound) {
				httputil.WriteNotFoundError(w, "Product not found")
				return
			}
			httputil.WriteInternalError(w, errors.New("failed to load product"))
			return
		}

		amount += product.Price * line.Quantity
		items = append(items, store.OrderItem{
			ProductID:       product.ID,
			Quantity:        line.Quantity,
			PriceAtPurchase: product.Price,
		})
		if orderName == "" {
			orderName = product.Name
		}
	}

	order := &store.Order{
		UserID:          user.ID,
		Amount:          amount,
		OrderName:       orderName,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		PaymentMethod:   req.PaymentMethod,
		Items:           items,
	}
	if err := h.orders.Create(r.Context(), h.products, order); err != nil {
		if h.logger != nil {
			h.logger.WithError(err).Warn("order creation failed")
		}
		httputil.WriteConflict(w, "Order could not be placed")
		return
	}

	// A placed order supersedes the cart. Best effort: the order stands
	// even if the cleanup fails.
	if err := h.carts.Clear(r.Context(), user.ID); err != nil && h.logger != nil {
		h.logger.WithError(err).Warn("failed to clear cart after order")
	}

	httputil.WriteCreated(w, order)
}

func (h *OrderHandlers) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.users)
	if !ok {
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), user.ID)
	if err != nil {
		httputil.WriteInternalError(w, errors.New("failed to load orders"))
		return
	}
	if orders == nil {
		orders = []*store.Order{}
	}
	httputil.WriteSuccess(w, orders)
}

func (h *OrderHandlers) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.users)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	order, err := h.orders.Get(r.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			httputil.WriteNotFoundError(w, "Order not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to load order"))
		return
	}
	httputil.WriteSuccess(w, order)
}

// VerifyPayment confirms the payment with the gateway and transitions the
// order to COMPLETED or FAILED based on what was actually captured.
func (h *OrderHandlers) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.users)
	if !ok {
		return
	}

	var req PaymentVerifyRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.PaymentID, "paymentId") {
		return
	}

	order, err := h.orders.Get(r.Context(), req.OrderID, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			httputil.WriteNotFoundError(w, "Order not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to load order"))
		return
	}
	if order.Status != store.OrderStatusPending {
		httputil.WriteConflict(w, "Order is not awaiting payment")
		return
	}

	status, err := h.payments.Verify(r.Context(), req.PaymentID, order.Amount)
	if err != nil {
		if h.logger != nil {
			h.logger.WithError(err).Error("payment verification failed")
		}
		httputil.WriteErrorMessage(w, http.StatusBadGateway, "Payment verification failed")
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), order.ID, status); err != nil {
		httputil.WriteInternalError(w, errors.New("failed to update order"))
		return
	}
	httputil.WriteSuccess(w, PaymentVerifyResponse{OrderID: order.ID, Status: status})
}
