package api

// RegisterRequest is the local signup payload.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

// LoginRequest is the local login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned on a successful login. The token itself only
// travels in the cookie.
type LoginResponse struct {
	Nickname string `json:"nickname"`
}

// AuthStatusResponse reports the caller's session state.
type AuthStatusResponse struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	Email           string `json:"email,omitempty"`
	Role            string `json:"role,omitempty"`
	Nickname        string `json:"nickname,omitempty"`
}

// RoleResponse reports the caller's authorities.
type RoleResponse struct {
	Roles    []string `json:"roles"`
	Nickname string   `json:"nickname"`
}

// ProductRequest is the admin create/update payload.
type ProductRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Price           int    `json:"price"`
	OriginalPrice   *int   `json:"originalPrice"`
	DiscountPercent *int   `json:"discountPercent"`
	Stock           int    `json:"stock"`
	Category        string `json:"category"`
	Image           string `json:"image"`
	IsDiscounted    bool   `json:"isDiscounted"`
}

// DiscountedProductRequest is the admin payload for promotional listings.
type DiscountedProductRequest struct {
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	OriginalPrice   float64 `json:"originalPrice"`
	DiscountPercent int     `json:"discountPercent"`
	Category        string  `json:"category"`
	ImageURL        string  `json:"imageUrl"`
}

// CartAddRequest adds a product to the caller's cart.
type CartAddRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// CartUpdateRequest changes a cart item's quantity.
type CartUpdateRequest struct {
	Quantity int `json:"quantity"`
}

// ReviewRequest creates or updates a review.
type ReviewRequest struct {
	ProductID int64  `json:"productId"`
	Content   string `json:"content"`
	Rating    int    `json:"rating"`
}

// CommentRequest adds a comment to a review.
type CommentRequest struct {
	Content string `json:"content"`
}

// OrderItemRequest is one product line in a new order.
type OrderItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// OrderRequest creates an order.
type OrderRequest struct {
	OrderName       string             `json:"orderName"`
	CustomerName    string             `json:"customerName"`
	CustomerPhone   string             `json:"customerPhone"`
	CustomerAddress string             `json:"customerAddress"`
	PaymentMethod   string             `json:"paymentMethod"`
	Items           []OrderItemRequest `json:"items"`
}

// PaymentVerifyRequest asks the server to confirm a payment with the
// gateway and finalize the order.
type PaymentVerifyRequest struct {
	PaymentID string `json:"paymentId"`
	OrderID   int64  `json:"orderId"`
}

// PaymentVerifyResponse reports the final order status.
type PaymentVerifyResponse struct {
	OrderID int64  `json:"orderId"`
	Status  string `json:"status"`
}

// OrderStatusRequest is the admin payload for forcing an order status.
type OrderStatusRequest struct {
	Status string `json:"status"`
}
