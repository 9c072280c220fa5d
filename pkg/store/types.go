package store

import "time"

// Product is a catalog item.
type Product struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Price           int       `json:"price"`
	OriginalPrice   *int      `json:"originalPrice,omitempty"`
	DiscountPercent *int      `json:"discountPercent,omitempty"`
	Stock           int       `json:"stock"`
	Category        string    `json:"category,omitempty"`
	Image           string    `json:"image,omitempty"`
	IsDiscounted    bool      `json:"isDiscounted"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// DiscountedProduct is a standalone promotional listing kept separate
// from the main catalog.
type DiscountedProduct struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description,omitempty"`
	OriginalPrice   float64 `json:"originalPrice"`
	DiscountPercent int     `json:"discountPercent"`
	Category        string  `json:"category,omitempty"`
	ImageURL        string  `json:"imageUrl,omitempty"`
}

// DiscountedPrice returns the price after applying the discount.
func (d DiscountedProduct) DiscountedPrice() float64 {
	return d.OriginalPrice * float64(100-d.DiscountPercent) / 100
}

// CartItem ties a user to a product with a quantity. Product fields are
// denormalized on read for list responses.
type CartItem struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	ProductID int64     `json:"productId"`
	Quantity  int       `json:"quantity"`
	Product   *Product  `json:"product,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Review is a product review authored under the user's nickname.
type Review struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"productId"`
	Nickname  string    `json:"nickname"`
	Content   string    `json:"content"`
	Rating    int       `json:"rating"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ReviewComment is a reply on a review.
type ReviewComment struct {
	ID        int64     `json:"id"`
	ReviewID  int64     `json:"reviewId"`
	Nickname  string    `json:"nickname"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Order statuses.
const (
	OrderStatusPending   = "PENDING"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusFailed    = "FAILED"
	OrderStatusCancelled = "CANCELLED"
	OrderStatusExpired   = "EXPIRED"
)

// Order is a purchase with its line items.
type Order struct {
	ID              int64       `json:"id"`
	UserID          int64       `json:"-"`
	Amount          int         `json:"amount"`
	OrderName       string      `json:"orderName"`
	CustomerName    string      `json:"customerName,omitempty"`
	CustomerPhone   string      `json:"customerPhone,omitempty"`
	CustomerAddress string      `json:"customerAddress,omitempty"`
	PaymentMethod   string      `json:"paymentMethod,omitempty"`
	Status          string      `json:"status"`
	Items           []OrderItem `json:"items,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// OrderItem is a single product line within an order.
type OrderItem struct {
	ID              int64 `json:"id"`
	OrderID         int64 `json:"-"`
	ProductID       int64 `json:"productId"`
	Quantity        int   `json:"quantity"`
	PriceAtPurchase int   `json:"priceAtPurchase"`
}
