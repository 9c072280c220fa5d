package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrCartItemNotFound indicates the cart item does not exist or belongs to
// another user.
var ErrCartItemNotFound = errors.New("store: cart item not found")

// Carts handles per-user shopping cart persistence.
type Carts struct {
	db *sql.DB
}

// NewCarts creates a cart store.
func NewCarts(db *sql.DB) *Carts {
	return &Carts{db: db}
}

// Add inserts a cart item, or bumps the quantity if the product is already
// in the cart.
func (s *Carts) Add(ctx context.Context, userID, productID int64, quantity int) (*CartItem, error) {
	if quantity < 1 {
		quantity = 1
	}

	query := `
		INSERT INTO cart_items (user_id, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
		RETURNING id, quantity, created_at, updated_at
	`

	item := &CartItem{UserID: userID, ProductID: productID}
	err := s.db.QueryRowContext(ctx, query, userID, productID, quantity, time.Now()).
		Scan(&item.ID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}
	return item, nil
}

// List retrieves the user's cart with product details attached.
func (s *Carts) List(ctx context.Context, userID int64) ([]*CartItem, error) {
	query := `
		SELECT c.id, c.product_id, c.quantity, c.created_at, c.updated_at,
		       p.id, p.name, p.description, p.price, p.original_price, p.discount_percent,
		       p.stock, p.category, p.image, p.is_discounted, p.created_at, p.updated_at
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart: %w", err)
	}
	defer rows.Close()

	var items []*CartItem
	for rows.Next() {
		item := &CartItem{UserID: userID}
		var p Product
		var category, image sql.NullString
		err := rows.Scan(
			&item.ID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt,
			&p.ID, &p.Name, &p.Description, &p.Price, &p.OriginalPrice, &p.DiscountPercent,
			&p.Stock, &category, &image, &p.IsDiscounted, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		p.Category = category.String
		p.Image = image.String
		item.Product = &p
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateQuantity sets a cart item's quantity. The item must belong to the
// user.
func (s *Carts) UpdateQuantity(ctx context.Context, userID, itemID int64, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("quantity must be at least 1")
	}

	query := `UPDATE cart_items SET quantity = $1, updated_at = $2 WHERE id = $3 AND user_id = $4`

	result, err := s.db.ExecContext(ctx, query, quantity, time.Now(), itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// Remove deletes a cart item belonging to the user.
func (s *Carts) Remove(ctx context.Context, userID, itemID int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE id = $1 AND user_id = $2`, itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// Clear empties the user's cart.
func (s *Carts) Clear(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
