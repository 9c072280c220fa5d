package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrOrderNotFound indicates the order does not exist or belongs to another
// user.
var ErrOrderNotFound = errors.New("store: order not found")

// Orders handles order persistence.
type Orders struct {
	db *sql.DB
}

// NewOrders creates an order store.
func NewOrders(db *sql.DB) *Orders {
	return &Orders{db: db}
}

// Create inserts the order with its line items and decrements stock for each
// product, all in one transaction.
func (s *Orders) Create(ctx context.Context, products *Products, o *Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin order transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, amount, order_name, customer_name, customer_phone, customer_address, payment_method, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id
	`,
		o.UserID,
		o.Amount,
		o.OrderName,
		nullString(o.CustomerName),
		nullString(o.CustomerPhone),
		nullString(o.CustomerAddress),
		nullString(o.PaymentMethod),
		OrderStatusPending,
		now,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, item.OrderID, item.ProductID, item.Quantity, item.PriceAtPurchase).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}

		if err := products.DecrementStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}

	o.Status = OrderStatusPending
	o.CreatedAt = now
	o.UpdatedAt = now
	return nil
}

// Get retrieves an order with its items. The order must belong to the user
// unless userID is zero.
func (s *Orders) Get(ctx context.Context, id, userID int64) (*Order, error) {
	query := `
		SELECT id, user_id, amount, order_name, customer_name, customer_phone, customer_address, payment_method, status, created_at, updated_at
		FROM orders
		WHERE id = $1
	`
	args := []interface{}{id}
	if userID != 0 {
		query += ` AND user_id = $2`
		args = append(args, userID)
	}

	o, err := scanOrder(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := s.listItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

// ListByUser retrieves the user's orders, newest first, items included.
func (s *Orders) ListByUser(ctx context.Context, userID int64) ([]*Order, error) {
	query := `
		SELECT id, user_id, amount, order_name, customer_name, customer_phone, customer_address, payment_method, status, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := scanOrderRows(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, o := range orders {
		items, err := s.listItems(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		o.Items = items
	}
	return orders, nil
}

// UpdateStatus transitions an order to the given status.
func (s *Orders) UpdateStatus(ctx context.Context, id int64, status string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// ExpireStale marks PENDING orders older than maxAge as EXPIRED and returns
// how many were transitioned.
func (s *Orders) ExpireStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	result, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE status = $2 AND created_at < $3`,
		OrderStatusExpired, OrderStatusPending, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale orders: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count expired orders: %w", err)
	}
	return n, nil
}

func (s *Orders) listItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, price_at_purchase
		FROM order_items
		WHERE order_id = $1
		ORDER BY id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.PriceAtPurchase); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row *sql.Row) (*Order, error)       { return scanOrderFrom(row) }
func scanOrderRows(rows *sql.Rows) (*Order, error) { return scanOrderFrom(rows) }

func scanOrderFrom(row rowScanner) (*Order, error) {
	var o Order
	var name, phone, address, method sql.NullString
	err := row.Scan(
		&o.ID, &o.UserID, &o.Amount, &o.OrderName,
		&name, &phone, &address, &method,
		&o.Status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.CustomerName = name.String
	o.CustomerPhone = phone.String
	o.CustomerAddress = address.String
	o.PaymentMethod = method.String
	return &o, nil
}
