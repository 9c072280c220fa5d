package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrProductNotFound indicates the product does not exist.
var ErrProductNotFound = errors.New("store: product not found")

// Products handles catalog persistence.
type Products struct {
	db *sql.DB
}

// NewProducts creates a product store.
func NewProducts(db *sql.DB) *Products {
	return &Products{db: db}
}

const productColumns = `id, name, description, price, original_price, discount_percent, stock, category, image, is_discounted, created_at, updated_at`

// Create inserts a product and fills in its generated fields.
func (s *Products) Create(ctx context.Context, p *Product) error {
	query := `
		INSERT INTO products (name, description, price, original_price, discount_percent, stock, category, image, is_discounted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		p.Name,
		p.Description,
		p.Price,
		p.OriginalPrice,
		p.DiscountPercent,
		p.Stock,
		nullString(p.Category),
		nullString(p.Image),
		p.IsDiscounted,
		now,
		now,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// Get retrieves a product by ID.
func (s *Products) Get(ctx context.Context, id int64) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// List retrieves products, optionally filtered by category, newest first.
func (s *Products) List(ctx context.Context, category string) ([]*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	args := []interface{}{}
	if category != "" {
		query += ` WHERE category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// ListDiscounted retrieves products flagged as discounted.
func (s *Products) ListDiscounted(ctx context.Context) ([]*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE is_discounted = TRUE ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list discounted products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// Update replaces the mutable fields of a product.
func (s *Products) Update(ctx context.Context, p *Product) error {
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, original_price = $4, discount_percent = $5,
		    stock = $6, category = $7, image = $8, is_discounted = $9, updated_at = $10
		WHERE id = $11
	`

	now := time.Now()
	result, err := s.db.ExecContext(ctx, query,
		p.Name,
		p.Description,
		p.Price,
		p.OriginalPrice,
		p.DiscountPercent,
		p.Stock,
		nullString(p.Category),
		nullString(p.Image),
		p.IsDiscounted,
		now,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}

	p.UpdatedAt = now
	return nil
}

// Delete removes a product.
func (s *Products) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}

// DecrementStock reduces stock by quantity, failing if insufficient.
func (s *Products) DecrementStock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	query := `UPDATE products SET stock = stock - $1, updated_at = $2 WHERE id = $3 AND stock >= $1`

	result, err := tx.ExecContext(ctx, query, quantity, time.Now(), productID)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("insufficient stock for product %d", productID)
	}
	return nil
}

func scanProduct(row *sql.Row) (*Product, error) {
	var p Product
	var category, image sql.NullString
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.OriginalPrice, &p.DiscountPercent,
		&p.Stock, &category, &image, &p.IsDiscounted, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Category = category.String
	p.Image = image.String
	return &p, nil
}

func collectProducts(rows *sql.Rows) ([]*Product, error) {
	var products []*Product
	for rows.Next() {
		var p Product
		var category, image sql.NullString
		err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Price, &p.OriginalPrice, &p.DiscountPercent,
			&p.Stock, &category, &image, &p.IsDiscounted, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.Category = category.String
		p.Image = image.String
		products = append(products, &p)
	}
	return products, rows.Err()
}

// DiscountedProducts handles the standalone promotional listings.
type DiscountedProducts struct {
	db *sql.DB
}

// NewDiscountedProducts creates a discounted product store.
func NewDiscountedProducts(db *sql.DB) *DiscountedProducts {
	return &DiscountedProducts{db: db}
}

// Create inserts a promotional listing.
func (s *DiscountedProducts) Create(ctx context.Context, d *DiscountedProduct) error {
	query := `
		INSERT INTO discounted_products (name, description, original_price, discount_percent, category, image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		d.Name, d.Description, d.OriginalPrice, d.DiscountPercent,
		nullString(d.Category), nullString(d.ImageURL),
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("failed to create discounted product: %w", err)
	}
	return nil
}

// List retrieves all promotional listings.
func (s *DiscountedProducts) List(ctx context.Context) ([]*DiscountedProduct, error) {
	query := `
		SELECT id, name, description, original_price, discount_percent, category, image_url
		FROM discounted_products
		ORDER BY id DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list discounted products: %w", err)
	}
	defer rows.Close()

	var items []*DiscountedProduct
	for rows.Next() {
		var d DiscountedProduct
		var category, imageURL sql.NullString
		err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.OriginalPrice, &d.DiscountPercent, &category, &imageURL)
		if err != nil {
			return nil, fmt.Errorf("failed to scan discounted product: %w", err)
		}
		d.Category = category.String
		d.ImageURL = imageURL.String
		items = append(items, &d)
	}
	return items, rows.Err()
}

// Delete removes a promotional listing.
func (s *DiscountedProducts) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM discounted_products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete discounted product: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}
