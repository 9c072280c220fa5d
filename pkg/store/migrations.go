package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all schema migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					email VARCHAR(255) NOT NULL,
					password VARCHAR(255) NOT NULL,
					nickname VARCHAR(255) NOT NULL,
					role VARCHAR(32) NOT NULL DEFAULT 'USER',
					provider VARCHAR(64),
					provider_id VARCHAR(255),
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					CONSTRAINT users_email_key UNIQUE (email),
					CONSTRAINT users_nickname_key UNIQUE (nickname)
				);

				CREATE INDEX IF NOT EXISTS idx_users_provider ON users(provider, provider_id);
			`,
		},
		{
			Version:     2,
			Description: "Create products and discounted_products tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS products (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					description TEXT,
					price INTEGER NOT NULL,
					original_price INTEGER,
					discount_percent INTEGER,
					stock INTEGER NOT NULL DEFAULT 0,
					category VARCHAR(128),
					image VARCHAR(1024),
					is_discounted BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);

				CREATE TABLE IF NOT EXISTS discounted_products (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					description TEXT,
					original_price DOUBLE PRECISION NOT NULL,
					discount_percent INTEGER NOT NULL,
					category VARCHAR(128),
					image_url VARCHAR(1024)
				);
			`,
		},
		{
			Version:     3,
			Description: "Create cart_items table",
			SQL: `
				CREATE TABLE IF NOT EXISTS cart_items (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
					quantity INTEGER NOT NULL DEFAULT 1,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(user_id, product_id)
				);

				CREATE INDEX IF NOT EXISTS idx_cart_items_user_id ON cart_items(user_id);
			`,
		},
		{
			Version:     4,
			Description: "Create reviews and review_comments tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS reviews (
					id BIGSERIAL PRIMARY KEY,
					product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
					nickname VARCHAR(255) NOT NULL,
					content TEXT NOT NULL,
					rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
					image_url VARCHAR(1024),
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_reviews_product_id ON reviews(product_id);
				CREATE INDEX IF NOT EXISTS idx_reviews_nickname ON reviews(nickname);

				CREATE TABLE IF NOT EXISTS review_comments (
					id BIGSERIAL PRIMARY KEY,
					review_id BIGINT NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
					nickname VARCHAR(255) NOT NULL,
					content TEXT NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);
			`,
		},
		{
			Version:     5,
			Description: "Create orders and order_items tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS orders (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					amount INTEGER NOT NULL,
					order_name VARCHAR(255) NOT NULL,
					customer_name VARCHAR(255),
					customer_phone VARCHAR(64),
					customer_address VARCHAR(1024),
					payment_method VARCHAR(64),
					status VARCHAR(32) NOT NULL DEFAULT 'PENDING',
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id);
				CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);

				CREATE TABLE IF NOT EXISTS order_items (
					id BIGSERIAL PRIMARY KEY,
					order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
					product_id BIGINT NOT NULL REFERENCES products(id),
					quantity INTEGER NOT NULL,
					price_at_purchase INTEGER NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
			`,
		},
	}
}

// RunMigrations applies all pending migrations inside a schema_migrations
// version table.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	for _, m := range GetMigrations() {
		var exists bool
		err := db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, m.Version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check migration %d: %w", m.Version, err)
		}
		if exists {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, description) VALUES ($1, $2)`,
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
