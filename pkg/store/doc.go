// Package store implements PostgreSQL persistence for users, products,
// carts, reviews, and orders, plus the redis/LRU read caches in front of
// the product catalog.
package store
