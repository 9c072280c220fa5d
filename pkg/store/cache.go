package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ProductCache is a read-through cache over the product store. Catalog
// listings go to Redis with a short TTL; the discounted listings, which are
// small and admin-curated, additionally sit in an in-process LRU so a Redis
// outage does not take the storefront's promo rail with it.
type ProductCache struct {
	products   *Products
	discounted *DiscountedProducts
	redis      *redis.Client
	local      *lru.Cache[string, []*DiscountedProduct]
	ttl        time.Duration
}

// NewProductCache creates the cache layer. redis may be nil, in which case
// reads fall through to the database.
func NewProductCache(products *Products, discounted *DiscountedProducts, client *redis.Client, ttl time.Duration) (*ProductCache, error) {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	local, err := lru.New[string, []*DiscountedProduct](8)
	if err != nil {
		return nil, fmt.Errorf("failed to create local cache: %w", err)
	}
	return &ProductCache{
		products:   products,
		discounted: discounted,
		redis:      client,
		local:      local,
		ttl:        ttl,
	}, nil
}

const (
	productListKeyPrefix  = "ballshop:products:"
	discountedProductsKey = "ballshop:discounted"
	localDiscountedKey    = "discounted"
)

// List returns the catalog list for a category, served from Redis when
// possible. Cache failures are treated as misses.
func (c *ProductCache) List(ctx context.Context, category string) ([]*Product, error) {
	key := productListKeyPrefix + category

	if c.redis != nil {
		if data, err := c.redis.Get(ctx, key).Bytes(); err == nil {
			var products []*Product
			if err := json.Unmarshal(data, &products); err == nil {
				return products, nil
			}
		}
	}

	products, err := c.products.List(ctx, category)
	if err != nil {
		return nil, err
	}

	if c.redis != nil {
		if data, err := json.Marshal(products); err == nil {
			c.redis.Set(ctx, key, data, c.ttl)
		}
	}
	return products, nil
}

// ListDiscounted returns the promotional listings, trying Redis first and
// then the in-process LRU before hitting the database.
func (c *ProductCache) ListDiscounted(ctx context.Context) ([]*DiscountedProduct, error) {
	if c.redis != nil {
		if data, err := c.redis.Get(ctx, discountedProductsKey).Bytes(); err == nil {
			var items []*DiscountedProduct
			if err := json.Unmarshal(data, &items); err == nil {
				c.local.Add(localDiscountedKey, items)
				return items, nil
			}
		}
	}

	if items, ok := c.local.Get(localDiscountedKey); ok {
		return items, nil
	}

	items, err := c.discounted.List(ctx)
	if err != nil {
		return nil, err
	}

	c.local.Add(localDiscountedKey, items)
	if c.redis != nil {
		if data, err := json.Marshal(items); err == nil {
			c.redis.Set(ctx, discountedProductsKey, data, c.ttl)
		}
	}
	return items, nil
}

// Invalidate drops cached listings after a catalog write.
func (c *ProductCache) Invalidate(ctx context.Context, categories ...string) {
	c.local.Remove(localDiscountedKey)
	if c.redis == nil {
		return
	}

	keys := []string{productListKeyPrefix, discountedProductsKey}
	for _, cat := range categories {
		keys = append(keys, productListKeyPrefix+cat)
	}
	c.redis.Del(ctx, keys...)
}
