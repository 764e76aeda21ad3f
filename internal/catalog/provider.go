package catalog

import (
	"context"
	"errors"
	"fmt"
)

// Provider is what the register needs from the catalog.
type Provider interface {
	Product(ctx context.Context, id int64) (Product, error)
	DecrementStock(ctx context.Context, id int64, qty int64) error
}

// Cached is the Provider used in production: Postgres behind a
// read-through Redis JSON cache. Stock mutations bypass the cache and
// drop the cached entry so the next read sees fresh quantities.
type Cached struct {
	Store Provider
	Cache *Cache
}

func NewCached(store Provider, cache *Cache) *Cached {
	return &Cached{Store: store, Cache: cache}
}

func productKey(id int64) string {
	return fmt.Sprintf("catalog:product:%d", id)
}

func (c *Cached) Product(ctx context.Context, id int64) (Product, error) {
	key := productKey(id)
	var cached Product
	if ok, err := c.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	p, err := c.Store.Product(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Product{}, err
		}
		return Product{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	_ = c.Cache.SetJSON(ctx, key, p)
	return p, nil
}

func (c *Cached) DecrementStock(ctx context.Context, id int64, qty int64) error {
	if err := c.Store.DecrementStock(ctx, id, qty); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return c.Cache.Delete(ctx, productKey(id))
}
