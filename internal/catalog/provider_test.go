package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	products map[int64]Product
	reads    int
	err      error
}

func (f *fakeStore) Product(_ context.Context, id int64) (Product, error) {
	f.reads++
	if f.err != nil {
		return Product{}, f.err
	}
	p, ok := f.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) DecrementStock(_ context.Context, id int64, qty int64) error {
	if f.err != nil {
		return f.err
	}
	p, ok := f.products[id]
	if !ok {
		return ErrNotFound
	}
	p.Stock -= qty
	f.products[id] = p
	return nil
}

func newCached(t *testing.T, store *fakeStore) *Cached {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCached(store, NewCache(client, time.Minute))
}

func TestCachedProductReadThrough(t *testing.T) {
	store := &fakeStore{products: map[int64]Product{
		7: {ID: 7, Name: "Americano", UnitPrice: decimal.RequireFromString("3.50"), TaxRate: decimal.RequireFromString("21")},
	}}
	cached := newCached(t, store)
	ctx := context.Background()

	first, err := cached.Product(ctx, 7)
	require.NoError(t, err)
	second, err := cached.Product(ctx, 7)
	require.NoError(t, err)

	require.Equal(t, 1, store.reads, "second read should come from cache")
	require.True(t, first.UnitPrice.Equal(second.UnitPrice))
}

func TestCachedProductNotFound(t *testing.T) {
	cached := newCached(t, &fakeStore{products: map[int64]Product{}})
	_, err := cached.Product(context.Background(), 404)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCachedProductBackendFailure(t *testing.T) {
	cached := newCached(t, &fakeStore{err: errors.New("connection refused")})
	_, err := cached.Product(context.Background(), 1)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestDecrementStockInvalidatesCache(t *testing.T) {
	store := &fakeStore{products: map[int64]Product{
		7: {ID: 7, Name: "Americano", UnitPrice: decimal.RequireFromString("3.50"), Stock: 10},
	}}
	cached := newCached(t, store)
	ctx := context.Background()

	_, err := cached.Product(ctx, 7)
	require.NoError(t, err)
	require.NoError(t, cached.DecrementStock(ctx, 7, 3))

	fresh, err := cached.Product(ctx, 7)
	require.NoError(t, err)
	require.EqualValues(t, 7, fresh.Stock)
	require.Equal(t, 2, store.reads, "decrement should evict the cached product")
}
