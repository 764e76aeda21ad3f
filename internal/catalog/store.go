package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Store reads products from Postgres. Numeric columns are selected as
// text so they land in decimals without a float round trip.
type Store struct {
	Pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

const productColumns = `id, name, sku, unit_price::text, tax_rate::text, tax_class, is_service, stock, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p         Product
		unitPrice string
		taxRate   string
	)
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &unitPrice, &taxRate, &p.TaxClass, &p.IsService, &p.Stock, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	if p.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
		return Product{}, fmt.Errorf("parse unit_price: %w", err)
	}
	if p.TaxRate, err = decimal.NewFromString(taxRate); err != nil {
		return Product{}, fmt.Errorf("parse tax_rate: %w", err)
	}
	return p, nil
}

// Product fetches one product by id.
func (s *Store) Product(ctx context.Context, id int64) (Product, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

// List returns products ordered by name, for register lookup screens.
func (s *Store) List(ctx context.Context, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	out := make([]Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DecrementStock reduces on-hand stock for a physical product. Stock may
// go negative; the register never blocks a sale on inventory.
func (s *Store) DecrementStock(ctx context.Context, id int64, qty int64) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND is_service = FALSE`, id, qty)
	if err != nil {
		return fmt.Errorf("decrement stock for product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
