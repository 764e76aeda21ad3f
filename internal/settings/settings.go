package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Settings is the singleton sales configuration row. TaxIncluded controls
// whether catalog prices carry tax inside them; the tax engine is told
// explicitly per computation, this is only the stored default.
type Settings struct {
	TaxIncluded         bool      `json:"taxIncluded"`
	RequireCustomer     bool      `json:"requireCustomer"`
	AllowDiscounts      bool      `json:"allowDiscounts"`
	EnableParkedTickets bool      `json:"enableParkedTickets"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

type Store struct {
	Pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

func (s *Store) Get(ctx context.Context) (Settings, error) {
	var out Settings
	err := s.Pool.QueryRow(ctx, `
		SELECT tax_included, require_customer, allow_discounts, enable_parked_tickets, updated_at
		FROM sales_settings WHERE id = 1`).
		Scan(&out.TaxIncluded, &out.RequireCustomer, &out.AllowDiscounts, &out.EnableParkedTickets, &out.UpdatedAt)
	if err != nil {
		return Settings{}, fmt.Errorf("load sales settings: %w", err)
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, in Settings) (Settings, error) {
	var out Settings
	err := s.Pool.QueryRow(ctx, `
		UPDATE sales_settings
		SET tax_included = $1, require_customer = $2, allow_discounts = $3,
		    enable_parked_tickets = $4, updated_at = now()
		WHERE id = 1
		RETURNING tax_included, require_customer, allow_discounts, enable_parked_tickets, updated_at`,
		in.TaxIncluded, in.RequireCustomer, in.AllowDiscounts, in.EnableParkedTickets).
		Scan(&out.TaxIncluded, &out.RequireCustomer, &out.AllowDiscounts, &out.EnableParkedTickets, &out.UpdatedAt)
	if err != nil {
		return Settings{}, fmt.Errorf("update sales settings: %w", err)
	}
	return out, nil
}
