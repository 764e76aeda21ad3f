package activecart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-pos/internal/snapshot"
)

// State is an operator's saved cart with its last-write time.
type State struct {
	Operator  string        `json:"operator"`
	Snapshot  snapshot.Cart `json:"snapshot"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Store keeps one restart-durable cart per operator in Postgres. Saves
// are full overwrites; the last writer wins.
type Store struct {
	Pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

// Save upserts the operator's cart.
func (s *Store) Save(ctx context.Context, operator string, snap snapshot.Cart) (State, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return State{}, fmt.Errorf("activecart: marshal snapshot: %w", err)
	}
	var updatedAt time.Time
	err = s.Pool.QueryRow(ctx, `
		INSERT INTO active_carts (operator, cart, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (operator) DO UPDATE SET cart = EXCLUDED.cart, updated_at = now()
		RETURNING updated_at`,
		operator, payload).Scan(&updatedAt)
	if err != nil {
		return State{}, fmt.Errorf("activecart: save cart for %s: %w", operator, err)
	}
	return State{Operator: operator, Snapshot: snap, UpdatedAt: updatedAt}, nil
}

// Load returns the operator's cart, or an empty snapshot when none is
// saved. Absence is not an error: a fresh register simply starts empty.
func (s *Store) Load(ctx context.Context, operator string) (State, error) {
	var (
		payload   []byte
		updatedAt time.Time
	)
	err := s.Pool.QueryRow(ctx,
		`SELECT cart, updated_at FROM active_carts WHERE operator = $1`, operator).
		Scan(&payload, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return State{Operator: operator, Snapshot: snapshot.New(nil)}, nil
		}
		return State{}, fmt.Errorf("activecart: load cart for %s: %w", operator, err)
	}
	var snap snapshot.Cart
	if err := json.Unmarshal(payload, &snap); err != nil {
		return State{}, fmt.Errorf("activecart: decode cart for %s: %w", operator, err)
	}
	return State{Operator: operator, Snapshot: snap, UpdatedAt: updatedAt}, nil
}

// Clear removes the operator's cart. Clearing an absent cart is a no-op.
func (s *Store) Clear(ctx context.Context, operator string) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM active_carts WHERE operator = $1`, operator)
	if err != nil {
		return fmt.Errorf("activecart: clear cart for %s: %w", operator, err)
	}
	return nil
}
