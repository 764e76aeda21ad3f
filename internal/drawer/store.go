package drawer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PGStore is the Postgres-backed session store.
type PGStore struct {
	Pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Pool: pool}
}

func (s *PGStore) CreateSession(ctx context.Context, session *Session) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO cash_sessions (id, operator, status, opening_float, opening_notes, opened_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		session.ID, session.Operator, session.Status,
		session.OpeningFloat.String(), session.OpeningNotes, session.OpenedAt)
	if err != nil {
		return fmt.Errorf("drawer: create session: %w", err)
	}
	return nil
}

func (s *PGStore) GetSession(ctx context.Context, id uuid.UUID) (Session, error) {
	var (
		session                      Session
		openingFloat                 string
		closingCount, expected, diff *string
	)
	err := s.Pool.QueryRow(ctx, `
		SELECT id, operator, status, opening_float::text, closing_count::text,
		       expected::text, difference::text, opening_notes, closing_notes,
		       opened_at, closed_at
		FROM cash_sessions WHERE id = $1`, id).
		Scan(&session.ID, &session.Operator, &session.Status, &openingFloat,
			&closingCount, &expected, &diff,
			&session.OpeningNotes, &session.ClosingNotes,
			&session.OpenedAt, &session.ClosedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("drawer: get session %s: %w", id, err)
	}
	if session.OpeningFloat, err = decimal.NewFromString(openingFloat); err != nil {
		return Session{}, fmt.Errorf("drawer: parse opening_float: %w", err)
	}
	if session.ClosingCount, err = optionalDec(closingCount); err != nil {
		return Session{}, fmt.Errorf("drawer: parse closing_count: %w", err)
	}
	if session.Expected, err = optionalDec(expected); err != nil {
		return Session{}, fmt.Errorf("drawer: parse expected: %w", err)
	}
	if session.Difference, err = optionalDec(diff); err != nil {
		return Session{}, fmt.Errorf("drawer: parse difference: %w", err)
	}
	return session, nil
}

func optionalDec(raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *PGStore) OpenSessionID(ctx context.Context, operator string) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := s.Pool.QueryRow(ctx, `
		SELECT id FROM cash_sessions
		WHERE operator = $1 AND status = 'open'
		ORDER BY opened_at DESC LIMIT 1`, operator).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.UUID{}, false, nil
		}
		return uuid.UUID{}, false, fmt.Errorf("drawer: find open session for %s: %w", operator, err)
	}
	return id, true, nil
}

func (s *PGStore) AddMovement(ctx context.Context, m *Movement) error {
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO cash_movements (session_id, direction, amount, reason, operator, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		m.SessionID, m.Direction, m.Amount.String(), m.Reason, m.Operator, m.CreatedAt).
		Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("drawer: add movement: %w", err)
	}
	return nil
}

func (s *PGStore) Movements(ctx context.Context, sessionID uuid.UUID) ([]Movement, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, session_id, direction, amount::text, reason, operator, created_at
		FROM cash_movements WHERE session_id = $1 ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("drawer: list movements: %w", err)
	}
	defer rows.Close()

	var out []Movement
	for rows.Next() {
		var (
			m      Movement
			amount string
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Direction, &amount, &m.Reason, &m.Operator, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("drawer: scan movement: %w", err)
		}
		if m.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("drawer: parse movement amount: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CashSalesTotal sums completed cash sales attributed to the session.
func (s *PGStore) CashSalesTotal(ctx context.Context, sessionID uuid.UUID) (decimal.Decimal, error) {
	var raw string
	err := s.Pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total), 0)::text FROM sales
		WHERE session_id = $1 AND payment_method = 'cash' AND status = 'completed'`, sessionID).
		Scan(&raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("drawer: sum cash sales: %w", err)
	}
	total, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("drawer: parse cash sales total: %w", err)
	}
	return total, nil
}

// CloseSession writes the reconciliation result. The open-status guard in
// the WHERE clause backs up the service-level lock.
func (s *PGStore) CloseSession(ctx context.Context, session Session) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE cash_sessions
		SET status = $2, closing_count = $3, expected = $4, difference = $5,
		    closing_notes = $6, closed_at = $7
		WHERE id = $1 AND status = 'open'`,
		session.ID, session.Status,
		session.ClosingCount.String(), session.Expected.String(), session.Difference.String(),
		session.ClosingNotes, session.ClosedAt)
	if err != nil {
		return fmt.Errorf("drawer: close session %s: %w", session.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyClosed
	}
	return nil
}
