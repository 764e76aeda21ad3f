package sale

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PGStore is the Postgres-backed sales ledger.
type PGStore struct {
	Pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Pool: pool}
}

const uniqueViolation = "23505"

// Insert writes the sale and its lines in one transaction. A duplicate
// sale number surfaces as ErrNumberingConflict so the caller can retry
// with a fresh number.
func (s *PGStore) Insert(ctx context.Context, sale *Sale) error {
	breakdown, err := json.Marshal(sale.TaxBreakdown)
	if err != nil {
		return fmt.Errorf("marshal tax breakdown: %w", err)
	}

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO sales (
			sale_number, status, subtotal, tax_amount, tax_breakdown,
			discount_amount, total, payment_method, amount_paid, change_given,
			customer_name, notes, operator, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`,
		sale.Number, sale.Status,
		sale.Subtotal.String(), sale.TaxAmount.String(), breakdown,
		sale.DiscountAmount.String(), sale.Total.String(),
		sale.PaymentMethod, sale.AmountPaid.String(), sale.ChangeGiven.String(),
		sale.CustomerName, sale.Notes, sale.Operator, sale.CreatedAt,
	).Scan(&sale.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrNumberingConflict, sale.Number)
		}
		return fmt.Errorf("insert sale: %w", err)
	}

	for _, line := range sale.Lines {
		_, err := tx.Exec(ctx, `
			INSERT INTO sale_items (
				sale_id, product_id, name, sku, is_service,
				quantity, unit_price, discount_percent, tax_rate, tax_class,
				net_amount, tax_amount, line_total, position
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			sale.ID, line.ProductID, line.Name, line.SKU, line.IsService,
			line.Quantity.String(), line.UnitPrice.String(), line.DiscountPercent.String(),
			line.TaxRate.String(), line.TaxClass,
			line.Net.String(), line.Tax.String(), line.Total.String(), line.Position,
		)
		if err != nil {
			return fmt.Errorf("insert sale item %d: %w", line.Position, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit sale: %w", err)
	}
	return nil
}

// AttachSession links a committed sale to a cash drawer session.
func (s *PGStore) AttachSession(ctx context.Context, number string, sessionID uuid.UUID) error {
	tag, err := s.Pool.Exec(ctx,
		`UPDATE sales SET session_id = $2 WHERE sale_number = $1`, number, sessionID)
	if err != nil {
		return fmt.Errorf("attach session to sale %s: %w", number, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns summaries newest-first with an optional status filter.
func (s *PGStore) List(ctx context.Context, p ListParams) ([]Summary, error) {
	if p.Limit <= 0 {
		p.Limit = 25
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT sale_number, status, total::text, payment_method, customer_name, operator, created_at
		FROM sales
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		p.Status, p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	out := make([]Summary, 0, p.Limit)
	for rows.Next() {
		var (
			sum   Summary
			total string
		)
		if err := rows.Scan(&sum.Number, &sum.Status, &total, &sum.PaymentMethod, &sum.CustomerName, &sum.Operator, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sale summary: %w", err)
		}
		if sum.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("parse sale total: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Get loads one sale with its lines.
func (s *PGStore) Get(ctx context.Context, number string) (Sale, error) {
	var (
		sale      Sale
		subtotal  string
		taxAmount string
		breakdown []byte
		discount  string
		total     string
		paid      string
		change    string
	)
	err := s.Pool.QueryRow(ctx, `
		SELECT id, sale_number, status, subtotal::text, tax_amount::text, tax_breakdown,
		       discount_amount::text, total::text, payment_method, amount_paid::text,
		       change_given::text, customer_name, notes, operator, session_id, created_at
		FROM sales WHERE sale_number = $1`, number).
		Scan(&sale.ID, &sale.Number, &sale.Status, &subtotal, &taxAmount, &breakdown,
			&discount, &total, &sale.PaymentMethod, &paid,
			&change, &sale.CustomerName, &sale.Notes, &sale.Operator, &sale.SessionID, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, ErrNotFound
		}
		return Sale{}, fmt.Errorf("get sale %s: %w", number, err)
	}

	if err := parseDec(subtotal, &sale.Subtotal); err != nil {
		return Sale{}, fmt.Errorf("parse subtotal: %w", err)
	}
	if err := parseDec(taxAmount, &sale.TaxAmount); err != nil {
		return Sale{}, fmt.Errorf("parse tax_amount: %w", err)
	}
	if err := parseDec(discount, &sale.DiscountAmount); err != nil {
		return Sale{}, fmt.Errorf("parse discount_amount: %w", err)
	}
	if err := parseDec(total, &sale.Total); err != nil {
		return Sale{}, fmt.Errorf("parse total: %w", err)
	}
	if err := parseDec(paid, &sale.AmountPaid); err != nil {
		return Sale{}, fmt.Errorf("parse amount_paid: %w", err)
	}
	if err := parseDec(change, &sale.ChangeGiven); err != nil {
		return Sale{}, fmt.Errorf("parse change_given: %w", err)
	}
	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &sale.TaxBreakdown); err != nil {
			return Sale{}, fmt.Errorf("unmarshal tax breakdown: %w", err)
		}
	}

	lines, err := s.lines(ctx, sale.ID)
	if err != nil {
		return Sale{}, err
	}
	sale.Lines = lines
	return sale, nil
}

func (s *PGStore) lines(ctx context.Context, saleID int64) ([]Line, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT product_id, name, sku, is_service,
		       quantity::text, unit_price::text, discount_percent::text, tax_rate::text, tax_class,
		       net_amount::text, tax_amount::text, line_total::text, position
		FROM sale_items WHERE sale_id = $1 ORDER BY position`, saleID)
	if err != nil {
		return nil, fmt.Errorf("list sale items: %w", err)
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var (
			line                      Line
			qty, price, disc, rate    string
			netRaw, taxRaw, lineTotal string
		)
		err := rows.Scan(&line.ProductID, &line.Name, &line.SKU, &line.IsService,
			&qty, &price, &disc, &rate, &line.TaxClass,
			&netRaw, &taxRaw, &lineTotal, &line.Position)
		if err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		fields := []struct {
			raw string
			dst *decimal.Decimal
		}{
			{qty, &line.Quantity}, {price, &line.UnitPrice}, {disc, &line.DiscountPercent},
			{rate, &line.TaxRate}, {netRaw, &line.Net}, {taxRaw, &line.Tax}, {lineTotal, &line.Total},
		}
		for _, f := range fields {
			if err := parseDec(f.raw, f.dst); err != nil {
				return nil, fmt.Errorf("parse sale item numeric: %w", err)
			}
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

func parseDec(raw string, dst *decimal.Decimal) error {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
