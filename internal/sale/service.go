package sale

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/settings"
	"github.com/noah-isme/backend-pos/internal/tax"
)

const numberPrefix = "SALE"

type numberIssuer interface {
	Next(ctx context.Context, prefix string) (string, error)
}

type settingsSource interface {
	Get(ctx context.Context) (settings.Settings, error)
}

type sessionFinder interface {
	OpenSessionID(ctx context.Context, operator string) (uuid.UUID, bool, error)
}

// Store persists finalized sales.
type Store interface {
	Insert(ctx context.Context, s *Sale) error
	AttachSession(ctx context.Context, number string, sessionID uuid.UUID) error
	List(ctx context.Context, p ListParams) ([]Summary, error)
	Get(ctx context.Context, number string) (Sale, error)
}

// ListParams filter the sales ledger listing.
type ListParams struct {
	Status string
	Limit  int
	Offset int
}

// InputItem is one cart line as submitted by the register.
type InputItem struct {
	ProductID       int64
	Quantity        decimal.Decimal
	DiscountPercent decimal.Decimal
}

// FinalizeInput is the full finalize request.
type FinalizeInput struct {
	Items          []InputItem
	DiscountAmount decimal.Decimal
	PaymentMethod  string
	AmountPaid     decimal.Decimal
	CustomerName   string
	Notes          string
	Operator       string
}

// FinalizeResult is the committed sale plus whatever happened after the
// commit. Failed side effects do not undo the sale.
type FinalizeResult struct {
	Sale        Sale            `json:"sale"`
	Change      decimal.Decimal `json:"change"`
	SideEffects []SideEffect    `json:"sideEffects"`
}

// Service orchestrates pricing, numbering, persistence and post-commit
// side effects for the sales ledger.
type Service struct {
	Store    Store
	Catalog  catalog.Provider
	Numbers  numberIssuer
	Settings settingsSource
	Drawer   sessionFinder
	Log      zerolog.Logger
	Retries  int
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) retries() int {
	if s.Retries > 0 {
		return s.Retries
	}
	return 3
}

// BuildLine resolves one cart item against the catalog and prices it.
func (s *Service) BuildLine(ctx context.Context, item InputItem, taxIncluded bool, position int) (Line, error) {
	product, err := s.Catalog.Product(ctx, item.ProductID)
	if err != nil {
		return Line{}, err
	}
	amounts, err := tax.ComputeLine(product.UnitPrice, item.Quantity, item.DiscountPercent, product.TaxRate, taxIncluded)
	if err != nil {
		return Line{}, err
	}
	return Line{
		ProductID:       product.ID,
		Name:            product.Name,
		SKU:             product.SKU,
		IsService:       product.IsService,
		Quantity:        item.Quantity,
		UnitPrice:       product.UnitPrice,
		DiscountPercent: item.DiscountPercent,
		TaxRate:         product.TaxRate,
		TaxClass:        product.TaxClass,
		Net:             amounts.Net,
		Tax:             amounts.Tax,
		Total:           amounts.Gross,
		Position:        position,
	}, nil
}

// Finalize validates, prices, numbers and persists a sale, then runs the
// post-commit side effects. The sale row and its lines land in a single
// transaction; a reader never observes a sale whose aggregates disagree
// with its lines.
func (s *Service) Finalize(ctx context.Context, input FinalizeInput) (FinalizeResult, error) {
	if len(input.Items) == 0 {
		return FinalizeResult{}, ErrEmptyCart
	}

	cfg, err := s.Settings.Get(ctx)
	if err != nil {
		return FinalizeResult{}, fmt.Errorf("read settings: %w", err)
	}
	if cfg.RequireCustomer && input.CustomerName == "" {
		return FinalizeResult{}, ErrCustomerRequired
	}
	if !cfg.AllowDiscounts {
		if input.DiscountAmount.IsPositive() {
			return FinalizeResult{}, ErrDiscountsDisabled
		}
		for _, item := range input.Items {
			if item.DiscountPercent.IsPositive() {
				return FinalizeResult{}, ErrDiscountsDisabled
			}
		}
	}

	lines := make([]Line, 0, len(input.Items))
	for i, item := range input.Items {
		line, err := s.BuildLine(ctx, item, cfg.TaxIncluded, i)
		if err != nil {
			return FinalizeResult{}, err
		}
		lines = append(lines, line)
	}

	totals, err := Aggregate(lines, input.DiscountAmount)
	if err != nil {
		return FinalizeResult{}, err
	}
	change := Change(input.AmountPaid, totals.Total)

	sale, err := s.insertNumbered(ctx, input, lines, totals, change)
	if err != nil {
		s.countFinalize("error", input.PaymentMethod)
		return FinalizeResult{}, err
	}
	s.countFinalize("ok", input.PaymentMethod)

	effects := s.runSideEffects(ctx, &sale)
	return FinalizeResult{Sale: sale, Change: change, SideEffects: effects}, nil
}

// insertNumbered issues a number and inserts the sale, retrying with a
// fresh number when the UNIQUE constraint reports the counter and the
// table disagree.
func (s *Service) insertNumbered(ctx context.Context, input FinalizeInput, lines []Line, totals Totals, change decimal.Decimal) (Sale, error) {
	var lastErr error
	for attempt := 0; attempt < s.retries(); attempt++ {
		number, err := s.Numbers.Next(ctx, numberPrefix)
		if err != nil {
			return Sale{}, err
		}
		sale := Sale{
			Number:         number,
			Status:         StatusCompleted,
			Subtotal:       totals.Subtotal,
			TaxAmount:      totals.TaxAmount,
			TaxBreakdown:   totals.Breakdown,
			DiscountAmount: totals.Discount,
			Total:          totals.Total,
			PaymentMethod:  input.PaymentMethod,
			AmountPaid:     input.AmountPaid,
			ChangeGiven:    change,
			CustomerName:   input.CustomerName,
			Notes:          input.Notes,
			Operator:       input.Operator,
			CreatedAt:      s.now(),
			Lines:          lines,
		}
		if err := s.Store.Insert(ctx, &sale); err != nil {
			if errors.Is(err, ErrNumberingConflict) {
				if obs.NumberingConflictTotal != nil {
					obs.NumberingConflictTotal.WithLabelValues(numberPrefix).Inc()
				}
				s.Log.Warn().Str("sale_number", number).Int("attempt", attempt+1).Msg("sale number collision, retrying")
				lastErr = err
				continue
			}
			return Sale{}, fmt.Errorf("insert sale %s: %w", number, err)
		}
		return sale, nil
	}
	return Sale{}, lastErr
}

// runSideEffects applies the best-effort steps that follow a committed
// sale: stock sync for physical lines and attribution of cash sales to
// the operator's open drawer session. Failures are logged and reported,
// never propagated.
func (s *Service) runSideEffects(ctx context.Context, sale *Sale) []SideEffect {
	effects := make([]SideEffect, 0, 2)

	stockEffect := SideEffect{Effect: "stock_decrement", OK: true}
	for _, line := range sale.Lines {
		if line.IsService {
			continue
		}
		qty := line.Quantity.IntPart()
		if qty <= 0 {
			continue
		}
		if err := s.Catalog.DecrementStock(ctx, line.ProductID, qty); err != nil {
			stockEffect.OK = false
			stockEffect.Detail = fmt.Sprintf("product %d: %v", line.ProductID, err)
			s.failEffect("stock_decrement", sale.Number, err)
		}
	}
	effects = append(effects, stockEffect)

	if sale.PaymentMethod == "cash" && s.Drawer != nil {
		cashEffect := SideEffect{Effect: "drawer_attribution", OK: true}
		sessionID, found, err := s.Drawer.OpenSessionID(ctx, sale.Operator)
		switch {
		case err != nil:
			cashEffect.OK = false
			cashEffect.Detail = err.Error()
			s.failEffect("drawer_attribution", sale.Number, err)
		case !found:
			cashEffect.Detail = "no open drawer session for operator"
		default:
			if err := s.Store.AttachSession(ctx, sale.Number, sessionID); err != nil {
				cashEffect.OK = false
				cashEffect.Detail = err.Error()
				s.failEffect("drawer_attribution", sale.Number, err)
			} else {
				sale.SessionID = &sessionID
			}
		}
		effects = append(effects, cashEffect)
	}

	return effects
}

func (s *Service) failEffect(effect, number string, err error) {
	s.Log.Error().Err(err).Str("sale_number", number).Str("effect", effect).Msg("side effect failed after commit")
	if obs.SideEffectFailureTotal != nil {
		obs.SideEffectFailureTotal.WithLabelValues(effect).Inc()
	}
}

func (s *Service) countFinalize(result, paymentMethod string) {
	if obs.SalesFinalizedTotal != nil {
		obs.SalesFinalizedTotal.WithLabelValues(result, paymentMethod).Inc()
	}
}

// List returns recent sales newest-first.
func (s *Service) List(ctx context.Context, p ListParams) ([]Summary, error) {
	return s.Store.List(ctx, p)
}

// Get returns one sale with its lines.
func (s *Service) Get(ctx context.Context, number string) (Sale, error) {
	return s.Store.Get(ctx, number)
}
