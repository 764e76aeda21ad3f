package sale

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/money"
	"github.com/noah-isme/backend-pos/internal/settings"
)

type fakeStore struct {
	inserted      []Sale
	conflictsLeft int
	attached      map[string]uuid.UUID
	attachErr     error
}

func (f *fakeStore) Insert(_ context.Context, s *Sale) error {
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		return fmt.Errorf("%w: %s", ErrNumberingConflict, s.Number)
	}
	s.ID = int64(len(f.inserted) + 1)
	f.inserted = append(f.inserted, *s)
	return nil
}

func (f *fakeStore) AttachSession(_ context.Context, number string, sessionID uuid.UUID) error {
	if f.attachErr != nil {
		return f.attachErr
	}
	if f.attached == nil {
		f.attached = make(map[string]uuid.UUID)
	}
	f.attached[number] = sessionID
	return nil
}

func (f *fakeStore) List(_ context.Context, _ ListParams) ([]Summary, error) { return nil, nil }

func (f *fakeStore) Get(_ context.Context, number string) (Sale, error) {
	for _, s := range f.inserted {
		if s.Number == number {
			return s, nil
		}
	}
	return Sale{}, ErrNotFound
}

type fakeCatalog struct {
	products     map[int64]catalog.Product
	decremented  map[int64]int64
	decrementErr error
}

func (f *fakeCatalog) Product(_ context.Context, id int64) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (f *fakeCatalog) DecrementStock(_ context.Context, id int64, qty int64) error {
	if f.decrementErr != nil {
		return f.decrementErr
	}
	if f.decremented == nil {
		f.decremented = make(map[int64]int64)
	}
	f.decremented[id] += qty
	return nil
}

type fakeNumbers struct {
	issued int
}

func (f *fakeNumbers) Next(_ context.Context, prefix string) (string, error) {
	f.issued++
	return fmt.Sprintf("%s-20250101-%04d", prefix, f.issued), nil
}

type fakeSettings struct {
	cfg settings.Settings
	err error
}

func (f *fakeSettings) Get(_ context.Context) (settings.Settings, error) { return f.cfg, f.err }

type fakeDrawer struct {
	sessionID uuid.UUID
	found     bool
	err       error
}

func (f *fakeDrawer) OpenSessionID(_ context.Context, _ string) (uuid.UUID, bool, error) {
	return f.sessionID, f.found, f.err
}

func newTestService(store *fakeStore, cat *fakeCatalog, drw *fakeDrawer, cfg settings.Settings) *Service {
	return &Service{
		Store:    store,
		Catalog:  cat,
		Numbers:  &fakeNumbers{},
		Settings: &fakeSettings{cfg: cfg},
		Drawer:   drw,
		Log:      zerolog.Nop(),
		Retries:  3,
		Now:      func() time.Time { return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func defaultCatalog() *fakeCatalog {
	return &fakeCatalog{products: map[int64]catalog.Product{
		1: {ID: 1, Name: "Espresso", SKU: "ESP", UnitPrice: money.MustDecimal("12.10"), TaxRate: money.MustDecimal("21")},
		2: {ID: 2, Name: "Haircut", SKU: "CUT", UnitPrice: money.MustDecimal("15.00"), TaxRate: money.MustDecimal("21"), IsService: true},
	}}
}

func openSettings() settings.Settings {
	return settings.Settings{TaxIncluded: true, AllowDiscounts: true, EnableParkedTickets: true}
}

func TestFinalizeCashSale(t *testing.T) {
	store := &fakeStore{}
	cat := defaultCatalog()
	drw := &fakeDrawer{sessionID: uuid.New(), found: true}
	svc := newTestService(store, cat, drw, openSettings())

	result, err := svc.Finalize(context.Background(), FinalizeInput{
		Items:         []InputItem{{ProductID: 1, Quantity: decimal.NewFromInt(1)}},
		PaymentMethod: "cash",
		AmountPaid:    money.MustDecimal("20.00"),
		Operator:      "ana",
	})
	require.NoError(t, err)

	require.Equal(t, "SALE-20250101-0001", result.Sale.Number)
	require.Equal(t, StatusCompleted, result.Sale.Status)
	require.True(t, result.Sale.Subtotal.Equal(money.MustDecimal("10.00")))
	require.True(t, result.Sale.TaxAmount.Equal(money.MustDecimal("2.10")))
	require.True(t, result.Sale.Total.Equal(money.MustDecimal("12.10")))
	require.True(t, result.Change.Equal(money.MustDecimal("7.90")))

	require.Len(t, store.inserted, 1)
	require.EqualValues(t, 1, cat.decremented[1])
	require.Equal(t, drw.sessionID, store.attached["SALE-20250101-0001"])
	require.NotNil(t, result.Sale.SessionID)

	for _, effect := range result.SideEffects {
		require.True(t, effect.OK, "effect %s failed: %s", effect.Effect, effect.Detail)
	}
}

func TestFinalizeEmptyCart(t *testing.T) {
	svc := newTestService(&fakeStore{}, defaultCatalog(), nil, openSettings())
	_, err := svc.Finalize(context.Background(), FinalizeInput{Operator: "ana"})
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestFinalizeRequiresCustomer(t *testing.T) {
	cfg := openSettings()
	cfg.RequireCustomer = true
	svc := newTestService(&fakeStore{}, defaultCatalog(), nil, cfg)
	_, err := svc.Finalize(context.Background(), FinalizeInput{
		Items:    []InputItem{{ProductID: 1, Quantity: decimal.NewFromInt(1)}},
		Operator: "ana",
	})
	require.ErrorIs(t, err, ErrCustomerRequired)
}

func TestFinalizeDiscountsDisabled(t *testing.T) {
	cfg := openSettings()
	cfg.AllowDiscounts = false
	svc := newTestService(&fakeStore{}, defaultCatalog(), nil, cfg)
	_, err := svc.Finalize(context.Background(), FinalizeInput{
		Items:    []InputItem{{ProductID: 1, Quantity: decimal.NewFromInt(1), DiscountPercent: money.MustDecimal("10")}},
		Operator: "ana",
	})
	require.ErrorIs(t, err, ErrDiscountsDisabled)
}

func TestFinalizeRetriesOnNumberConflict(t *testing.T) {
	store := &fakeStore{conflictsLeft: 2}
	svc := newTestService(store, defaultCatalog(), nil, openSettings())

	result, err := svc.Finalize(context.Background(), FinalizeInput{
		Items:         []InputItem{{ProductID: 1, Quantity: decimal.NewFromInt(1)}},
		PaymentMethod: "card",
		AmountPaid:    money.MustDecimal("12.10"),
		Operator:      "ana",
	})
	require.NoError(t, err)
	require.Equal(t, "SALE-20250101-0003", result.Sale.Number, "each retry burns a fresh number")
}

func TestFinalizeConflictExhaustsRetries(t *testing.T) {
	store := &fakeStore{conflictsLeft: 10}
	svc := newTestService(store, defaultCatalog(), nil, openSettings())

	_, err := svc.Finalize(context.Background(), FinalizeInput{
		Items:         []InputItem{{ProductID: 1, Quantity: decimal.NewFromInt(1)}},
		PaymentMethod: "card",
		AmountPaid:    money.MustDecimal("12.10"),
		Operator:      "ana",
	})
	require.ErrorIs(t, err, ErrNumberingConflict)
}

func TestFinalizeStockFailureDoesNotFailSale(t *testing.T) {
	store := &fakeStore{}
	cat := defaultCatalog()
	cat.decrementErr = errors.New("stock backend down")
	svc := newTestService(store, cat, nil, openSettings())

	result, err := svc.Finalize(context.Background(), FinalizeInput{
		Items:         []InputItem{{ProductID: 1, Quantity: decimal.NewFromInt(1)}},
		PaymentMethod: "card",
		AmountPaid:    money.MustDecimal("12.10"),
		Operator:      "ana",
	})
	require.NoError(t, err, "sale must stay committed when side effects fail")
	require.Len(t, store.inserted, 1)

	var stock *SideEffect
	for i := range result.SideEffects {
		if result.SideEffects[i].Effect == "stock_decrement" {
			stock = &result.SideEffects[i]
		}
	}
	require.NotNil(t, stock)
	require.False(t, stock.OK)
	require.Contains(t, stock.Detail, "stock backend down")
}

func TestFinalizeServiceLinesSkipStock(t *testing.T) {
	store := &fakeStore{}
	cat := defaultCatalog()
	svc := newTestService(store, cat, nil, openSettings())

	_, err := svc.Finalize(context.Background(), FinalizeInput{
		Items:         []InputItem{{ProductID: 2, Quantity: decimal.NewFromInt(1)}},
		PaymentMethod: "card",
		AmountPaid:    money.MustDecimal("18.15"),
		Operator:      "ana",
	})
	require.NoError(t, err)
	require.Empty(t, cat.decremented)
}

func TestFinalizeNoOpenDrawerSession(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, defaultCatalog(), &fakeDrawer{found: false}, openSettings())

	result, err := svc.Finalize(context.Background(), FinalizeInput{
		Items:         []InputItem{{ProductID: 1, Quantity: decimal.NewFromInt(1)}},
		PaymentMethod: "cash",
		AmountPaid:    money.MustDecimal("12.10"),
		Operator:      "ana",
	})
	require.NoError(t, err)
	require.Nil(t, result.Sale.SessionID)
	require.Empty(t, store.attached)
}
