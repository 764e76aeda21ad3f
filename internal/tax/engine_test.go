package tax

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/money"
)

func TestComputeLineTaxIncludedRoundTrip(t *testing.T) {
	// 12.10 gross at 21% extracts to exactly 10.00 net + 2.10 tax.
	got, err := ComputeLine(money.MustDecimal("12.10"), decimal.NewFromInt(1), decimal.Zero, money.MustDecimal("21"), true)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	assertAmounts(t, got, "10", "2.1", "12.1")
}

func TestComputeLineTaxExclusiveWithDiscount(t *testing.T) {
	// 10.00 x 2 with 10% discount -> discounted price 9.00, net 18.00,
	// tax 3.78 at 21%, gross 21.78.
	got, err := ComputeLine(money.MustDecimal("10.00"), decimal.NewFromInt(2), money.MustDecimal("10"), money.MustDecimal("21"), false)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	assertAmounts(t, got, "18", "3.78", "21.78")
}

func TestComputeLineZeroQuantity(t *testing.T) {
	for _, included := range []bool{true, false} {
		got, err := ComputeLine(money.MustDecimal("9.99"), decimal.Zero, decimal.Zero, money.MustDecimal("21"), included)
		if err != nil {
			t.Fatalf("taxIncluded=%v: %v", included, err)
		}
		assertAmounts(t, got, "0", "0", "0")
	}
}

func TestComputeLineZeroRate(t *testing.T) {
	got, err := ComputeLine(money.MustDecimal("5.55"), decimal.NewFromInt(3), decimal.Zero, decimal.Zero, false)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !got.Tax.IsZero() {
		t.Fatalf("expected zero tax, got %s", got.Tax)
	}
	if !got.Gross.Equal(got.Net) {
		t.Fatalf("gross %s should equal net %s at zero rate", got.Gross, got.Net)
	}
}

func TestComputeLineRejectsNegatives(t *testing.T) {
	cases := []struct {
		name                            string
		price, qty, discount, rate      string
	}{
		{"negative price", "-1", "1", "0", "21"},
		{"negative quantity", "1", "-1", "0", "21"},
		{"discount above 100", "1", "1", "101", "21"},
		{"negative discount", "1", "1", "-5", "21"},
		{"negative rate", "1", "1", "0", "-21"},
	}
	for _, tc := range cases {
		_, err := ComputeLine(money.MustDecimal(tc.price), money.MustDecimal(tc.qty), money.MustDecimal(tc.discount), money.MustDecimal(tc.rate), false)
		if !errors.Is(err, ErrInvalidLineItem) {
			t.Fatalf("%s: expected ErrInvalidLineItem, got %v", tc.name, err)
		}
	}
}

func TestComputeLineGrossAlwaysReconciles(t *testing.T) {
	// Gross == Net + Tax must hold exactly for arbitrary inputs in both
	// pricing modes.
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		price := decimal.NewFromFloat(rng.Float64() * 500).Round(2)
		qty := decimal.NewFromInt(int64(rng.Intn(9) + 1))
		discount := decimal.NewFromInt(int64(rng.Intn(101)))
		rate := decimal.NewFromInt(int64(rng.Intn(28)))
		for _, included := range []bool{true, false} {
			got, err := ComputeLine(price, qty, discount, rate, included)
			if err != nil {
				t.Fatalf("compute(%s, %s, %s, %s, %v): %v", price, qty, discount, rate, included, err)
			}
			if !got.Gross.Equal(got.Net.Add(got.Tax)) {
				t.Fatalf("gross %s != net %s + tax %s (price=%s qty=%s discount=%s rate=%s included=%v)",
					got.Gross, got.Net, got.Tax, price, qty, discount, rate, included)
			}
		}
	}
}

func assertAmounts(t *testing.T, got Amounts, net, tax, gross string) {
	t.Helper()
	if !got.Net.Equal(money.MustDecimal(net)) {
		t.Fatalf("net = %s, want %s", got.Net, net)
	}
	if !got.Tax.Equal(money.MustDecimal(tax)) {
		t.Fatalf("tax = %s, want %s", got.Tax, tax)
	}
	if !got.Gross.Equal(money.MustDecimal(gross)) {
		t.Fatalf("gross = %s, want %s", got.Gross, gross)
	}
}
