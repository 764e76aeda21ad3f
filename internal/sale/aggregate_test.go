package sale

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/money"
	"github.com/noah-isme/backend-pos/internal/tax"
)

func computedLine(t *testing.T, price, qty, disc, rate string, taxIncluded bool) Line {
	t.Helper()
	amounts, err := tax.ComputeLine(
		money.MustDecimal(price), money.MustDecimal(qty),
		money.MustDecimal(disc), money.MustDecimal(rate), taxIncluded)
	require.NoError(t, err)
	return Line{
		Quantity:        money.MustDecimal(qty),
		UnitPrice:       money.MustDecimal(price),
		DiscountPercent: money.MustDecimal(disc),
		TaxRate:         money.MustDecimal(rate),
		Net:             amounts.Net,
		Tax:             amounts.Tax,
		Total:           amounts.Gross,
	}
}

func TestAggregateEmptyCart(t *testing.T) {
	_, err := Aggregate(nil, decimal.Zero)
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestAggregateNegativeDiscount(t *testing.T) {
	lines := []Line{computedLine(t, "10.00", "1", "0", "21", false)}
	_, err := Aggregate(lines, money.MustDecimal("-1"))
	require.ErrorIs(t, err, ErrInvalidDiscount)
}

func TestAggregateDiscountExceedsTotal(t *testing.T) {
	lines := []Line{computedLine(t, "10.00", "1", "0", "21", false)}
	_, err := Aggregate(lines, money.MustDecimal("100.00"))
	require.ErrorIs(t, err, ErrInvalidDiscount)
}

func TestAggregateBreakdownByRate(t *testing.T) {
	lines := []Line{
		computedLine(t, "12.10", "1", "0", "21", true),
		computedLine(t, "12.10", "2", "0", "21", true),
		computedLine(t, "5.00", "1", "0", "10", true),
	}
	totals, err := Aggregate(lines, decimal.Zero)
	require.NoError(t, err)

	require.Len(t, totals.Breakdown, 2)
	high := totals.Breakdown["21.00"]
	low := totals.Breakdown["10.00"]

	wantBase := lines[0].Net.Add(lines[1].Net)
	wantTax := lines[0].Tax.Add(lines[1].Tax)
	require.True(t, high.Base.Equal(wantBase), "21%% base: got %s want %s", high.Base, wantBase)
	require.True(t, high.Tax.Equal(wantTax), "21%% tax: got %s want %s", high.Tax, wantTax)
	require.True(t, low.Base.Equal(lines[2].Net))
	require.True(t, low.Tax.Equal(lines[2].Tax))

	// The breakdown reconstructs the sale-level totals exactly.
	baseSum, taxSum := decimal.Zero, decimal.Zero
	for _, bucket := range totals.Breakdown {
		baseSum = baseSum.Add(bucket.Base)
		taxSum = taxSum.Add(bucket.Tax)
	}
	require.True(t, baseSum.Equal(totals.Subtotal))
	require.True(t, taxSum.Equal(totals.TaxAmount))
}

func TestAggregateTotalsReconcile(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 300; i++ {
		taxIncluded := rng.Intn(2) == 0
		n := 1 + rng.Intn(6)
		lines := make([]Line, 0, n)
		gross := decimal.Zero
		for j := 0; j < n; j++ {
			price := decimal.NewFromInt(int64(rng.Intn(100000))).Div(decimal.NewFromInt(100))
			qty := decimal.NewFromInt(int64(1 + rng.Intn(9)))
			disc := decimal.NewFromInt(int64(rng.Intn(101)))
			rate := []string{"0", "4", "10", "21"}[rng.Intn(4)]
			amounts, err := tax.ComputeLine(price, qty, disc, money.MustDecimal(rate), taxIncluded)
			require.NoError(t, err)
			lines = append(lines, Line{
				Quantity: qty, UnitPrice: price, DiscountPercent: disc,
				TaxRate: money.MustDecimal(rate),
				Net:     amounts.Net, Tax: amounts.Tax, Total: amounts.Gross,
			})
			gross = gross.Add(amounts.Gross)
		}
		totals, err := Aggregate(lines, decimal.Zero)
		require.NoError(t, err)
		require.True(t, totals.Subtotal.Add(totals.TaxAmount).Equal(gross),
			"subtotal %s + tax %s != gross %s", totals.Subtotal, totals.TaxAmount, gross)
		require.True(t, totals.Total.Equal(gross))
	}
}

func TestChange(t *testing.T) {
	require.True(t, Change(money.MustDecimal("20.00"), money.MustDecimal("12.10")).Equal(money.MustDecimal("7.90")))
	require.True(t, Change(money.MustDecimal("10.00"), money.MustDecimal("12.10")).IsZero(), "partial payment gives no change")
	require.True(t, Change(money.MustDecimal("12.10"), money.MustDecimal("12.10")).IsZero())
}
