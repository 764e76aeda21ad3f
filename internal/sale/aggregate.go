package sale

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/money"
)

// Aggregate sums already-rounded line values into sale totals and the
// per-rate breakdown. Lines are summed as stored; the aggregator never
// re-rounds, so subtotal + tax always equals the sum of line totals.
func Aggregate(lines []Line, discount decimal.Decimal) (Totals, error) {
	if len(lines) == 0 {
		return Totals{}, ErrEmptyCart
	}
	if discount.IsNegative() {
		return Totals{}, fmt.Errorf("%w: discount %s is negative", ErrInvalidDiscount, discount)
	}

	totals := Totals{
		Subtotal:  decimal.Zero,
		TaxAmount: decimal.Zero,
		Discount:  money.Round2(discount),
		Breakdown: make(map[string]TaxBucket),
	}
	gross := decimal.Zero
	for _, line := range lines {
		totals.Subtotal = totals.Subtotal.Add(line.Net)
		totals.TaxAmount = totals.TaxAmount.Add(line.Tax)
		gross = gross.Add(line.Total)

		label := money.RateLabel(line.TaxRate)
		bucket := totals.Breakdown[label]
		bucket.Base = bucket.Base.Add(line.Net)
		bucket.Tax = bucket.Tax.Add(line.Tax)
		totals.Breakdown[label] = bucket
	}

	totals.Total = gross.Sub(totals.Discount)
	if totals.Total.IsNegative() {
		return Totals{}, fmt.Errorf("%w: discount %s exceeds sale total %s", ErrInvalidDiscount, totals.Discount, gross)
	}
	return totals, nil
}

// Change computes cash change for a payment. Partial payments are allowed
// and yield zero change.
func Change(amountPaid, total decimal.Decimal) decimal.Decimal {
	change := amountPaid.Sub(total)
	if change.IsNegative() {
		return decimal.Zero
	}
	return money.Round2(change)
}
